package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-dynforms/pkg/catalog"
	"github.com/goliatone/go-dynforms/pkg/model"
)

type violation struct {
	file     string
	location string
	message  string
}

var lintCmd = &cobra.Command{
	Use:   "lint <paths...>",
	Short: "Check catalog files for entries the app would skip or could not fill",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var violations []violation
		for _, path := range args {
			linted, err := lintFile(path)
			if err != nil {
				return fmt.Errorf("lint %s: %w", path, err)
			}
			violations = append(violations, linted...)
		}
		if len(violations) == 0 {
			return nil
		}
		printViolations(cmd.ErrOrStderr(), violations)
		return fmt.Errorf("%d problems found", len(violations))
	},
}

func lintFile(path string) ([]violation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := catalog.NewDocument(catalog.SourceFromFile(path), raw)
	if err != nil {
		return nil, fmt.Errorf("construct document: %w", err)
	}
	result, err := catalog.Decode(doc)
	if err != nil {
		return nil, err
	}

	var out []violation
	for _, skipped := range result.Skipped {
		location := fmt.Sprintf("entry %d", skipped.Index)
		if skipped.Item >= 0 {
			location = fmt.Sprintf("entry %d item %d", skipped.Index, skipped.Item)
		}
		out = append(out, violation{file: path, location: location, message: skipped.Err.Error()})
	}
	for _, form := range result.Forms {
		if err := model.Usable(form); err != nil {
			out = append(out, violation{file: path, location: "form " + form.ID.String(), message: err.Error()})
		}
		if len(form.Sections) == 0 {
			out = append(out, violation{file: path, location: "form " + form.ID.String(), message: "form has no sections"})
		}
	}
	return out, nil
}

func printViolations(w io.Writer, violations []violation) {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(w, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
}
