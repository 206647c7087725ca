package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-dynforms/pkg/catalog"
)

var formsCmd = &cobra.Command{
	Use:   "forms",
	Short: "List the forms in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, src, err := catalogFor(cfg)
		if err != nil {
			return err
		}
		fetcher := catalog.NewFetcher(loader, src, catalog.WithLogger(logger.Named("catalog")))
		result, err := fetcher.Fetch(cmd.Context())
		if err != nil {
			return err
		}
		return printForms(cmd.OutOrStdout(), result)
	},
}

func printForms(out io.Writer, result catalog.Result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSECTIONS\tQUESTIONS")
	for _, form := range result.Forms {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", form.ID, form.Title, len(form.Sections), form.QuestionCount())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if n := len(result.Skipped); n > 0 {
		_, err := fmt.Fprintf(out, "%d malformed entries skipped\n", n)
		return err
	}
	return nil
}
