package model

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// CleanText trims s and strips any markup. Plain text passes through
// unchanged; entities produced by the sanitizer are decoded again so labels
// such as "R&D" survive.
func CleanText(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	if !strings.ContainsAny(trimmed, "<>&") {
		return trimmed
	}
	cleaned := html.UnescapeString(textSanitizer().Sanitize(trimmed))
	return strings.TrimSpace(cleaned)
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// CleanOptions cleans every option and drops blank entries.
func CleanOptions(options []string) []string {
	if len(options) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(options))
	for _, option := range options {
		if cleaned := CleanText(option); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}

// NormalizeQuestion applies the option invariant and cleans free text.
func NormalizeQuestion(q Question) Question {
	q.Label = CleanText(q.Label)
	q.Placeholder = CleanText(q.Placeholder)
	if q.Type.IsChoice() {
		q.Options = CleanOptions(q.Options)
	} else {
		q.Options = []string{}
	}
	return q
}

// Normalize returns a deep copy of form with cleaned text and the option
// invariant applied to every question.
func Normalize(form Form) Form {
	out := Form{
		ID:       form.ID,
		Title:    CleanText(form.Title),
		Sections: make([]Section, 0, len(form.Sections)),
	}
	for _, section := range form.Sections {
		next := Section{
			ID:        section.ID,
			Title:     CleanText(section.Title),
			Questions: make([]Question, 0, len(section.Questions)),
		}
		for _, question := range section.Questions {
			next.Questions = append(next.Questions, NormalizeQuestion(question))
		}
		out.Sections = append(out.Sections, next)
	}
	return out
}

// CheckIdentity verifies that every level carries an id, ids are unique
// within their parent, and every question type is declared.
func CheckIdentity(form Form) error {
	if form.ID.IsZero() {
		return Invalid("id", "form id is required")
	}
	sections := make(map[ID]struct{}, len(form.Sections))
	for sIdx, section := range form.Sections {
		if section.ID.IsZero() {
			return Invalid(fmt.Sprintf("sections[%d].id", sIdx), "section id is required")
		}
		if _, dup := sections[section.ID]; dup {
			return Invalid(fmt.Sprintf("sections[%d].id", sIdx), fmt.Sprintf("duplicate section id %q", section.ID))
		}
		sections[section.ID] = struct{}{}

		questions := make(map[ID]struct{}, len(section.Questions))
		for qIdx, question := range section.Questions {
			path := fmt.Sprintf("sections[%d].questions[%d]", sIdx, qIdx)
			if question.ID.IsZero() {
				return Invalid(path+".id", "question id is required")
			}
			if _, dup := questions[question.ID]; dup {
				return Invalid(path+".id", fmt.Sprintf("duplicate question id %q", question.ID))
			}
			questions[question.ID] = struct{}{}
			if !question.Type.Valid() {
				return Invalid(path+".type", fmt.Sprintf("unknown question type %q", question.Type))
			}
		}
	}
	return nil
}

// Usable reports whether the form can be filled: every choice question needs
// at least one non-blank option.
func Usable(form Form) error {
	for _, section := range form.Sections {
		for _, question := range section.Questions {
			if !question.Type.IsChoice() {
				continue
			}
			hasOption := false
			for _, option := range question.Options {
				if strings.TrimSpace(option) != "" {
					hasOption = true
					break
				}
			}
			if !hasOption {
				return Invalid(
					fmt.Sprintf("%s.%s.options", section.ID, question.ID),
					"choice question needs at least one option",
				)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of form.
func (f Form) Clone() Form {
	out := Form{ID: f.ID, Title: f.Title}
	if f.Sections != nil {
		out.Sections = make([]Section, len(f.Sections))
		for idx, section := range f.Sections {
			out.Sections[idx] = section.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of s.
func (s Section) Clone() Section {
	out := Section{ID: s.ID, Title: s.Title}
	if s.Questions != nil {
		out.Questions = make([]Question, len(s.Questions))
		for idx, question := range s.Questions {
			out.Questions[idx] = question.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = make([]string, len(q.Options))
		copy(out.Options, q.Options)
	}
	return out
}
