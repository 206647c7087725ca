package mutate

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-dynforms/pkg/model"
)

// DefaultChoiceOptions seeds new choice questions.
var DefaultChoiceOptions = []string{"Option 1", "Option 2"}

// ResponseGuard reports whether a live session holds a non-empty answer for
// the question. It is consulted before a type change.
type ResponseGuard interface {
	HasResponse(sectionID, questionID model.ID) bool
}

// GuardFunc adapts a function into a ResponseGuard.
type GuardFunc func(sectionID, questionID model.ID) bool

// HasResponse calls the underlying function.
func (fn GuardFunc) HasResponse(sectionID, questionID model.ID) bool {
	return fn(sectionID, questionID)
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDGenerator overrides id minting.
func WithIDGenerator(next func() model.ID) Option {
	return func(e *Engine) {
		if next != nil {
			e.nextID = next
		}
	}
}

// WithGuard installs the guard consulted before type changes.
func WithGuard(guard ResponseGuard) Option {
	return func(e *Engine) {
		e.guard = guard
	}
}

// Engine applies schema edits. The zero value is not usable; call New.
type Engine struct {
	nextID func() model.ID
	guard  ResponseGuard
}

// New constructs an Engine.
func New(options ...Option) *Engine {
	e := &Engine{
		nextID: func() model.ID { return model.ID(uuid.NewString()) },
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// WithGuard returns a copy of the engine that consults guard. The session
// uses it to bind the engine to its live responses per edit.
func (e *Engine) WithGuard(guard ResponseGuard) *Engine {
	clone := *e
	clone.guard = guard
	return &clone
}

// NewForm creates an empty form with a fresh id.
func (e *Engine) NewForm(title string) (model.Form, error) {
	cleaned := model.CleanText(title)
	if cleaned == "" {
		return model.Form{}, model.Invalid("title", "form title is required")
	}
	return model.Form{
		ID:       e.nextID(),
		Title:    cleaned,
		Sections: []model.Section{},
	}, nil
}

// AddSection appends an empty section to form.
func (e *Engine) AddSection(form model.Form, title string) (model.Form, error) {
	cleaned := model.CleanText(title)
	if cleaned == "" {
		return model.Form{}, model.Invalid("sectionTitle", "section title is required")
	}

	out := form.Clone()
	out.Sections = append(out.Sections, model.Section{
		ID:        e.nextID(),
		Title:     cleaned,
		Questions: []model.Question{},
	})
	return out, nil
}

// AddQuestion appends a question of the given type to the named section.
// Choice types are seeded with DefaultChoiceOptions. A blank label falls
// back to "<type> field".
func (e *Engine) AddQuestion(form model.Form, sectionID model.ID, typ model.QuestionType, label string) (model.Form, error) {
	if !typ.Valid() {
		return model.Form{}, model.Invalid("type", fmt.Sprintf("unknown question type %q", typ))
	}
	sIdx := form.SectionIndex(sectionID)
	if sIdx < 0 {
		return model.Form{}, model.NotFound(model.KindSection, sectionID)
	}

	cleaned := model.CleanText(label)
	if cleaned == "" {
		cleaned = fmt.Sprintf("%s field", typ)
	}

	question := model.Question{
		ID:      e.nextID(),
		Label:   cleaned,
		Type:    typ,
		Options: []string{},
	}
	if typ.IsChoice() {
		question.Options = append([]string(nil), DefaultChoiceOptions...)
	}

	out := form.Clone()
	section := &out.Sections[sIdx]
	section.Questions = append(section.Questions, question)
	return out, nil
}

// Patch carries replacement values for a question's mutable fields. Nil
// fields are preserved.
type Patch struct {
	Label       *string
	Placeholder *string
	Required    *bool
	Options     []string
	// SetOptions distinguishes an explicit empty option list from "no change".
	SetOptions bool
	Type       *model.QuestionType
	// ForceClear permits a type change while responses exist; the caller is
	// expected to discard those responses.
	ForceClear bool
}

// PatchFrom builds a patch carrying every mutable field of q.
func PatchFrom(q model.Question) Patch {
	label := q.Label
	placeholder := q.Placeholder
	required := q.Required
	typ := q.Type
	return Patch{
		Label:       &label,
		Placeholder: &placeholder,
		Required:    &required,
		Options:     append([]string(nil), q.Options...),
		SetOptions:  true,
		Type:        &typ,
	}
}

// UpdateQuestion applies patch to the identified question.
func (e *Engine) UpdateQuestion(form model.Form, sectionID, questionID model.ID, patch Patch) (model.Form, error) {
	sIdx, qIdx := form.QuestionIndex(sectionID, questionID)
	if sIdx < 0 {
		return model.Form{}, model.NotFound(model.KindSection, sectionID)
	}
	if qIdx < 0 {
		return model.Form{}, model.NotFound(model.KindQuestion, questionID)
	}

	current := form.Sections[sIdx].Questions[qIdx]
	next, err := e.applyPatch(sectionID, current, patch)
	if err != nil {
		return model.Form{}, err
	}

	out := form.Clone()
	out.Sections[sIdx].Questions[qIdx] = next
	return out, nil
}

func (e *Engine) applyPatch(sectionID model.ID, current model.Question, patch Patch) (model.Question, error) {
	next := current.Clone()

	if patch.Type != nil && *patch.Type != current.Type {
		typ := *patch.Type
		if !typ.Valid() {
			return model.Question{}, model.Invalid("type", fmt.Sprintf("unknown question type %q", typ))
		}
		if !patch.ForceClear && e.guard != nil && e.guard.HasResponse(sectionID, current.ID) {
			return model.Question{}, model.Invalid("type", "question has recorded responses; force clear to change its type")
		}
		next.Type = typ
	}
	if patch.Label != nil && *patch.Label != current.Label {
		label := model.CleanText(*patch.Label)
		if label == "" {
			return model.Question{}, model.Invalid("label", "label is required")
		}
		next.Label = label
	}
	if patch.Placeholder != nil && *patch.Placeholder != current.Placeholder {
		next.Placeholder = model.CleanText(*patch.Placeholder)
	}
	if patch.Required != nil {
		next.Required = *patch.Required
	}
	if patch.SetOptions || patch.Options != nil {
		next.Options = model.CleanOptions(patch.Options)
	}

	switch {
	case !next.Type.IsChoice():
		next.Options = []string{}
	case len(next.Options) == 0 && !current.Type.IsChoice():
		next.Options = append([]string(nil), DefaultChoiceOptions...)
	}
	if next.Options == nil {
		next.Options = []string{}
	}
	if sameOptions(next.Options, current.Options) {
		next.Options = current.Clone().Options
	}
	return next, nil
}

// sameOptions treats nil and empty lists as equal.
func sameOptions(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for idx := range a {
		if a[idx] != b[idx] {
			return false
		}
	}
	return true
}

// RemoveQuestion drops the identified question.
func (e *Engine) RemoveQuestion(form model.Form, sectionID, questionID model.ID) (model.Form, error) {
	sIdx, qIdx := form.QuestionIndex(sectionID, questionID)
	if sIdx < 0 {
		return model.Form{}, model.NotFound(model.KindSection, sectionID)
	}
	if qIdx < 0 {
		return model.Form{}, model.NotFound(model.KindQuestion, questionID)
	}

	out := form.Clone()
	questions := out.Sections[sIdx].Questions
	out.Sections[sIdx].Questions = append(questions[:qIdx:qIdx], questions[qIdx+1:]...)
	return out, nil
}

// AddOption appends an option to a choice question.
func (e *Engine) AddOption(form model.Form, sectionID, questionID model.ID, option string) (model.Form, error) {
	question, err := lookup(form, sectionID, questionID)
	if err != nil {
		return model.Form{}, err
	}
	if !question.Type.IsChoice() {
		return model.Form{}, model.Invalid("options", fmt.Sprintf("%s questions do not take options", question.Type))
	}
	cleaned := model.CleanText(option)
	if cleaned == "" {
		return model.Form{}, model.Invalid("option", "option is required")
	}
	if question.HasOption(cleaned) {
		return model.Form{}, model.Invalid("option", fmt.Sprintf("option %q already exists", cleaned))
	}
	options := append(append([]string(nil), question.Options...), cleaned)
	return e.UpdateQuestion(form, sectionID, questionID, Patch{Options: options, SetOptions: true})
}

// RemoveOption drops an option from a choice question. The last remaining
// option cannot be removed.
func (e *Engine) RemoveOption(form model.Form, sectionID, questionID model.ID, option string) (model.Form, error) {
	question, err := lookup(form, sectionID, questionID)
	if err != nil {
		return model.Form{}, err
	}
	if !question.HasOption(option) {
		return model.Form{}, model.Invalid("option", fmt.Sprintf("option %q not found", option))
	}
	options := make([]string, 0, len(question.Options))
	for _, candidate := range question.Options {
		if candidate != option {
			options = append(options, candidate)
		}
	}
	if len(options) == 0 {
		return model.Form{}, model.Invalid("options", "choice question needs at least one option")
	}
	return e.UpdateQuestion(form, sectionID, questionID, Patch{Options: options, SetOptions: true})
}

// ReplaceForm returns a copy of forms with the entry matching form.ID
// replaced.
func ReplaceForm(forms []model.Form, form model.Form) ([]model.Form, error) {
	out := make([]model.Form, len(forms))
	found := false
	for idx, candidate := range forms {
		if candidate.ID == form.ID {
			out[idx] = form
			found = true
			continue
		}
		out[idx] = candidate
	}
	if !found {
		return nil, model.NotFound(model.KindForm, form.ID)
	}
	return out, nil
}

func lookup(form model.Form, sectionID, questionID model.ID) (model.Question, error) {
	section, ok := form.Section(sectionID)
	if !ok {
		return model.Question{}, model.NotFound(model.KindSection, sectionID)
	}
	question, ok := section.Question(questionID)
	if !ok {
		return model.Question{}, model.NotFound(model.KindQuestion, questionID)
	}
	return question, nil
}

// SplitOptions turns a one-option-per-line text block into options, the
// format builder surfaces use to edit choice lists.
func SplitOptions(block string) []string {
	return model.CleanOptions(strings.Split(block, "\n"))
}
