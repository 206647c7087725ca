package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-dynforms/pkg/cache"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/responses"
)

// Session is the subset of a fill session the filler drives.
type Session interface {
	RecordAnswer(sectionID, questionID model.ID, value responses.Answer) error
	CommitChoice(sectionID, questionID model.ID, value responses.Answer, comments map[string]string) error
	Answer(sectionID, questionID model.ID) (responses.Answer, bool)
	Comment(sectionID, questionID model.ID, option string) (string, bool)
	MissingRequired() []responses.Ref
	Submit(ctx context.Context) (cache.Outcome, error)
}

// Result summarises one Fill run.
type Result struct {
	Answered  int
	Submitted bool
	Outcome   cache.Outcome
}

// Filler walks a form question by question and records every answer through
// the session as soon as it is given, so an interrupted run keeps the
// progress made so far.
type Filler struct {
	session   Session
	driver    PromptDriver
	out       io.Writer
	theme     Theme
	askSubmit bool
}

// New constructs a filler with defaults (survey driver on stdout, submit
// prompt enabled).
func New(session Session, options ...Option) (*Filler, error) {
	if session == nil {
		return nil, ErrNoSession
	}
	f := &Filler{
		session:   session,
		theme:     DefaultTheme,
		askSubmit: true,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(f.output())
	}
	return f, nil
}

// Fill prompts for every question of form, then optionally submits.
func (f *Filler) Fill(ctx context.Context, form model.Form) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var result Result
	for _, section := range form.Sections {
		if err := f.info(ctx, f.theme.SectionPrefix+section.Title); err != nil {
			return result, err
		}
		for _, question := range section.Questions {
			answered, err := f.prompt(ctx, section.ID, question)
			if err != nil {
				return result, err
			}
			if answered {
				result.Answered++
			}
		}
	}

	if !f.askSubmit {
		return result, nil
	}
	return f.submit(ctx, result)
}

func (f *Filler) prompt(ctx context.Context, sectionID model.ID, question model.Question) (bool, error) {
	switch question.Type {
	case model.TypeRadio, model.TypeDropdown:
		return f.promptChoice(ctx, sectionID, question)
	case model.TypeCheckbox:
		return f.promptMulti(ctx, sectionID, question)
	default:
		return f.promptText(ctx, sectionID, question)
	}
}

func (f *Filler) promptText(ctx context.Context, sectionID model.ID, question model.Question) (bool, error) {
	label := displayLabel(question)
	current := ""
	if answer, ok := f.session.Answer(sectionID, question.ID); ok {
		if text, ok := answer.(responses.Text); ok {
			current = string(text)
		}
	}

	for {
		var response string
		var err error
		if question.Type == model.TypeTextarea {
			response, err = f.driver.TextArea(ctx, TextAreaConfig{
				Message: label,
				Default: current,
				Help:    question.Placeholder,
			})
		} else {
			response, err = f.driver.Input(ctx, InputConfig{
				Message:     label,
				Default:     current,
				Help:        formatHint(question.Type),
				Placeholder: question.Placeholder,
				Validator:   func(raw string) error { return checkText(question, raw) },
			})
		}
		if err != nil {
			return false, err
		}

		if err := checkText(question, response); err != nil {
			_ = f.info(ctx, fmt.Sprintf("%sInvalid %s: %v", f.theme.ErrorPrefix, question.Label, err))
			continue
		}
		value := strings.TrimSpace(response)
		if value == "" && current == "" {
			return false, nil
		}
		if err := f.session.RecordAnswer(sectionID, question.ID, responses.Text(value)); err != nil {
			return false, fmt.Errorf("tui: record %s: %w", question.ID, err)
		}
		return value != "", nil
	}
}

func (f *Filler) promptChoice(ctx context.Context, sectionID model.ID, question model.Question) (bool, error) {
	defaultIdx := -1
	if answer, ok := f.session.Answer(sectionID, question.ID); ok {
		if selected := responses.Selected(answer); len(selected) == 1 {
			defaultIdx = indexOf(question.Options, selected[0])
		}
	}

	idx, err := f.driver.Select(ctx, SelectConfig{
		Message:      displayLabel(question),
		Options:      question.Options,
		DefaultIndex: defaultIdx,
	})
	if err != nil {
		return false, err
	}
	if idx < 0 || idx >= len(question.Options) {
		return false, fmt.Errorf("tui: %s: selection out of range", question.ID)
	}
	option := question.Options[idx]

	comments, err := f.captureComments(ctx, sectionID, question, []string{option})
	if err != nil {
		return false, err
	}
	if err := f.session.CommitChoice(sectionID, question.ID, responses.Choice(option), comments); err != nil {
		return false, fmt.Errorf("tui: record %s: %w", question.ID, err)
	}
	return true, nil
}

func (f *Filler) promptMulti(ctx context.Context, sectionID model.ID, question model.Question) (bool, error) {
	var defaults []int
	if answer, ok := f.session.Answer(sectionID, question.ID); ok {
		for _, value := range responses.Selected(answer) {
			if idx := indexOf(question.Options, value); idx >= 0 {
				defaults = append(defaults, idx)
			}
		}
	}

	for {
		picked, err := f.driver.MultiSelect(ctx, SelectConfig{
			Message:  displayLabel(question),
			Options:  question.Options,
			Defaults: defaults,
		})
		if err != nil {
			return false, err
		}
		if len(picked) == 0 && question.Required {
			_ = f.info(ctx, fmt.Sprintf("%sInvalid %s: %v", f.theme.ErrorPrefix, question.Label, errRequired))
			continue
		}

		selected := defaultsFromIndices(question.Options, picked)
		comments, err := f.captureComments(ctx, sectionID, question, selected)
		if err != nil {
			return false, err
		}
		if err := f.session.CommitChoice(sectionID, question.ID, responses.NewMultiChoice(selected...), comments); err != nil {
			return false, fmt.Errorf("tui: record %s: %w", question.ID, err)
		}
		return len(selected) > 0, nil
	}
}

// captureComments asks for an optional comment on each selected option.
// Existing comments are offered as defaults and kept unless replaced.
func (f *Filler) captureComments(ctx context.Context, sectionID model.ID, question model.Question, selected []string) (map[string]string, error) {
	comments := make(map[string]string, len(selected))
	for _, option := range selected {
		existing, has := f.session.Comment(sectionID, question.ID, option)
		add, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add a comment for %q?", option),
			Default: has,
		})
		if err != nil {
			return nil, err
		}
		if !add {
			continue
		}
		text, err := f.driver.Input(ctx, InputConfig{
			Message: fmt.Sprintf("Comment for %q", option),
			Default: existing,
		})
		if err != nil {
			return nil, err
		}
		if text = strings.TrimSpace(text); text != "" {
			comments[option] = text
		}
	}
	return comments, nil
}

func (f *Filler) submit(ctx context.Context, result Result) (Result, error) {
	message := "Submit your answers?"
	defaultSubmit := true
	if missing := f.session.MissingRequired(); len(missing) > 0 {
		labels := make([]string, 0, len(missing))
		for _, ref := range missing {
			labels = append(labels, ref.Label)
		}
		_ = f.info(ctx, fmt.Sprintf("%sUnanswered required questions: %s", f.theme.ErrorPrefix, strings.Join(labels, ", ")))
		message = "Submit anyway?"
		defaultSubmit = false
	}

	ok, err := f.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: defaultSubmit})
	if err != nil {
		return result, err
	}
	if !ok {
		_ = f.info(ctx, f.theme.InfoPrefix+"Answers saved. Run fill again to continue.")
		return result, nil
	}

	outcome, err := f.session.Submit(ctx)
	if err != nil {
		_ = f.info(ctx, fmt.Sprintf("%sSubmission failed: %v", f.theme.ErrorPrefix, err))
		return result, fmt.Errorf("tui: submit: %w", err)
	}
	result.Submitted = true
	result.Outcome = outcome
	if outcome.Notice != "" {
		_ = f.info(ctx, f.theme.InfoPrefix+outcome.Notice)
	} else {
		_ = f.info(ctx, f.theme.InfoPrefix+"Submitted.")
	}
	return result, nil
}

func (f *Filler) info(ctx context.Context, msg string) error {
	return f.driver.Info(ctx, msg)
}

func (f *Filler) output() io.Writer {
	if f.out != nil {
		return f.out
	}
	return os.Stdout
}

func displayLabel(question model.Question) string {
	if question.Required {
		return question.Label + " *"
	}
	return question.Label
}
