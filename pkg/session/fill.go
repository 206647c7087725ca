package session

import (
	"context"

	"github.com/goliatone/go-dynforms/pkg/cache"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/responses"
	"github.com/goliatone/go-dynforms/pkg/store"
)

// Select activates a loaded form. Choosing a different form than the one in
// progress discards its answers and cached copy; re-selecting the active
// form keeps them.
func (s *Session) Select(id model.ID) error {
	if err := s.open(); err != nil {
		return err
	}
	s.schema.Lock()
	defer s.schema.Unlock()

	if _, err := s.store.Dispatch(store.Select{ID: id}); err != nil {
		return err
	}
	if s.responses.FormID() != id {
		s.coord.SwitchForm(id)
	}
	return nil
}

// Deselect drops the active form and its progress.
func (s *Session) Deselect() error {
	if err := s.open(); err != nil {
		return err
	}
	s.schema.Lock()
	defer s.schema.Unlock()

	if _, err := s.store.Dispatch(store.ClearSelection{}); err != nil {
		return err
	}
	s.coord.SwitchForm("")
	return nil
}

func (s *Session) question(sectionID, questionID model.ID) (model.Question, error) {
	if s.responses.FormID().IsZero() {
		return model.Question{}, responses.ErrNoSelection
	}
	form, ok := s.ActiveForm()
	if !ok {
		return model.Question{}, model.NotFound(model.KindForm, s.responses.FormID())
	}
	if _, ok := form.Section(sectionID); !ok {
		return model.Question{}, model.NotFound(model.KindSection, sectionID)
	}
	question, ok := form.Question(sectionID, questionID)
	if !ok {
		return model.Question{}, model.NotFound(model.KindQuestion, questionID)
	}
	return question, nil
}

// RecordAnswer stores value for a question of the active form. Text values
// given to radio and dropdown questions are treated as choices.
func (s *Session) RecordAnswer(sectionID, questionID model.ID, value responses.Answer) error {
	if err := s.open(); err != nil {
		return err
	}
	if question, err := s.question(sectionID, questionID); err == nil {
		value = responses.Retag(question, value)
	}
	return s.coord.RecordAnswer(sectionID, questionID, value)
}

// ToggleOption flips one checkbox option or selects a radio/dropdown option.
// The option's stored comment is kept while it stays selected.
func (s *Session) ToggleOption(sectionID, questionID model.ID, option string) error {
	edit, err := s.BeginChoice(sectionID, questionID, option)
	if err != nil {
		return err
	}
	return s.Confirm(edit, edit.Comment)
}

// RecordComment attaches text to a choice option. Blank text removes it.
func (s *Session) RecordComment(sectionID, questionID model.ID, option, text string) error {
	if err := s.open(); err != nil {
		return err
	}
	return s.coord.RecordComment(sectionID, questionID, option, text)
}

// BeginChoice opens a comment capture for option. Nothing is recorded until
// Confirm; dropping the edit or calling Cancel leaves both trees untouched.
func (s *Session) BeginChoice(sectionID, questionID model.ID, option string) (*responses.ChoiceEdit, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	question, err := s.question(sectionID, questionID)
	if err != nil {
		return nil, err
	}
	return s.responses.BeginChoice(sectionID, question, option)
}

// Confirm commits edit with comment attached to its option.
func (s *Session) Confirm(edit *responses.ChoiceEdit, comment string) error {
	if err := s.open(); err != nil {
		return err
	}
	return s.coord.Confirm(edit, comment)
}

// CommitChoice records a choice answer together with its option comments.
func (s *Session) CommitChoice(sectionID, questionID model.ID, value responses.Answer, comments map[string]string) error {
	if err := s.open(); err != nil {
		return err
	}
	if question, err := s.question(sectionID, questionID); err == nil {
		value = responses.Retag(question, value)
	}
	return s.coord.CommitChoice(sectionID, questionID, value, comments)
}

// Submit hands the answers to the sink, or keeps them cached when offline.
func (s *Session) Submit(ctx context.Context) (cache.Outcome, error) {
	if err := s.open(); err != nil {
		return cache.Outcome{}, err
	}
	return s.coord.Submit(ctx)
}

// Clear drops every answer and comment of the active form. The selection
// stays.
func (s *Session) Clear() error {
	if err := s.open(); err != nil {
		return err
	}
	s.coord.Clear()
	return nil
}

// Answer returns the recorded answer for a question.
func (s *Session) Answer(sectionID, questionID model.ID) (responses.Answer, bool) {
	return s.responses.Answer(sectionID, questionID)
}

// Comment returns the comment on one option.
func (s *Session) Comment(sectionID, questionID model.ID, option string) (string, bool) {
	return s.responses.Comment(sectionID, questionID, option)
}

// Snapshot copies the response state.
func (s *Session) Snapshot() responses.Snapshot {
	return s.responses.Snapshot()
}

// State returns the response lifecycle state.
func (s *Session) State() responses.State {
	return s.responses.State()
}

// MissingRequired lists required questions of the active form with no
// answer.
func (s *Session) MissingRequired() []responses.Ref {
	form, ok := s.ActiveForm()
	if !ok {
		return nil
	}
	return s.responses.MissingRequired(form)
}
