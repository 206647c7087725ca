package session

import (
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/mutate"
	"github.com/goliatone/go-dynforms/pkg/store"
)

// CreateForm adds an empty form and selects it.
func (s *Session) CreateForm(title string) (model.Form, error) {
	if err := s.open(); err != nil {
		return model.Form{}, err
	}
	s.schema.Lock()
	defer s.schema.Unlock()

	form, err := s.mutate.NewForm(title)
	if err != nil {
		return model.Form{}, err
	}
	if _, err := s.store.Dispatch(store.AddForm{Form: form}); err != nil {
		return model.Form{}, err
	}
	s.coord.SwitchForm(form.ID)
	return form, nil
}

// AddSection appends a section to a form.
func (s *Session) AddSection(formID model.ID, title string) (model.Section, error) {
	form, err := s.edit(formID, func(e *mutate.Engine, f model.Form) (model.Form, error) {
		return e.AddSection(f, title)
	}, nil)
	if err != nil {
		return model.Section{}, err
	}
	return form.Sections[len(form.Sections)-1], nil
}

// AddQuestion appends a question to a section.
func (s *Session) AddQuestion(formID, sectionID model.ID, typ model.QuestionType, label string) (model.Question, error) {
	form, err := s.edit(formID, func(e *mutate.Engine, f model.Form) (model.Form, error) {
		return e.AddQuestion(f, sectionID, typ, label)
	}, nil)
	if err != nil {
		return model.Question{}, err
	}
	section, _ := form.Section(sectionID)
	return section.Questions[len(section.Questions)-1], nil
}

// UpdateQuestion applies patch. Changing the type of an answered question
// on the active form requires patch.ForceClear and discards that question's
// answer and comments.
func (s *Session) UpdateQuestion(formID, sectionID, questionID model.ID, patch mutate.Patch) (model.Question, error) {
	retyped := false
	form, err := s.edit(formID, func(e *mutate.Engine, f model.Form) (model.Form, error) {
		before, _ := f.Question(sectionID, questionID)
		next, err := e.UpdateQuestion(f, sectionID, questionID, patch)
		if err != nil {
			return model.Form{}, err
		}
		after, _ := next.Question(sectionID, questionID)
		retyped = after.Type != before.Type
		return next, nil
	}, func() bool {
		return retyped && s.responses.DiscardQuestion(sectionID, questionID)
	})
	if err != nil {
		return model.Question{}, err
	}
	question, _ := form.Question(sectionID, questionID)
	return question, nil
}

// RemoveQuestion drops a question and any answer to it.
func (s *Session) RemoveQuestion(formID, sectionID, questionID model.ID) error {
	_, err := s.edit(formID, func(e *mutate.Engine, f model.Form) (model.Form, error) {
		return e.RemoveQuestion(f, sectionID, questionID)
	}, nil)
	return err
}

// AddOption appends an option to a choice question.
func (s *Session) AddOption(formID, sectionID, questionID model.ID, option string) (model.Question, error) {
	form, err := s.edit(formID, func(e *mutate.Engine, f model.Form) (model.Form, error) {
		return e.AddOption(f, sectionID, questionID, option)
	}, nil)
	if err != nil {
		return model.Question{}, err
	}
	question, _ := form.Question(sectionID, questionID)
	return question, nil
}

// RemoveOption drops an option. Selections of it are reconciled away.
func (s *Session) RemoveOption(formID, sectionID, questionID model.ID, option string) (model.Question, error) {
	form, err := s.edit(formID, func(e *mutate.Engine, f model.Form) (model.Form, error) {
		return e.RemoveOption(f, sectionID, questionID, option)
	}, nil)
	if err != nil {
		return model.Question{}, err
	}
	question, _ := form.Question(sectionID, questionID)
	return question, nil
}

// edit runs apply against the stored form and, when it is the active form,
// runs discard then reconciles and persists.
func (s *Session) edit(formID model.ID, apply func(*mutate.Engine, model.Form) (model.Form, error), discard func() bool) (model.Form, error) {
	if err := s.open(); err != nil {
		return model.Form{}, err
	}
	s.schema.Lock()
	defer s.schema.Unlock()

	engine := s.mutate.WithGuard(mutate.GuardFunc(func(sectionID, questionID model.ID) bool {
		return s.responses.FormID() == formID && s.responses.HasResponse(sectionID, questionID)
	}))
	state, err := s.store.Dispatch(store.EditForm{ID: formID, Apply: func(f model.Form) (model.Form, error) {
		return apply(engine, f)
	}})
	if err != nil {
		return model.Form{}, err
	}
	form, _ := state.Form(formID)
	if formID == s.responses.FormID() {
		dirty := discard != nil && discard()
		s.settleLocked(form, dirty)
	}
	return form, nil
}
