package responses

import (
	"sync"

	"github.com/goliatone/go-dynforms/pkg/model"
)

// State is the lifecycle position of the response engine.
type State int

const (
	StateEmpty State = iota
	StateEditing
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateEditing:
		return "editing"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// SchemaSource resolves the form answers are validated against. A form the
// source does not know is accepted unvalidated.
type SchemaSource interface {
	Form(id model.ID) (model.Form, bool)
}

// SchemaFunc adapts a function into a SchemaSource.
type SchemaFunc func(id model.ID) (model.Form, bool)

// Form calls the underlying function.
func (fn SchemaFunc) Form(id model.ID) (model.Form, bool) {
	return fn(id)
}

// Option configures an Engine.
type Option func(*Engine)

// WithSchema validates answers against the forms src returns.
func WithSchema(src SchemaSource) Option {
	return func(e *Engine) {
		e.schema = src
	}
}

// Snapshot is a copy of the engine state.
type Snapshot struct {
	FormID    model.ID
	State     State
	Responses Tree
	Comments  Comments
}

// Ref points at one question.
type Ref struct {
	SectionID  model.ID
	QuestionID model.ID
	Label      string
}

// Engine owns the answer and comment trees for the active form. It is safe
// for concurrent use; readers always receive copies.
type Engine struct {
	mu         sync.RWMutex
	schema     SchemaSource
	formID     model.ID
	state      State
	tree       Tree
	comments   Comments
	generation uint64
}

// New constructs an empty Engine.
func New(options ...Option) *Engine {
	e := &Engine{
		tree:     Tree{},
		comments: Comments{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// FormID returns the active form id, zero when none is selected.
func (e *Engine) FormID() model.ID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.formID
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// RecordAnswer stores value for the question, replacing any prior answer.
// Multi-choice values are normalised to a sorted set; an empty set is kept
// as a present answer.
func (e *Engine) RecordAnswer(sectionID, questionID model.ID, value Answer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	question, err := e.editableLocked(sectionID, questionID)
	if err != nil {
		return err
	}
	value, err = e.checkLocked(question, value)
	if err != nil {
		return err
	}
	e.tree.set(sectionID, questionID, value)
	e.state = StateEditing
	return nil
}

// RecordComment attaches text to one option of a choice question. Blank text
// removes the comment.
func (e *Engine) RecordComment(sectionID, questionID model.ID, option, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	question, err := e.editableLocked(sectionID, questionID)
	if err != nil {
		return err
	}
	if err := checkCommentOption(question, option); err != nil {
		return err
	}
	e.applyComment(sectionID, questionID, option, text)
	e.state = StateEditing
	return nil
}

// CommitChoice records a choice answer and its option comments in one step.
// Comments on options the answer does not select are dropped. Validation
// failures leave both trees untouched.
func (e *Engine) CommitChoice(sectionID, questionID model.ID, value Answer, comments map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitChoiceLocked(sectionID, questionID, value, comments)
}

func (e *Engine) commitChoiceLocked(sectionID, questionID model.ID, value Answer, comments map[string]string) error {
	question, err := e.editableLocked(sectionID, questionID)
	if err != nil {
		return err
	}
	value, err = e.checkLocked(question, value)
	if err != nil {
		return err
	}
	if value.Kind() == KindText {
		return model.Invalid(string(questionID), "comments apply to choice questions only")
	}
	selected := Selected(value)
	for option := range comments {
		if err := checkCommentOption(question, option); err != nil {
			return err
		}
		if !contains(selected, option) {
			return model.Invalid(string(questionID), "comment targets an option that is not selected: "+option)
		}
	}

	e.tree.set(sectionID, questionID, value)
	e.comments.keepOnly(sectionID, questionID, selected)
	for option, text := range comments {
		e.applyComment(sectionID, questionID, option, text)
	}
	e.state = StateEditing
	return nil
}

// ChoiceEdit is an open comment capture for one option. Nothing is stored
// until Confirm.
type ChoiceEdit struct {
	engine     *Engine
	generation uint64
	closed     bool

	SectionID  model.ID
	QuestionID model.ID
	Option     string
	// Answer is the value Confirm will record.
	Answer Answer
	// Selected reports whether Option is selected once confirmed.
	Selected bool
	// Comment is the comment currently stored for Option.
	Comment string
}

// BeginChoice opens a capture for selecting or toggling option on question.
// Checkbox questions toggle membership; radio and dropdown questions select
// the option outright.
func (e *Engine) BeginChoice(sectionID model.ID, question model.Question, option string) (*ChoiceEdit, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.formID.IsZero() {
		return nil, ErrNoSelection
	}
	if e.state == StateSubmitted {
		return nil, ErrSubmitted
	}
	if !question.Type.IsChoice() {
		return nil, model.Invalid(string(question.ID), "not a choice question")
	}
	if err := checkCommentOption(&question, option); err != nil {
		return nil, err
	}

	edit := &ChoiceEdit{
		engine:     e,
		generation: e.generation,
		SectionID:  sectionID,
		QuestionID: question.ID,
		Option:     option,
		Selected:   true,
	}
	current, _ := e.tree.Get(sectionID, question.ID)
	if question.Type.IsMulti() {
		set, _ := current.(MultiChoice)
		next := Toggle(set, option)
		edit.Answer = next
		edit.Selected = next.Contains(option)
	} else {
		edit.Answer = Choice(option)
	}
	edit.Comment, _ = e.comments.Get(sectionID, question.ID, option)
	return edit, nil
}

// Confirm commits the answer with comment attached to the option. A
// deselected option loses its comment regardless of the text passed.
func (c *ChoiceEdit) Confirm(comment string) error {
	if c.closed {
		return ErrEditClosed
	}
	e := c.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.generation != e.generation {
		c.closed = true
		return ErrStaleEdit
	}

	var comments map[string]string
	if c.Selected {
		comments = map[string]string{c.Option: comment}
	}
	if err := e.commitChoiceLocked(c.SectionID, c.QuestionID, c.Answer, comments); err != nil {
		return err
	}
	c.closed = true
	return nil
}

// Cancel discards the capture. Neither tree changes.
func (c *ChoiceEdit) Cancel() {
	c.closed = true
}

// Submit marks the current answers final. Submitting an empty form is
// allowed; resubmitting is idempotent.
func (e *Engine) Submit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.formID.IsZero() {
		return ErrNoSelection
	}
	e.state = StateSubmitted
	return nil
}

// Clear drops all answers and comments and returns to Empty. The active
// form is kept.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// SwitchForm makes id the active form and discards every answer and comment.
func (e *Engine) SwitchForm(id model.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.formID = id
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.tree = Tree{}
	e.comments = Comments{}
	e.state = StateEmpty
	e.generation++
}

// Answer reads one answer.
func (e *Engine) Answer(sectionID, questionID model.ID) (Answer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	answer, ok := e.tree.Get(sectionID, questionID)
	if !ok {
		return nil, false
	}
	return answer.clone(), true
}

// Comment reads the comment on one option.
func (e *Engine) Comment(sectionID, questionID model.ID, option string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.comments.Get(sectionID, questionID, option)
}

// Responses returns a copy of the answer tree.
func (e *Engine) Responses() Tree {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tree.Clone()
}

// Comments returns a copy of the comment tree.
func (e *Engine) Comments() Comments {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.comments.Clone()
}

// Snapshot copies the full engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		FormID:    e.formID,
		State:     e.state,
		Responses: e.tree.Clone(),
		Comments:  e.comments.Clone(),
	}
}

// Restore replaces the engine state with a persisted snapshot. Answers are
// retagged and reconciled against the schema when the form is known. The
// resulting state is Editing when anything survived, Empty otherwise; a
// restored session is never Submitted.
func (e *Engine) Restore(snapshot Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.formID = snapshot.FormID
	e.tree = snapshot.Responses.Clone()
	e.comments = snapshot.Comments.Clone()
	e.generation++
	if form, ok := e.formLocked(); ok {
		e.tree = e.tree.Retag(form)
		e.reconcileLocked(form)
	}
	e.state = StateEmpty
	if e.tree.Len() > 0 || e.comments.Len() > 0 {
		e.state = StateEditing
	}
}

// HasResponse reports a non-empty answer for the question in the active
// form.
func (e *Engine) HasResponse(sectionID, questionID model.ID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	answer, ok := e.tree.Get(sectionID, questionID)
	return ok && !answer.IsEmpty()
}

// DiscardQuestion removes the answer and comments for one question. It
// reports whether anything was removed.
func (e *Engine) DiscardQuestion(sectionID, questionID model.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	removedAnswer := e.tree.remove(sectionID, questionID)
	removedComments := e.comments.removeQuestion(sectionID, questionID)
	e.settleLocked()
	return removedAnswer || removedComments
}

// Reconcile drops answers and comments form no longer supports: unknown
// sections and questions, variants that no longer match the question type,
// and choice values outside the option list. It is a no-op for any form
// other than the active one and reports whether anything changed.
func (e *Engine) Reconcile(form model.Form) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if form.ID != e.formID || e.formID.IsZero() {
		return false
	}
	changed := e.reconcileLocked(form)
	e.settleLocked()
	return changed
}

func (e *Engine) reconcileLocked(form model.Form) bool {
	changed := false
	for sectionID, questions := range e.tree {
		for questionID, answer := range questions {
			question, ok := form.Question(sectionID, questionID)
			if !ok {
				e.tree.remove(sectionID, questionID)
				changed = true
				continue
			}
			answer = Retag(question, answer)
			switch typed := answer.(type) {
			case MultiChoice:
				if question.Type != model.TypeCheckbox {
					e.tree.remove(sectionID, questionID)
					changed = true
					continue
				}
				kept := make([]string, 0, len(typed))
				for _, value := range typed {
					if question.HasOption(value) {
						kept = append(kept, value)
					}
				}
				if len(kept) != len(typed) {
					changed = true
				}
				questions[questionID] = NewMultiChoice(kept...)
			default:
				if Check(question, answer) != nil {
					e.tree.remove(sectionID, questionID)
					changed = true
					continue
				}
				questions[questionID] = answer
			}
		}
	}

	for sectionID, questions := range e.comments {
		for questionID := range questions {
			question, ok := form.Question(sectionID, questionID)
			if !ok || !question.Type.IsChoice() {
				e.comments.removeQuestion(sectionID, questionID)
				changed = true
				continue
			}
			if e.comments.keepOnly(sectionID, questionID, question.Options) {
				changed = true
			}
		}
	}
	return changed
}

// MissingRequired lists required questions in form without a non-empty
// answer, in form order.
func (e *Engine) MissingRequired(form model.Form) []Ref {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var missing []Ref
	for _, section := range form.Sections {
		for _, question := range section.Questions {
			if !question.Required {
				continue
			}
			answer, ok := e.tree.Get(section.ID, question.ID)
			if ok && !answer.IsEmpty() {
				continue
			}
			missing = append(missing, Ref{
				SectionID:  section.ID,
				QuestionID: question.ID,
				Label:      question.Label,
			})
		}
	}
	return missing
}

func (e *Engine) editableLocked(sectionID, questionID model.ID) (*model.Question, error) {
	if e.formID.IsZero() {
		return nil, ErrNoSelection
	}
	if e.state == StateSubmitted {
		return nil, ErrSubmitted
	}
	form, ok := e.formLocked()
	if !ok {
		return nil, nil
	}
	if _, ok := form.Section(sectionID); !ok {
		return nil, model.NotFound(model.KindSection, sectionID)
	}
	question, ok := form.Question(sectionID, questionID)
	if !ok {
		return nil, model.NotFound(model.KindQuestion, questionID)
	}
	return &question, nil
}

func (e *Engine) formLocked() (model.Form, bool) {
	if e.schema == nil || e.formID.IsZero() {
		return model.Form{}, false
	}
	return e.schema.Form(e.formID)
}

// checkLocked normalises value and validates it when the schema is known.
func (e *Engine) checkLocked(question *model.Question, value Answer) (Answer, error) {
	if value == nil {
		return nil, model.Invalid("answer", "answer is required")
	}
	value = value.clone()
	if question == nil {
		return value, nil
	}
	value = Retag(*question, value)
	if err := Check(*question, value); err != nil {
		return nil, err
	}
	return value, nil
}

func (e *Engine) applyComment(sectionID, questionID model.ID, option, text string) {
	if text = model.CleanText(text); text == "" {
		e.comments.remove(sectionID, questionID, option)
		return
	}
	e.comments.set(sectionID, questionID, option, text)
}

// settleLocked returns an emptied Editing engine to Empty.
func (e *Engine) settleLocked() {
	if e.state == StateEditing && e.tree.Len() == 0 && e.comments.Len() == 0 {
		e.state = StateEmpty
	}
}

func checkCommentOption(question *model.Question, option string) error {
	if option == "" {
		return model.Invalid("option", "option is required")
	}
	if question == nil {
		return nil
	}
	if !question.Type.IsChoice() {
		return model.Invalid(string(question.ID), "comments apply to choice questions only")
	}
	if !question.HasOption(option) {
		return model.Invalid(string(question.ID), "option \""+option+"\" is not offered")
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
