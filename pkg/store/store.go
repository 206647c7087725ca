// Package store holds the form catalog and the active selection behind an
// explicit dispatch interface. The session owns one Store and passes it down;
// nothing reads it from ambient state.
package store

import (
	"errors"
	"sync"

	"github.com/goliatone/go-dynforms/pkg/model"
)

// ErrNilAction is returned by Dispatch(nil).
var ErrNilAction = errors.New("store: nil action")

// State is an immutable view. Forms must be treated as read-only; replace
// them through actions.
type State struct {
	Forms      []model.Form
	SelectedID model.ID
}

// Selected returns the active form.
func (s State) Selected() (model.Form, bool) {
	if s.SelectedID.IsZero() {
		return model.Form{}, false
	}
	return model.FindForm(s.Forms, s.SelectedID)
}

// Form looks up a form by id.
func (s State) Form(id model.ID) (model.Form, bool) {
	return model.FindForm(s.Forms, id)
}

// Action transforms state. Returning an error leaves the store unchanged.
type Action interface {
	Reduce(state State, local map[model.ID]struct{}) (State, error)
}

// SetCatalog replaces the remote forms. Forms created or edited locally
// win over their remote copies and are kept when the catalog omits them.
// The selection is never changed.
type SetCatalog struct {
	Forms []model.Form
}

func (a SetCatalog) Reduce(state State, local map[model.ID]struct{}) (State, error) {
	current := make(map[model.ID]model.Form, len(state.Forms))
	for _, form := range state.Forms {
		current[form.ID] = form
	}
	next := make([]model.Form, 0, len(a.Forms)+len(local))
	seen := make(map[model.ID]struct{}, len(a.Forms))
	for _, form := range a.Forms {
		if _, dup := seen[form.ID]; dup {
			continue
		}
		seen[form.ID] = struct{}{}
		if _, ok := local[form.ID]; ok {
			if kept, exists := current[form.ID]; exists {
				next = append(next, kept)
				continue
			}
		}
		next = append(next, form)
	}
	for _, form := range state.Forms {
		if _, ok := local[form.ID]; !ok {
			continue
		}
		if _, listed := seen[form.ID]; !listed {
			next = append(next, form)
		}
	}
	state.Forms = next
	return state, nil
}

// AddForm appends a new form and selects it.
type AddForm struct {
	Form model.Form
}

func (a AddForm) Reduce(state State, local map[model.ID]struct{}) (State, error) {
	if a.Form.ID.IsZero() {
		return state, model.Invalid("id", "form id is required")
	}
	if _, exists := state.Form(a.Form.ID); exists {
		return state, model.Invalid("id", "form "+a.Form.ID.String()+" already exists")
	}
	state.Forms = append(append([]model.Form(nil), state.Forms...), a.Form)
	state.SelectedID = a.Form.ID
	local[a.Form.ID] = struct{}{}
	return state, nil
}

// EditForm replaces the form with id by the result of Apply.
type EditForm struct {
	ID    model.ID
	Apply func(model.Form) (model.Form, error)
}

func (a EditForm) Reduce(state State, local map[model.ID]struct{}) (State, error) {
	if a.Apply == nil {
		return state, ErrNilAction
	}
	idx := -1
	for i, form := range state.Forms {
		if form.ID == a.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return state, model.NotFound(model.KindForm, a.ID)
	}
	edited, err := a.Apply(state.Forms[idx])
	if err != nil {
		return state, err
	}
	if edited.ID != a.ID {
		return state, model.Invalid("id", "an edit cannot change the form id")
	}
	forms := append([]model.Form(nil), state.Forms...)
	forms[idx] = edited
	state.Forms = forms
	local[a.ID] = struct{}{}
	return state, nil
}

// Select activates an existing form.
type Select struct {
	ID model.ID
}

func (a Select) Reduce(state State, _ map[model.ID]struct{}) (State, error) {
	if _, ok := state.Form(a.ID); !ok {
		return state, model.NotFound(model.KindForm, a.ID)
	}
	state.SelectedID = a.ID
	return state, nil
}

// RestoreSelection sets the selection without requiring the form to be
// loaded yet. Used when cached progress is recovered before the catalog.
type RestoreSelection struct {
	ID model.ID
}

func (a RestoreSelection) Reduce(state State, _ map[model.ID]struct{}) (State, error) {
	state.SelectedID = a.ID
	return state, nil
}

// ClearSelection deactivates the current form.
type ClearSelection struct{}

func (ClearSelection) Reduce(state State, _ map[model.ID]struct{}) (State, error) {
	state.SelectedID = ""
	return state, nil
}

// Store serialises dispatches and notifies subscribers after each change.
type Store struct {
	mu     sync.Mutex
	state  State
	local  map[model.ID]struct{}
	nextID int
	subs   map[int]func(State)
}

// New seeds the store with forms and no selection.
func New(forms ...model.Form) *Store {
	return &Store{
		state: State{Forms: append([]model.Form(nil), forms...)},
		local: make(map[model.ID]struct{}),
		subs:  make(map[int]func(State)),
	}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() State {
	return State{
		Forms:      append([]model.Form(nil), s.state.Forms...),
		SelectedID: s.state.SelectedID,
	}
}

// Dispatch applies action. On error the state is unchanged and no
// subscriber is notified.
func (s *Store) Dispatch(action Action) (State, error) {
	if action == nil {
		return s.State(), ErrNilAction
	}

	s.mu.Lock()
	local := make(map[model.ID]struct{}, len(s.local))
	for id := range s.local {
		local[id] = struct{}{}
	}
	next, err := action.Reduce(s.snapshot(), local)
	if err != nil {
		current := s.snapshot()
		s.mu.Unlock()
		return current, err
	}
	s.state = next
	s.local = local
	out := s.snapshot()
	listeners := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(out)
	}
	return out, nil
}

// Subscribe registers fn for post-dispatch notifications.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}
