package responses

import "errors"

var (
	// ErrSubmitted is returned when an edit arrives after Submit. Clear or
	// switch forms to start over.
	ErrSubmitted = errors.New("responses: form already submitted")
	// ErrNoSelection is returned when no form is active.
	ErrNoSelection = errors.New("responses: no form selected")
	// ErrEditClosed is returned by a ChoiceEdit that was already confirmed
	// or cancelled.
	ErrEditClosed = errors.New("responses: choice edit already closed")
	// ErrStaleEdit is returned when the active form was switched, cleared,
	// or restored while a ChoiceEdit was open.
	ErrStaleEdit = errors.New("responses: choice edit is stale")
)
