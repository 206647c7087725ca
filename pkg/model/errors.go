package model

import (
	"errors"
	"fmt"
)

// ValidationError reports blank or inconsistent input to an operation. The
// operation is not applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundKind names the schema level of a missing reference.
type NotFoundKind string

const (
	KindForm     NotFoundKind = "form"
	KindSection  NotFoundKind = "section"
	KindQuestion NotFoundKind = "question"
)

// NotFoundError reports a reference to an id that does not exist. It points
// at a consistency bug in the caller's view of the schema.
type NotFoundError struct {
	Kind NotFoundKind
	ID   ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, string(e.ID))
}

// NotFound builds a NotFoundError.
func NotFound(kind NotFoundKind, id ID) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
