package cache

import "fmt"

// PersistenceError describes a durable storage failure. The coordinator
// logs and swallows these; in-memory state is never affected.
type PersistenceError struct {
	Key string
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
