package catalog

import "fmt"

// ParseError describes one malformed catalog entry. Index is the entry's
// position in the envelope (or document list); Item is set when a schema
// string held a sequence and a single element failed.
type ParseError struct {
	Index int
	Item  int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Item >= 0 {
		return fmt.Sprintf("catalog: entry %d item %d: %v", e.Index, e.Item, e.Err)
	}
	return fmt.Sprintf("catalog: entry %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NetworkError describes a failed remote fetch. StatusCode is zero for
// transport failures.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog: fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("catalog: fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
