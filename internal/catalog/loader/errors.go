package loader

import "errors"

var (
	ErrNilSource       = errors.New("catalog loader: source is nil")
	ErrNoLocation      = errors.New("catalog loader: source has no location")
	ErrNoFileSystem    = errors.New("no file system configured")
	ErrHTTPDisabled    = errors.New("http sources are disabled")
	ErrUnsupportedKind = errors.New("unsupported source kind")
	ErrTooLarge        = errors.New("document exceeds size limit")
)
