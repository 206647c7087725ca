package loader

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/goliatone/go-dynforms/pkg/catalog"
)

// maxDocumentBytes caps a single catalog payload.
var maxDocumentBytes int64 = 16 << 20

// Loader implements catalog.Loader for local files, an fs.FS and HTTP
// endpoints.
type Loader struct {
	files   fs.FS
	client  *http.Client
	timeout time.Duration
}

var _ catalog.Loader = (*Loader)(nil)

// New constructs a Loader from resolved options. URL sources stay disabled
// unless options carry a client or allow the fallback client.
func New(options catalog.LoaderOptions) *Loader {
	l := &Loader{files: options.FileSystem, timeout: options.RequestTimeout}
	switch {
	case options.HTTPClient != nil:
		client := *options.HTTPClient
		if client.Timeout == 0 {
			client.Timeout = l.timeout
		}
		l.client = &client
	case options.AllowHTTPFallback:
		l.client = &http.Client{Timeout: l.timeout}
	}
	return l
}

// Load reads src and wraps the payload in a Document.
func (l *Loader) Load(ctx context.Context, src catalog.Source) (catalog.Document, error) {
	if src == nil {
		return catalog.Document{}, ErrNilSource
	}
	location := src.Location()
	if location == "" {
		return catalog.Document{}, ErrNoLocation
	}
	if err := ctx.Err(); err != nil {
		return catalog.Document{}, err
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case catalog.SourceKindFile:
		data, err = readFile(location)
	case catalog.SourceKindFS:
		data, err = readFS(l.files, location)
	case catalog.SourceKindURL:
		data, err = l.fetch(ctx, location)
	default:
		err = fmt.Errorf("%w %q", ErrUnsupportedKind, src.Kind())
	}
	if err != nil {
		return catalog.Document{}, fmt.Errorf("catalog loader: %s %s: %w", src.Kind(), location, err)
	}
	return catalog.NewDocument(src, data)
}
