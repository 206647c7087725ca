// Package dynforms is the top-level entry point for building, filling and
// caching dynamic forms. It re-exports the core types and wires the internal
// implementations so callers need a single import for common use.
package dynforms

import (
	"context"

	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/pkg/cache"
	"github.com/goliatone/go-dynforms/pkg/catalog"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/responses"
	"github.com/goliatone/go-dynforms/pkg/session"
	"github.com/goliatone/go-dynforms/pkg/storage"
)

// Schema types.
type (
	ID           = model.ID
	QuestionType = model.QuestionType
	Form         = model.Form
	Section      = model.Section
	Question     = model.Question
)

// Response types.
type (
	Answer      = responses.Answer
	Text        = responses.Text
	Choice      = responses.Choice
	MultiChoice = responses.MultiChoice
	Snapshot    = responses.Snapshot
)

// Session is a composed fill/author session.
type Session = session.Session

// Outcome describes how a submission was handled.
type Outcome = cache.Outcome

// Storage is the durable key/value contract the offline cache writes to.
type Storage = storage.Storage

// NewSession constructs a stopped session. Call Start to restore cached
// progress and begin polling, and Close when done.
func NewSession(options ...session.Option) *Session {
	return session.New(options...)
}

// OpenStorage opens a cache backend by driver name.
func OpenStorage(driver storage.Driver, path string, logger *zap.Logger) (Storage, error) {
	return storage.Open(driver, path, logger)
}

// LoadCatalog fetches and decodes src once. Malformed entries are reported
// in the result rather than failing the load.
func LoadCatalog(ctx context.Context, src catalog.Source, options ...catalog.LoaderOption) (catalog.Result, error) {
	return catalog.NewFetcher(NewLoader(options...), src).Fetch(ctx)
}

// SampleCatalog returns a loader and source for the bundled demo catalog.
func SampleCatalog() (catalog.Loader, catalog.Source) {
	return NewLoader(catalog.WithFileSystem(catalog.SampleFS())), catalog.SourceFromFS(catalog.SampleSource)
}
