// Package session composes the catalog, the explicit store, the schema and
// response engines, and the offline cache coordinator into one unit with a
// deterministic lifecycle.
//
// A Session is the only place these components meet. The response engine
// validates against the store, the mutation engine consults the response
// engine before destructive type changes, and catalog refreshes reconcile
// answers without ever resetting the selection.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/internal/metrics"
	"github.com/goliatone/go-dynforms/pkg/cache"
	"github.com/goliatone/go-dynforms/pkg/catalog"
	"github.com/goliatone/go-dynforms/pkg/connectivity"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/mutate"
	"github.com/goliatone/go-dynforms/pkg/responses"
	"github.com/goliatone/go-dynforms/pkg/storage"
	"github.com/goliatone/go-dynforms/pkg/store"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session: closed")
	// ErrStarted is returned when Start is called twice.
	ErrStarted = errors.New("session: already started")
	// ErrNoCatalog is returned by Refresh when no catalog source is set.
	ErrNoCatalog = errors.New("session: no catalog configured")
)

// Session is safe for concurrent use.
type Session struct {
	logger    *zap.Logger
	metrics   *metrics.Metrics
	store     *store.Store
	responses *responses.Engine
	mutate    *mutate.Engine
	coord     *cache.Coordinator
	poller    *catalog.Poller

	// schema serialises store edits with the reconcile and persist that
	// follow them.
	schema sync.Mutex

	mu      sync.Mutex
	started bool
	closed  bool
}

// New wires a stopped session.
func New(options ...Option) *Session {
	cfg := config{
		logger:       zap.NewNop(),
		pollInterval: catalog.DefaultPollInterval,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.storage == nil {
		cfg.storage = storage.NewMemory()
	}
	if cfg.signal == nil {
		cfg.signal = connectivity.Static(true)
	}

	s := &Session{
		logger:  cfg.logger,
		metrics: metrics.New(cfg.registerer),
		store:   store.New(cfg.forms...),
	}
	s.responses = responses.New(responses.WithSchema(responses.SchemaFunc(func(id model.ID) (model.Form, bool) {
		return s.store.State().Form(id)
	})))
	s.mutate = mutate.New(mutate.WithIDGenerator(cfg.nextID))

	coordOpts := []cache.Option{
		cache.WithLogger(cfg.logger.Named("cache")),
		cache.WithMetrics(s.metrics),
		cache.WithRestoreOnline(cfg.restoreOnline),
		cache.WithWriteTimeout(cfg.writeTimeout),
	}
	if cfg.onError != nil {
		coordOpts = append(coordOpts, cache.WithErrorHandler(cfg.onError))
	}
	s.coord = cache.New(s.responses, cfg.storage, cfg.signal, cfg.sink, coordOpts...)

	fetch := cfg.fetch
	if fetch == nil && cfg.loader != nil && cfg.source != nil {
		fetcher := catalog.NewFetcher(cfg.loader, cfg.source,
			catalog.WithLogger(cfg.logger.Named("catalog")),
			catalog.WithMetrics(s.metrics),
		)
		fetch = fetcher.Fetch
	}
	if fetch != nil {
		s.poller = catalog.NewPoller(fetch, s.applyCatalog,
			catalog.WithInterval(cfg.pollInterval),
			catalog.WithPollerLogger(cfg.logger.Named("catalog")),
		)
	}
	return s
}

// Start restores cached progress (when the coordinator decides to) and
// begins polling the catalog. The returned value is nil when nothing was
// restored. The poller stops when ctx is done or on Close.
func (s *Session) Start(ctx context.Context) (*cache.Restored, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.started:
		s.mu.Unlock()
		return nil, ErrStarted
	}
	s.started = true
	s.mu.Unlock()

	restored := s.coord.Start(ctx)
	if restored != nil {
		s.schema.Lock()
		_, _ = s.store.Dispatch(store.RestoreSelection{ID: restored.FormID})
		s.schema.Unlock()
	}
	if s.poller != nil {
		s.poller.Start(ctx)
	}
	return restored, nil
}

// Close stops the poller, detaches from the connectivity signal and waits
// for queued cache writes. Calling it again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.poller != nil {
		s.poller.Stop()
	}
	return s.coord.Close(ctx)
}

func (s *Session) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Refresh fetches the catalog now.
func (s *Session) Refresh(ctx context.Context) (catalog.Result, error) {
	if s.poller == nil {
		return catalog.Result{}, ErrNoCatalog
	}
	if err := s.open(); err != nil {
		return catalog.Result{}, err
	}
	return s.poller.Refresh(ctx)
}

func (s *Session) applyCatalog(forms []model.Form) {
	s.schema.Lock()
	defer s.schema.Unlock()

	state, err := s.store.Dispatch(store.SetCatalog{Forms: forms})
	if err != nil {
		s.logger.Warn("catalog apply failed", zap.Error(err))
		return
	}
	if form, ok := state.Form(s.responses.FormID()); ok {
		s.settleLocked(form, false)
	}
}

// settleLocked reconciles answers with form and persists when anything
// changed. Callers hold s.schema.
func (s *Session) settleLocked(form model.Form, dirty bool) {
	if s.responses.Reconcile(form) {
		dirty = true
	}
	if dirty {
		s.coord.Persist()
	}
}

// Forms returns the loaded catalog.
func (s *Session) Forms() []model.Form {
	return s.store.State().Forms
}

// Form looks up a loaded form.
func (s *Session) Form(id model.ID) (model.Form, bool) {
	return s.store.State().Form(id)
}

// ActiveForm returns the selected form. It is absent when nothing is
// selected or the selected form has not been loaded.
func (s *Session) ActiveForm() (model.Form, bool) {
	return s.store.State().Form(s.responses.FormID())
}

// Subscribe observes store changes.
func (s *Session) Subscribe(fn func(store.State)) (cancel func()) {
	return s.store.Subscribe(fn)
}

// Online reports the last observed connectivity.
func (s *Session) Online() bool {
	return s.coord.Online()
}

// Pending reports whether cached progress exists.
func (s *Session) Pending(ctx context.Context) bool {
	return s.coord.Pending(ctx)
}

// Peek decodes cached progress without restoring it.
func (s *Session) Peek(ctx context.Context) (responses.Snapshot, bool) {
	return s.coord.Peek(ctx)
}

// Flush waits for queued cache writes.
func (s *Session) Flush(ctx context.Context) error {
	return s.coord.Flush(ctx)
}
