package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/pkg/catalog"
	"github.com/goliatone/go-dynforms/pkg/connectivity"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/storage"
	"github.com/goliatone/go-dynforms/pkg/submission"
)

// Option configures a Session.
type Option func(*config)

type config struct {
	storage       storage.Storage
	signal        connectivity.Signal
	sink          submission.Sink
	loader        catalog.Loader
	source        catalog.Source
	fetch         catalog.FetchFunc
	pollInterval  time.Duration
	logger        *zap.Logger
	registerer    prometheus.Registerer
	nextID        func() model.ID
	forms         []model.Form
	restoreOnline bool
	writeTimeout  time.Duration
	onError       func(error)
}

// WithStorage sets the durable cache backend. Defaults to an in-memory
// store. The session never closes it.
func WithStorage(store storage.Storage) Option {
	return func(c *config) {
		c.storage = store
	}
}

// WithSignal sets the connectivity signal. Defaults to always online.
func WithSignal(signal connectivity.Signal) Option {
	return func(c *config) {
		c.signal = signal
	}
}

// WithSink sets where online submissions are delivered.
func WithSink(sink submission.Sink) Option {
	return func(c *config) {
		c.sink = sink
	}
}

// WithCatalog polls src through loader.
func WithCatalog(loader catalog.Loader, src catalog.Source) Option {
	return func(c *config) {
		c.loader = loader
		c.source = src
	}
}

// WithFetchFunc polls fn instead of a loader and source.
func WithFetchFunc(fn catalog.FetchFunc) Option {
	return func(c *config) {
		c.fetch = fn
	}
}

// WithPollInterval sets the catalog refresh period.
func WithPollInterval(interval time.Duration) Option {
	return func(c *config) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegisterer registers the session metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}

// WithIDGenerator overrides how new forms, sections and questions are
// identified.
func WithIDGenerator(next func() model.ID) Option {
	return func(c *config) {
		c.nextID = next
	}
}

// WithForms seeds the catalog before the first refresh.
func WithForms(forms ...model.Form) Option {
	return func(c *config) {
		c.forms = append(c.forms, forms...)
	}
}

// WithRestoreOnline restores cached progress at Start even when online.
func WithRestoreOnline(enabled bool) Option {
	return func(c *config) {
		c.restoreOnline = enabled
	}
}

// WithWriteTimeout bounds each cache write.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.writeTimeout = timeout
	}
}

// WithErrorHandler receives cache persistence failures.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}
