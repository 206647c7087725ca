package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/internal/metrics"
)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger used for skipped entries and failures.
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics records refresh results and skipped entries.
func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// Fetcher loads and decodes one catalog source.
type Fetcher struct {
	loader  Loader
	source  Source
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewFetcher binds loader to src.
func NewFetcher(loader Loader, src Source, options ...FetcherOption) *Fetcher {
	f := &Fetcher{loader: loader, source: src, logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Source returns the bound source.
func (f *Fetcher) Source() Source {
	return f.source
}

// Fetch loads the source once. Skipped entries are logged and returned in
// the result; they never fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context) (Result, error) {
	if f.loader == nil || f.source == nil {
		return Result{}, errors.New("catalog: fetcher is not configured")
	}
	doc, err := f.loader.Load(ctx, f.source)
	if err != nil {
		f.metrics.CatalogRefresh(metrics.ResultFailure)
		f.logger.Warn("catalog fetch failed", zap.String("source", f.source.Location()), zap.Error(err))
		return Result{}, err
	}
	result, err := Decode(doc)
	if err != nil {
		f.metrics.CatalogRefresh(metrics.ResultFailure)
		f.logger.Warn("catalog decode failed", zap.String("source", f.source.Location()), zap.Error(err))
		return Result{}, err
	}
	for _, skipped := range result.Skipped {
		f.logger.Warn("skipping malformed catalog entry",
			zap.Int("index", skipped.Index),
			zap.Int("item", skipped.Item),
			zap.Error(skipped.Err),
		)
	}
	f.metrics.EntriesSkipped(len(result.Skipped))
	f.metrics.CatalogRefresh(metrics.ResultSuccess)
	return result, nil
}
