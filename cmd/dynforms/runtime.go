package main

import (
	"fmt"

	"go.uber.org/zap"

	dynforms "github.com/goliatone/go-dynforms"
	"github.com/goliatone/go-dynforms/pkg/catalog"
	"github.com/goliatone/go-dynforms/pkg/config"
	"github.com/goliatone/go-dynforms/pkg/connectivity"
	"github.com/goliatone/go-dynforms/pkg/storage"
	"github.com/goliatone/go-dynforms/pkg/submission"
)

// catalogFor resolves the configured catalog. Without a URL or file the
// bundled sample is used.
func catalogFor(cfg config.Config) (catalog.Loader, catalog.Source, error) {
	switch {
	case cfg.CatalogURL != "":
		src, err := catalog.ParseURLSource(cfg.CatalogURL)
		if err != nil {
			return nil, nil, err
		}
		loader := dynforms.NewLoader(
			catalog.WithHTTPFallback(cfg.RequestTimeout),
			catalog.WithRequestTimeout(cfg.RequestTimeout),
		)
		return loader, src, nil
	case cfg.CatalogFile != "":
		return dynforms.NewLoader(), catalog.SourceFromFile(cfg.CatalogFile), nil
	default:
		loader, src := dynforms.SampleCatalog()
		return loader, src, nil
	}
}

func openStorage(cfg config.Config, logger *zap.Logger) (storage.Storage, error) {
	store, err := storage.Open(storage.Driver(cfg.Cache.Driver), cfg.Cache.Path, logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("open %s cache at %s: %w", cfg.Cache.Driver, cfg.Cache.Path, err)
	}
	return store, nil
}

// signalFor probes the configured URL, or reports always online when there
// is nothing to probe. The probe is nil in that case.
func signalFor(cfg config.Config, logger *zap.Logger) (connectivity.Signal, *connectivity.Probe, error) {
	target := cfg.Probe()
	if target == "" {
		return connectivity.Static(true), nil, nil
	}
	probe, err := connectivity.NewProbe(target,
		connectivity.WithInterval(cfg.ProbeInterval),
		connectivity.WithTimeout(cfg.RequestTimeout),
		connectivity.WithLogger(logger.Named("connectivity")),
	)
	if err != nil {
		return nil, nil, err
	}
	return probe, probe, nil
}

func sinkFor(cfg config.Config, logger *zap.Logger) submission.Sink {
	if cfg.SubmitURL == "" {
		return submission.LogSink{Logger: logger.Named("submission")}
	}
	return submission.NewHTTPSink(cfg.SubmitURL, submission.WithTimeout(cfg.RequestTimeout))
}
