// Package metrics owns the prometheus collectors shared by the catalog
// poller, offline cache and session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dynforms"

// Refresh results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Submission modes.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
	ModeFailed  = "failed"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	catalogRefresh *prometheus.CounterVec
	entriesSkipped prometheus.Counter
	writeFailures  *prometheus.CounterVec
	submissions    *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a private registry so
// several sessions can coexist in one process.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: result (success, failure)
		catalogRefresh: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "refresh_total",
			Help:      "Catalog refresh attempts by result",
		}, []string{"result"}),
		entriesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "entries_skipped_total",
			Help:      "Malformed catalog entries skipped during refresh",
		}),
		// Labels: key (durable cache key)
		writeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "write_failures_total",
			Help:      "Durable cache writes and deletes that failed",
		}, []string{"key"}),
		// Labels: mode (online, offline, failed)
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Form submissions by mode",
		}, []string{"mode"}),
	}
}

// CatalogRefresh counts one refresh attempt.
func (m *Metrics) CatalogRefresh(result string) {
	if m == nil {
		return
	}
	m.catalogRefresh.WithLabelValues(result).Inc()
}

// EntriesSkipped adds n skipped catalog entries.
func (m *Metrics) EntriesSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entriesSkipped.Add(float64(n))
}

// WriteFailure counts a failed write or delete for key.
func (m *Metrics) WriteFailure(key string) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(key).Inc()
}

// Submission counts one submission by mode.
func (m *Metrics) Submission(mode string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(mode).Inc()
}
