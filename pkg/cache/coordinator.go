// Package cache bridges the response engine to durable storage under a
// connectivity signal.
//
// Every committed edit is written through unconditionally, online or not.
// Writes to one key are applied in call order. Storage failures are logged
// and swallowed: durability is advisory, the in-memory session is not.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/internal/metrics"
	"github.com/goliatone/go-dynforms/pkg/connectivity"
	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/responses"
	"github.com/goliatone/go-dynforms/pkg/storage"
	"github.com/goliatone/go-dynforms/pkg/submission"
)

// Durable keys.
const (
	KeyResponses = "cached_form_responses"
	KeySelection = "cached_form_selection"
	KeyComments  = "comments"
)

// Keys lists every durable key the coordinator owns.
var Keys = []string{KeyResponses, KeySelection, KeyComments}

// OfflineNotice is surfaced after an offline submission.
const OfflineNotice = "You are offline. Your answers are saved on this device; submit again once you are back online."

const defaultWriteTimeout = 5 * time.Second

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records write failures and submissions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithRestoreOnline restores the cached snapshot at Start even when online.
func WithRestoreOnline(enabled bool) Option {
	return func(c *Coordinator) {
		c.restoreOnline = enabled
	}
}

// WithWriteTimeout bounds each storage operation.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.writeTimeout = timeout
		}
	}
}

// WithErrorHandler receives every *PersistenceError after it is logged.
func WithErrorHandler(fn func(error)) Option {
	return func(c *Coordinator) {
		c.onError = fn
	}
}

// Outcome describes how a submission was handled.
type Outcome struct {
	Mode             string
	ResubmitRequired bool
	Notice           string
}

// Restored reports what Start or Restore recovered.
type Restored struct {
	FormID   model.ID
	Answers  int
	Comments int
}

// Coordinator owns the durable copies of the response and comment trees
// and the active form selection. It is the only writer of those keys.
type Coordinator struct {
	engine *responses.Engine
	store  storage.Storage
	signal connectivity.Signal
	sink   submission.Sink

	logger        *zap.Logger
	metrics       *metrics.Metrics
	restoreOnline bool
	writeTimeout  time.Duration
	onError       func(error)

	queue *writeQueue

	// edit serialises mutate-snapshot-enqueue so snapshots reach the queue
	// in the order they were taken.
	edit sync.Mutex

	mu          sync.Mutex
	online      bool
	unsubscribe func()
}

// New wires a coordinator. sink may be nil, in which case online submits
// only clear the cache.
func New(engine *responses.Engine, store storage.Storage, signal connectivity.Signal, sink submission.Sink, options ...Option) *Coordinator {
	c := &Coordinator{
		engine:       engine,
		store:        store,
		signal:       signal,
		sink:         sink,
		logger:       zap.NewNop(),
		writeTimeout: defaultWriteTimeout,
		online:       true,
	}
	if signal != nil {
		c.online = signal.Online()
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.queue = newWriteQueue(store, c.writeTimeout, c.reportFailure)
	return c
}

// Start subscribes to the signal and, when offline at mount (or always
// with WithRestoreOnline), restores the cached snapshot into the engine.
// The returned Restored is nil when nothing was restored.
func (c *Coordinator) Start(ctx context.Context) *Restored {
	c.mu.Lock()
	if c.unsubscribe == nil && c.signal != nil {
		c.mu.Unlock()
		cancel := c.signal.Subscribe(c.observe)
		c.mu.Lock()
		c.unsubscribe = cancel
	}
	online := c.online
	c.mu.Unlock()

	if online && !c.restoreOnline {
		return nil
	}
	return c.Restore(ctx)
}

func (c *Coordinator) observe(online bool) {
	c.mu.Lock()
	previous := c.online
	c.online = online
	c.mu.Unlock()

	if previous != online {
		c.logger.Info("connectivity changed", zap.Bool("online", online))
	}
}

// Online reports the last value delivered by the signal. Before Start and
// after Close the signal is asked directly.
func (c *Coordinator) Online() bool {
	c.mu.Lock()
	subscribed := c.unsubscribe != nil
	online := c.online
	c.mu.Unlock()
	if !subscribed && c.signal != nil {
		return c.signal.Online()
	}
	return online
}

// Close unsubscribes from the signal and waits for pending writes.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return c.Flush(ctx)
}

// Flush waits until every queued write has been applied.
func (c *Coordinator) Flush(ctx context.Context) error {
	return c.queue.flush(ctx)
}

// RecordAnswer records through the engine and writes the responses and
// selection through.
func (c *Coordinator) RecordAnswer(sectionID, questionID model.ID, value responses.Answer) error {
	c.edit.Lock()
	defer c.edit.Unlock()
	if err := c.engine.RecordAnswer(sectionID, questionID, value); err != nil {
		return err
	}
	snap := c.engine.Snapshot()
	c.writeResponses(snap)
	c.writeSelection(snap)
	return nil
}

// RecordComment records through the engine and writes the comments and
// selection through.
func (c *Coordinator) RecordComment(sectionID, questionID model.ID, option, text string) error {
	c.edit.Lock()
	defer c.edit.Unlock()
	if err := c.engine.RecordComment(sectionID, questionID, option, text); err != nil {
		return err
	}
	snap := c.engine.Snapshot()
	c.writeComments(snap)
	c.writeSelection(snap)
	return nil
}

// CommitChoice commits an answer and its comments together.
func (c *Coordinator) CommitChoice(sectionID, questionID model.ID, value responses.Answer, comments map[string]string) error {
	c.edit.Lock()
	defer c.edit.Unlock()
	if err := c.engine.CommitChoice(sectionID, questionID, value, comments); err != nil {
		return err
	}
	c.writeAll(c.engine.Snapshot())
	return nil
}

// Confirm commits an open choice edit and writes the result through.
func (c *Coordinator) Confirm(edit *responses.ChoiceEdit, comment string) error {
	c.edit.Lock()
	defer c.edit.Unlock()
	if err := edit.Confirm(comment); err != nil {
		return err
	}
	c.writeAll(c.engine.Snapshot())
	return nil
}

// Persist writes the current engine state through. Callers use it after
// changing the engine directly, e.g. Reconcile or DiscardQuestion.
func (c *Coordinator) Persist() {
	c.edit.Lock()
	defer c.edit.Unlock()
	snap := c.engine.Snapshot()
	if snap.FormID.IsZero() {
		c.deleteAll()
		return
	}
	c.writeAll(snap)
}

// Submit hands the answers to the sink when online and clears the cache on
// success. When the sink fails nothing changes and the error is returned.
// When offline the session is marked Submitted, the cache is kept, and the
// outcome asks for a resubmission.
func (c *Coordinator) Submit(ctx context.Context) (Outcome, error) {
	c.edit.Lock()
	defer c.edit.Unlock()

	snap := c.engine.Snapshot()
	if snap.FormID.IsZero() {
		return Outcome{}, responses.ErrNoSelection
	}

	if !c.Online() {
		if err := c.engine.Submit(); err != nil {
			return Outcome{}, err
		}
		c.metrics.Submission(metrics.ModeOffline)
		c.logger.Info("submitted offline, resubmission required",
			zap.String("form_id", snap.FormID.String()),
			zap.Int("answers", snap.Responses.Len()),
		)
		return Outcome{Mode: metrics.ModeOffline, ResubmitRequired: true, Notice: OfflineNotice}, nil
	}

	if c.sink != nil {
		record := submission.Record{FormID: snap.FormID, Responses: snap.Responses, Comments: snap.Comments}
		if err := c.sink.Submit(ctx, record); err != nil {
			c.metrics.Submission(metrics.ModeFailed)
			c.logger.Warn("submission failed", zap.String("form_id", snap.FormID.String()), zap.Error(err))
			return Outcome{}, err
		}
	}
	if err := c.engine.Submit(); err != nil {
		return Outcome{}, err
	}
	c.deleteAll()
	c.metrics.Submission(metrics.ModeOnline)
	return Outcome{Mode: metrics.ModeOnline}, nil
}

// Clear resets the engine and deletes every durable key.
func (c *Coordinator) Clear() {
	c.edit.Lock()
	defer c.edit.Unlock()
	c.engine.Clear()
	c.deleteAll()
}

// SwitchForm activates id in the engine and deletes every durable key.
func (c *Coordinator) SwitchForm(id model.ID) {
	c.edit.Lock()
	defer c.edit.Unlock()
	c.engine.SwitchForm(id)
	c.deleteAll()
}

// Restore loads the cached snapshot into the engine. It returns nil when no
// selection is cached. Undecodable values are logged and treated as absent.
func (c *Coordinator) Restore(ctx context.Context) *Restored {
	c.edit.Lock()
	defer c.edit.Unlock()

	if err := c.Flush(ctx); err != nil {
		c.logger.Warn("restore: flush interrupted", zap.Error(err))
	}

	var formID model.ID
	if !c.read(ctx, KeySelection, &formID) || formID.IsZero() {
		c.logger.Info("restore: no cached selection")
		return nil
	}
	var tree responses.Tree
	c.read(ctx, KeyResponses, &tree)
	var comments responses.Comments
	c.read(ctx, KeyComments, &comments)

	c.engine.Restore(responses.Snapshot{FormID: formID, Responses: tree, Comments: comments})
	snap := c.engine.Snapshot()
	restored := &Restored{FormID: formID, Answers: snap.Responses.Len(), Comments: snap.Comments.Len()}
	c.logger.Info("restored cached responses",
		zap.String("form_id", formID.String()),
		zap.Int("answers", restored.Answers),
		zap.Int("comments", restored.Comments),
	)
	return restored
}

// Pending reports whether a cached snapshot with a selection is present.
func (c *Coordinator) Pending(ctx context.Context) bool {
	if err := c.Flush(ctx); err != nil {
		return false
	}
	var formID model.ID
	return c.read(ctx, KeySelection, &formID) && !formID.IsZero()
}

// Peek decodes the cached snapshot without touching the engine.
func (c *Coordinator) Peek(ctx context.Context) (responses.Snapshot, bool) {
	if err := c.Flush(ctx); err != nil {
		return responses.Snapshot{}, false
	}
	var snap responses.Snapshot
	found := c.read(ctx, KeySelection, &snap.FormID)
	if c.read(ctx, KeyResponses, &snap.Responses) {
		found = true
	}
	if c.read(ctx, KeyComments, &snap.Comments) {
		found = true
	}
	return snap, found
}

func (c *Coordinator) read(ctx context.Context, key string, target any) bool {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.reportFailure(key, "read", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, target); err != nil {
		c.reportFailure(key, "decode", err)
		return false
	}
	return true
}

func (c *Coordinator) writeAll(snap responses.Snapshot) {
	c.writeResponses(snap)
	c.writeComments(snap)
	c.writeSelection(snap)
}

func (c *Coordinator) writeResponses(snap responses.Snapshot) {
	c.write(KeyResponses, snap.Responses)
}

func (c *Coordinator) writeComments(snap responses.Snapshot) {
	c.write(KeyComments, snap.Comments)
}

func (c *Coordinator) writeSelection(snap responses.Snapshot) {
	c.write(KeySelection, snap.FormID)
}

func (c *Coordinator) write(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.reportFailure(key, "encode", err)
		return
	}
	c.queue.set(key, raw)
}

func (c *Coordinator) deleteAll() {
	for _, key := range Keys {
		c.queue.remove(key)
	}
}

func (c *Coordinator) reportFailure(key, op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	perr := &PersistenceError{Key: key, Op: op, Err: err}
	if op != "read" && op != "decode" {
		c.metrics.WriteFailure(key)
	}
	c.logger.Warn("cache persistence failed", zap.String("key", key), zap.String("op", op), zap.Error(err))
	if c.onError != nil {
		c.onError(perr)
	}
}
