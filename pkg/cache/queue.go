package cache

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-dynforms/pkg/storage"
)

type operation struct {
	value  []byte
	delete bool
}

type keyQueue struct {
	pending []operation
	running bool
}

// writeQueue applies operations to each key in call order. Each key drains
// on its own short-lived goroutine; operations still pending when a write
// finishes are collapsed to the newest, since every write is a full
// overwrite.
type writeQueue struct {
	store   storage.Storage
	timeout time.Duration
	report  func(key, op string, err error)

	mu      sync.Mutex
	queues  map[string]*keyQueue
	active  int
	waiters []chan struct{}
}

func newWriteQueue(store storage.Storage, timeout time.Duration, report func(key, op string, err error)) *writeQueue {
	return &writeQueue{
		store:   store,
		timeout: timeout,
		report:  report,
		queues:  make(map[string]*keyQueue),
	}
}

func (w *writeQueue) set(key string, value []byte) {
	w.enqueue(key, operation{value: value})
}

func (w *writeQueue) remove(key string) {
	w.enqueue(key, operation{delete: true})
}

func (w *writeQueue) enqueue(key string, op operation) {
	w.mu.Lock()
	defer w.mu.Unlock()

	q, ok := w.queues[key]
	if !ok {
		q = &keyQueue{}
		w.queues[key] = q
	}
	q.pending = append(q.pending, op)
	if q.running {
		return
	}
	q.running = true
	w.active++
	go w.drain(key, q)
}

func (w *writeQueue) drain(key string, q *keyQueue) {
	for {
		w.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			w.active--
			if w.active == 0 {
				for _, ch := range w.waiters {
					close(ch)
				}
				w.waiters = nil
			}
			w.mu.Unlock()
			return
		}
		op := q.pending[len(q.pending)-1]
		q.pending = q.pending[:0]
		w.mu.Unlock()

		w.apply(key, op)
	}
}

func (w *writeQueue) apply(key string, op operation) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if op.delete {
		if err := w.store.Delete(ctx, key); err != nil {
			w.report(key, "delete", err)
		}
		return
	}
	if err := w.store.Set(ctx, key, op.value); err != nil {
		w.report(key, "write", err)
	}
}

// flush blocks until every queue is idle or ctx is done.
func (w *writeQueue) flush(ctx context.Context) error {
	w.mu.Lock()
	if w.active == 0 {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
