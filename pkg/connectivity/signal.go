// Package connectivity provides the "is connected" observable the offline
// cache listens to.
package connectivity

import (
	"sync"
)

// Signal reports connectivity. Subscribe invokes fn with the current value
// before returning and again on every change; the returned cancel func
// unregisters fn and is safe to call more than once.
type Signal interface {
	Online() bool
	Subscribe(fn func(online bool)) (cancel func())
}

// broadcaster fans out state changes to subscribers in registration order.
// Deliveries are serialised, so subscribers see changes in the order they
// were published. A subscriber must not publish to or subscribe on the same
// broadcaster from its callback.
type broadcaster struct {
	deliver sync.Mutex

	mu     sync.Mutex
	online bool
	known  bool
	nextID int
	subs   map[int]func(bool)
	order  []int
}

func (b *broadcaster) current() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

func (b *broadcaster) subscribe(fn func(bool)) func() {
	if fn == nil {
		return func() {}
	}
	b.deliver.Lock()
	defer b.deliver.Unlock()
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]func(bool))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	online := b.online
	b.mu.Unlock()

	fn(online)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for idx, candidate := range b.order {
				if candidate == id {
					b.order = append(b.order[:idx], b.order[idx+1:]...)
					break
				}
			}
		})
	}
}

// publish records online and notifies subscribers when it changed.
func (b *broadcaster) publish(online bool) bool {
	b.deliver.Lock()
	defer b.deliver.Unlock()
	b.mu.Lock()
	if b.known && b.online == online {
		b.mu.Unlock()
		return false
	}
	b.online = online
	b.known = true
	listeners := make([]func(bool), 0, len(b.order))
	for _, id := range b.order {
		listeners = append(listeners, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(online)
	}
	return true
}

func (b *broadcaster) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Manual is a Signal driven by explicit Set calls. Tests and the CLI's
// --offline flag use it.
type Manual struct {
	b broadcaster
}

// NewManual starts in the given state.
func NewManual(online bool) *Manual {
	m := &Manual{}
	m.b.online = online
	m.b.known = true
	return m
}

// Online reports the current state.
func (m *Manual) Online() bool { return m.b.current() }

// Subscribe implements Signal.
func (m *Manual) Subscribe(fn func(bool)) func() { return m.b.subscribe(fn) }

// Set changes the state and notifies subscribers when it differs.
func (m *Manual) Set(online bool) {
	m.b.publish(online)
}

// Subscribers reports how many listeners are registered.
func (m *Manual) Subscribers() int { return m.b.subscribers() }

// Static is a fixed Signal.
type Static bool

// Online reports the fixed value.
func (s Static) Online() bool { return bool(s) }

// Subscribe delivers the fixed value once.
func (s Static) Subscribe(fn func(bool)) func() {
	if fn != nil {
		fn(bool(s))
	}
	return func() {}
}
