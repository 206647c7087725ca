package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-dynforms/pkg/model"
)

// DefaultPollInterval is the catalog refresh period.
const DefaultPollInterval = 60 * time.Second

// FetchFunc produces a fresh catalog.
type FetchFunc func(ctx context.Context) (Result, error)

// ApplyFunc receives each successfully fetched form list.
type ApplyFunc func(forms []model.Form)

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the refresh period.
func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger *zap.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Poller refreshes the catalog on a fixed interval. A failed refresh leaves
// the previously applied list in place.
type Poller struct {
	fetch    FetchFunc
	apply    ApplyFunc
	interval time.Duration
	logger   *zap.Logger
	group    singleflight.Group

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewPoller builds a stopped poller.
func NewPoller(fetch FetchFunc, apply ApplyFunc, options ...PollerOption) *Poller {
	p := &Poller{
		fetch:    fetch,
		apply:    apply,
		interval: DefaultPollInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Refresh fetches once and applies the result on success. Concurrent calls
// share a single fetch.
func (p *Poller) Refresh(ctx context.Context) (Result, error) {
	value, err, _ := p.group.Do("refresh", func() (interface{}, error) {
		result, err := p.fetch(ctx)
		if err != nil {
			return Result{}, err
		}
		if p.apply != nil {
			p.apply(result.Forms)
		}
		return result, nil
	})
	if err != nil {
		p.logger.Warn("catalog refresh failed, keeping previous forms", zap.Error(err))
		return Result{}, err
	}
	return value.(Result), nil
}

// Start refreshes immediately and then once per interval until Stop or ctx
// is done. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.doneCh = make(chan struct{})
	go p.run(ctx, p.doneCh)
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.doneCh
	p.cancel, p.doneCh = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tick(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	_, _ = p.Refresh(ctx)
}
