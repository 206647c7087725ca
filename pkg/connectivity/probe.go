package connectivity

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultProbeInterval = 15 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithHTTPClient overrides the client used for checks.
func WithHTTPClient(client *http.Client) ProbeOption {
	return func(p *Probe) {
		if client != nil {
			p.client = client
		}
	}
}

// WithInterval sets the time between checks.
func WithInterval(interval time.Duration) ProbeOption {
	return func(p *Probe) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithTimeout bounds a single check.
func WithTimeout(timeout time.Duration) ProbeOption {
	return func(p *Probe) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithLogger sets the logger for transitions.
func WithLogger(logger *zap.Logger) ProbeOption {
	return func(p *Probe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithInitial sets the state reported before the first check completes.
// Probes start online by default.
func WithInitial(online bool) ProbeOption {
	return func(p *Probe) {
		p.b.online = online
	}
}

// Probe is a Signal that periodically issues HEAD requests to a URL. Any
// response, whatever its status, counts as online; transport errors count as
// offline.
type Probe struct {
	b        broadcaster
	url      string
	client   *http.Client
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewProbe builds a stopped probe for url.
func NewProbe(url string, options ...ProbeOption) (*Probe, error) {
	if url == "" {
		return nil, errors.New("connectivity: probe url is required")
	}
	p := &Probe{
		url:      url,
		client:   http.DefaultClient,
		interval: defaultProbeInterval,
		timeout:  defaultProbeTimeout,
		logger:   zap.NewNop(),
	}
	p.b.online = true
	p.b.known = true
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Online reports the last observed state.
func (p *Probe) Online() bool { return p.b.current() }

// Subscribe implements Signal.
func (p *Probe) Subscribe(fn func(bool)) func() { return p.b.subscribe(fn) }

// Check runs one probe and publishes the result.
func (p *Probe) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	online := false
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err == nil {
		var resp *http.Response
		resp, err = p.client.Do(req)
		if err == nil {
			resp.Body.Close()
			online = true
		}
	}
	if !online && ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Cancelled by Stop; the result says nothing about the network.
		return p.b.current()
	}
	if p.b.publish(online) {
		if online {
			p.logger.Info("connectivity restored", zap.String("url", p.url))
		} else {
			p.logger.Info("connectivity lost", zap.String("url", p.url), zap.Error(err))
		}
	}
	return online
}

// Start runs a check immediately and then once per interval until Stop or
// ctx is done. Calling Start on a running probe is a no-op.
func (p *Probe) Start(ctx context.Context) {
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

// Stop halts the loop and waits for it to exit.
func (p *Probe) Stop() {
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

func (p *Probe) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.Check(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
