// Package submission hands completed response sets to an external sink.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-dynforms/pkg/model"
	"github.com/goliatone/go-dynforms/pkg/responses"
)

// Record is exactly what a sink receives.
type Record struct {
	FormID    model.ID           `json:"formId"`
	Responses responses.Tree     `json:"responses"`
	Comments  responses.Comments `json:"comments"`
}

// Sink accepts a submission. A nil error means the sink took ownership.
type Sink interface {
	Submit(ctx context.Context, record Record) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, record Record) error

// Submit calls the underlying function.
func (fn SinkFunc) Submit(ctx context.Context, record Record) error {
	return fn(ctx, record)
}

// StatusError reports a non-2xx reply from an HTTP sink.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("submission: %s returned %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("submission: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// HTTPOption configures an HTTPSink.
type HTTPOption func(*HTTPSink)

// WithHTTPClient overrides the client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSink) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(s *HTTPSink) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) HTTPOption {
	return func(s *HTTPSink) {
		s.headers.Set(key, value)
	}
}

// HTTPSink POSTs the record as JSON.
type HTTPSink struct {
	url     string
	client  *http.Client
	timeout time.Duration
	headers http.Header
}

// NewHTTPSink builds a sink posting to url.
func NewHTTPSink(url string, options ...HTTPOption) *HTTPSink {
	s := &HTTPSink{
		url:     url,
		client:  http.DefaultClient,
		timeout: 10 * time.Second,
		headers: http.Header{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit implements Sink.
func (s *HTTPSink) Submit(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("submission: encode: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("submission: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("submission: post %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: s.url, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// LogSink writes submissions to a logger. The CLI uses it when no submit
// endpoint is configured.
type LogSink struct {
	Logger *zap.Logger
}

// Submit implements Sink.
func (s LogSink) Submit(_ context.Context, record Record) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("submission: encode: %w", err)
	}
	logger.Info("form submitted",
		zap.String("form_id", record.FormID.String()),
		zap.Int("answers", record.Responses.Len()),
		zap.Int("comments", record.Comments.Len()),
		zap.ByteString("record", payload),
	)
	return nil
}
