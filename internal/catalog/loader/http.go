package loader

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goliatone/go-dynforms/pkg/catalog"
)

// fetch GETs a catalog endpoint. Transport failures and non-2xx responses
// become *catalog.NetworkError.
func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	if l.client == nil {
		return nil, ErrHTTPDisabled
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &catalog.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &catalog.NetworkError{URL: url, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	data, err := readLimited(resp.Body)
	if errors.Is(err, ErrTooLarge) {
		return nil, err
	}
	if err != nil {
		return nil, &catalog.NetworkError{URL: url, Err: err}
	}
	return data, nil
}
