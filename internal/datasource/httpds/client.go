// Package httpds fetches CSV uploads over HTTP with retry and exponential
// backoff on transient failures.
package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/sirupsen/logrus"
)

// Config configures a Remote. Zero values get defaults: Timeout 30s,
// InitialBackoff 200ms, MaxBackoff 5s. MaxRetries=0 means a single attempt.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Headers        http.Header
	Transport      http.RoundTripper
}

// Remote is a datasource reading one URL.
type Remote struct {
	url            string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	headers        http.Header

	// wait is swapped in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewRemote returns a Remote for url.
func NewRemote(url string, cfg Config) *Remote {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &Remote{
		url:            url,
		httpClient:     &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		headers:        cfg.Headers.Clone(),
		wait:           sleepWithContext,
	}
}

// Name returns the last path element of the URL.
func (r *Remote) Name() string {
	req, err := http.NewRequest(http.MethodGet, r.url, nil)
	if err != nil || req.URL.Path == "" || req.URL.Path == "/" {
		return r.url
	}
	return path.Base(req.URL.Path)
}

// Open GETs the URL. 429 and 5xx responses and transport errors are retried;
// any other non-2xx status is returned as an error immediately.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			d := backoffDuration(r.initialBackoff, attempt-1, r.maxBackoff)
			logrus.WithFields(logrus.Fields{"url": r.url, "attempt": attempt, "backoff": d}).
				WithError(lastErr).Debug("retrying download")
			if err := r.wait(ctx, d); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
		if err != nil {
			return nil, fmt.Errorf("httpds: build request: %w", err)
		}
		for k, vs := range r.headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.Body, nil
		}
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("httpds: GET %s: status %d", r.url, resp.StatusCode)
		if !isRetryableStatus(resp.StatusCode) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// isRetryableStatus treats 429 and 5xx as transient.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoffDuration is initial * 2^attempt, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
