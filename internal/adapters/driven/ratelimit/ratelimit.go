// Package ratelimit provides the token-bucket limiter and HTTP helper shared by
// the outbound adapters (Telegram bridge, web listing, descriptor service).
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
const HeaderRetryAfter = "Retry-After"

// DefaultBackoff applies when a 429 response carries no usable Retry-After.
const DefaultBackoff = 60 * time.Second

// Config holds rate limiting configuration for one remote service.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// Burst is the maximum burst size.
	Burst int
}

// Limiter is a token bucket with a backoff window set by 429 responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// New creates a limiter. Non-positive values fall back to the domain defaults.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = domain.DefaultRequestsPerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = domain.DefaultBurst
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff window set by Backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Allow reports whether a request can be made immediately.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}

// Backoff blocks requests for d. A shorter backoff never shrinks a longer one.
func (l *Limiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if until := time.Now().Add(d); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// RetryAt returns the end of the current backoff window.
func (l *Limiter) RetryAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt
}

// ParseRetryAfter reads a Retry-After value in seconds or as an HTTP date.
// Returns zero when the value is missing or unparseable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// Client sends rate-limited HTTP requests.
type Client struct {
	http    *http.Client
	limiter *Limiter
}

// NewClient wraps an HTTP client with a limiter. A nil client uses a default
// client with the given timeout.
func NewClient(httpClient *http.Client, limiter *Limiter, timeout time.Duration) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = domain.DefaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if limiter == nil {
		limiter = New(Config{})
	}
	return &Client{http: httpClient, limiter: limiter}
}

// Limiter returns the client's limiter.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

// Do waits for the limiter and sends req.
// Transport failures wrap domain.ErrSourceUnavailable. A 429 response is
// closed, starts a backoff window and returns an error wrapping
// domain.ErrRateLimited. Other statuses are returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrSourceUnavailable, req.Method, req.URL.Redacted(), err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := ParseRetryAfter(resp.Header.Get(HeaderRetryAfter), time.Now())
		_ = resp.Body.Close()
		c.limiter.Backoff(wait)
		return nil, fmt.Errorf("%w: %s %s", domain.ErrRateLimited, req.Method, req.URL.Redacted())
	}

	return resp, nil
}

// StatusError converts a non-2xx response into an error wrapping
// domain.ErrSourceUnavailable, or domain.ErrNotFound for 404.
func StatusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	sentinel := domain.ErrSourceUnavailable
	if resp.StatusCode == http.StatusNotFound {
		sentinel = domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s %s: status %d", sentinel, resp.Request.Method, resp.Request.URL.Redacted(), resp.StatusCode)
}
