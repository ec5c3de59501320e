package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Deynao1996/missing-persons-finder/internal/core/domain"
)

func TestNew_Defaults(t *testing.T) {
	l := New(Config{})

	assert.InDelta(t, domain.DefaultRequestsPerSec, float64(l.limiter.Limit()), 1e-9)
	assert.Equal(t, domain.DefaultBurst, l.limiter.Burst())
}

func TestLimiter_WaitAndAllow(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, Burst: 2})

	require.NoError(t, l.Wait(context.Background()))
	assert.True(t, l.Allow())
}

func TestLimiter_Backoff(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, Burst: 10})

	l.Backoff(time.Hour)
	assert.False(t, l.Allow())

	// A shorter window keeps the longer one.
	before := l.RetryAt()
	l.Backoff(time.Second)
	assert.Equal(t, before, l.RetryAt())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}

func TestLimiter_BackoffDefault(t *testing.T) {
	l := New(Config{})

	l.Backoff(0)
	assert.WithinDuration(t, time.Now().Add(DefaultBackoff), l.RetryAt(), 5*time.Second)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 30*time.Second, ParseRetryAfter("30", now))
	assert.Equal(t, 2*time.Minute, ParseRetryAfter(now.Add(2*time.Minute).Format(http.TimeFormat), now))
	assert.Zero(t, ParseRetryAfter("", now))
	assert.Zero(t, ParseRetryAfter("-5", now))
	assert.Zero(t, ParseRetryAfter("soon", now))
	assert.Zero(t, ParseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
}

func TestClient_Do_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(HeaderRetryAfter, "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.Client(), New(Config{RequestsPerSecond: 100, Burst: 10}), 0)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), client.Limiter().RetryAt(), 5*time.Second)
}

func TestClient_Do_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(nil, New(Config{RequestsPerSecond: 100, Burst: 10}), time.Second)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestClient_Do_CancelledContext(t *testing.T) {
	client := NewClient(nil, nil, 0)
	client.Limiter().Backoff(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:1", nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	get := func(path string) *http.Response {
		resp, err := server.Client().Get(server.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp
	}

	assert.NoError(t, StatusError(get("/ok")))
	assert.ErrorIs(t, StatusError(get("/missing")), domain.ErrNotFound)
	assert.ErrorIs(t, StatusError(get("/broken")), domain.ErrSourceUnavailable)
}
