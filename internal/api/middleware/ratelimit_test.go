package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/futig/uiprime-backend/internal/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	decision ratelimit.Decision
	err      error
	identity string
}

func (s *stubLimiter) Allow(_ context.Context, _ string, identity string) (ratelimit.Decision, error) {
	s.identity = identity
	return s.decision, s.err
}

func serve(t *testing.T, limiter ratelimit.Limiter) (*httptest.ResponseRecorder, string, bool) {
	t.Helper()

	clientIP, err := NewClientIP(nil)
	require.NoError(t, err)

	var (
		reached  bool
		identity string
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		identity = ClientIdentity(r.Context())
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "192.0.2.44:1234"
	rec := httptest.NewRecorder()
	RateLimit(limiter, ratelimit.OperationChat, clientIP)(next).ServeHTTP(rec, req)

	return rec, identity, reached
}

func TestRateLimit_Allowed(t *testing.T) {
	limiter := &stubLimiter{decision: ratelimit.Decision{Allowed: true}}

	_, identity, reached := serve(t, limiter)

	assert.True(t, reached)
	assert.Equal(t, "192.0.2.44", identity)
	assert.Equal(t, "192.0.2.44", limiter.identity)
}

func TestRateLimit_Denied(t *testing.T) {
	limiter := &stubLimiter{decision: ratelimit.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}}

	rec, _, reached := serve(t, limiter)

	assert.False(t, reached)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests. Try again later."}`, rec.Body.String())
}

func TestRateLimit_LimiterFailureFailsOpen(t *testing.T) {
	limiter := &stubLimiter{err: errors.New("redis: connection refused")}

	rec, _, reached := serve(t, limiter)

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_RotatingForwardedHopDoesNotResetQuota(t *testing.T) {
	clientIP, err := NewClientIP([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	limiter := ratelimit.NewMemoryLimiter(ratelimit.Policies{
		ratelimit.OperationContact: {Limit: 3, Window: time.Minute},
	}, time.Minute)
	handler := RateLimit(limiter, ratelimit.OperationContact, clientIP)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)

	codes := make([]int, 0, 4)
	for _, forged := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Forwarded-For", forged+", 198.51.100.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
