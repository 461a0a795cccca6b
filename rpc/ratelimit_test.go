package rpc

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func limitedHandler(limiter *RateLimiter) http.Handler {
	return limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func sendFrom(handler http.Handler, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitIgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1}, nil)
	handler := limitedHandler(limiter)

	require.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.1:4000", map[string]string{"X-Real-IP": "198.51.100.0"}))
	for i := 1; i < 50; i++ {
		headers := map[string]string{
			"X-Real-IP":       fmt.Sprintf("198.51.100.%d", i),
			"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i),
		}
		require.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "10.0.0.1:4000", headers), "request %d", i)
	}
	require.Equal(t, 1, limiter.visitorCount())
}

func TestRateLimitHonoursTrustedProxy(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1}, []string{"10.0.0.0/8"})
	handler := limitedHandler(limiter)

	require.Equal(t, http.StatusOK, sendFrom(handler, "10.1.2.3:4000", map[string]string{"X-Real-IP": "198.51.100.1"}))
	require.Equal(t, http.StatusOK, sendFrom(handler, "10.1.2.3:4000", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.1.2.3"}))
	require.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "10.1.2.3:4000", map[string]string{"X-Real-IP": "198.51.100.1"}))
	// A garbage header from a trusted proxy falls back to the proxy address.
	require.Equal(t, http.StatusOK, sendFrom(handler, "10.1.2.3:4000", map[string]string{"X-Real-IP": "not-an-ip"}))
	require.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "10.1.2.3:4000", nil))
}

func TestRateLimitSweepsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.allow("198.51.100.1"))
	require.True(t, limiter.allow("198.51.100.2"))
	require.Equal(t, 2, limiter.visitorCount())

	now = now.Add(visitorIdleTTL + visitorSweepPeriod)
	require.True(t, limiter.allow("198.51.100.3"))
	require.Equal(t, 1, limiter.visitorCount())
}

func TestParseProxy(t *testing.T) {
	for _, entry := range []string{"10.0.0.1", " 192.168.0.0/16 ", "::1", "2001:db8::/32"} {
		_, ok := parseProxy(entry)
		require.True(t, ok, entry)
	}
	for _, entry := range []string{"", "proxy.local", "10.0.0.0/99"} {
		_, ok := parseProxy(entry)
		require.False(t, ok, entry)
	}
}
