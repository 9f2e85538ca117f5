package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimit_RequestsWithinLimit_Pass(t *testing.T) {
	handler := RateLimit(10, 10, discardLogger())(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/reviews", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "request %d should pass", i+1)
	}
}

func TestRateLimit_ExceedingBurst_Returns429(t *testing.T) {
	handler := RateLimit(1, 3, discardLogger())(okHandler())

	var rateLimited bool
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/reviews", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code == http.StatusTooManyRequests {
			rateLimited = true
			assert.Contains(t, rr.Body.String(), "RATE_LIMITED")
			break
		}
	}

	assert.True(t, rateLimited, "should have been rate limited after exceeding burst")
}

func TestRateLimit_DifferentIPs_IndependentLimits(t *testing.T) {
	handler := RateLimit(1, 2, discardLogger())(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	// A second client gets its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.2:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit_ResponseBody_ContainsErrorCode(t *testing.T) {
	handler := RateLimit(1, 1, discardLogger())(okHandler())

	req1 := httptest.NewRequest(http.MethodPost, "/", nil)
	req1.RemoteAddr = "172.16.0.1:12345"
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req1)
	assert.Equal(t, http.StatusOK, rr1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/", nil)
	req2.RemoteAddr = "172.16.0.1:12345"
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req2)

	assert.Equal(t, http.StatusTooManyRequests, rr2.Code)
	assert.Contains(t, rr2.Body.String(), "RATE_LIMITED")
	assert.Contains(t, rr2.Body.String(), "too many requests")
}

func TestVisitorStore_CleanupRemovesStaleEntries(t *testing.T) {
	store := newVisitorStore(1, 1, time.Minute)

	now := time.Now()
	store.nowFunc = func() time.Time { return now }
	store.getVisitor("10.0.0.1")
	store.getVisitor("10.0.0.2")
	assert.Equal(t, 2, store.len())

	// Advance the clock past the TTL for one visitor only.
	now = now.Add(2 * time.Minute)
	store.getVisitor("10.0.0.2")
	store.cleanup()

	assert.Equal(t, 1, store.len())
}

func TestClientIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.9")
	req.RemoteAddr = "10.0.0.1:12345"

	assert.Equal(t, "203.0.113.50", clientIP(req))
}

func TestClientIP_XRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.42")
	req.RemoteAddr = "10.0.0.1:12345"

	assert.Equal(t, "198.51.100.42", clientIP(req))
}

func TestClientIP_RemoteAddrFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"

	assert.Equal(t, "10.0.0.1", clientIP(req))
}

func TestClientIP_GarbageForwardedHeaderIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	req.RemoteAddr = "10.0.0.1:12345"

	assert.Equal(t, "10.0.0.1", clientIP(req))
}
