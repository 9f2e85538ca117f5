package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS_WildcardInDevelopment(t *testing.T) {
	cfg := DefaultCORSConfig()
	handler := CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/p1/reviews", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardIgnoredOutsideDevelopment(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"*"},
		Environment:    "production",
	}
	handler := CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExplicitOriginAllowed(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		Environment:    "production",
	}
	handler := CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORS_UnlistedOriginGetsNoHeaders(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		Environment:    "production",
	}
	handler := CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://other.example.com")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		Environment:    "production",
		MaxAge:         600,
	}
	handler := CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products/p1/reviews", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PreflightFromUnlistedOrigin_NoAllowHeaders(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		Environment:    "production",
	}
	handler := CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://other.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_PlainOptionsWithoutRequestMethod_PassesThrough(t *testing.T) {
	handler := CORS(DefaultCORSConfig())(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(rec, req)

	// Not a preflight, so the wrapped handler answers.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_CredentialsAndExposedHeaders(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins:   []string{"https://shop.example.com"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		Environment:      "production",
	}
	handler := CORS(cfg)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "X-Correlation-ID", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORS_NoOriginHeader_NoCORSHeaders(t *testing.T) {
	handler := CORS(DefaultCORSConfig())(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Contains(t, cfg.AllowedOrigins, "*")
	assert.Contains(t, cfg.AllowedMethods, "DELETE")
	assert.Contains(t, cfg.AllowedHeaders, "X-Correlation-ID")
	assert.Equal(t, 3600, cfg.MaxAge)
	assert.Equal(t, "development", cfg.Environment)
}
