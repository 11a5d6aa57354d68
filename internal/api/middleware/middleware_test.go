package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	router.GET("/frames", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"frames": []string{}})
	})
	return router
}

func request(router http.Handler, method, remote, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/frames", nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
		if method == http.MethodOptions {
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSWildcard(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{"simple GET with origin", http.MethodGet, "http://localhost:3000", http.StatusOK, true},
		{"preflight", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, true},
		{"no origin header", http.MethodGet, "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(router, tt.method, "", tt.origin)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSExplicitOrigins(t *testing.T) {
	cfg := CORSConfigFor([]string{"https://host.example"})
	assert.True(t, cfg.AllowCredentials)

	router := setupTestRouter(CORS(cfg))

	w := request(router, http.MethodGet, "", "https://host.example")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://host.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = request(router, http.MethodGet, "", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSConfigFor(t *testing.T) {
	cfg := CORSConfigFor(nil)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.False(t, cfg.AllowCredentials)
	assert.Contains(t, cfg.AllowMethods, "DELETE")
	assert.Contains(t, cfg.ExposeHeaders, "X-Trace-ID")
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	for i := 0; i < 2; i++ {
		w := request(router, http.MethodGet, "192.168.1.1:1234", "")
		assert.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i+1)
	}

	w := request(router, http.MethodGet, "192.168.1.1:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "192.168.1.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "192.168.1.2:1234", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(router, http.MethodGet, "192.168.1.1:1234", "").Code)
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	set := newLimiterSet(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	set.now = func() time.Time { return now }

	assert.True(t, set.allow("a"))
	assert.True(t, set.allow("b"))
	assert.Equal(t, 2, set.size())

	now = now.Add(30 * time.Second)
	assert.True(t, set.allow("b"))

	now = now.Add(45 * time.Second)
	assert.True(t, set.allow("c"))
	// a idle for 75s is gone, b idle for 45s stays
	assert.Equal(t, 2, set.size())
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "192.168.1.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, request(router, http.MethodGet, "192.168.1.2:1234", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(router, http.MethodGet, "192.168.1.3:1234", "").Code)
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()

	assert.Equal(t, 100, cfg.RequestsPerSecond)
	assert.Equal(t, 200, cfg.Burst)
	assert.Equal(t, 10*time.Minute, cfg.IdleTTL)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter(RateLimit(DefaultRateLimitConfig()))
	req := httptest.NewRequest(http.MethodGet, "/frames", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
