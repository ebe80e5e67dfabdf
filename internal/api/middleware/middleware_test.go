package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestCORS(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{
			name:           "simple GET request with origin",
			method:         "GET",
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusOK,
			wantCORSHeader: true,
		},
		{
			name:           "preflight OPTIONS request",
			method:         "OPTIONS",
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusNoContent,
			wantCORSHeader: true,
		},
		{
			name:           "no origin header",
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORSHeader: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/documents", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == "OPTIONS" {
				req.Header.Set("Access-Control-Request-Method", "PUT")
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"), "CORS header should be set")
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSExposesTraceHeaders(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/documents", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/documents", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Trace-Id")
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	// First 2 requests should succeed (burst capacity)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	// Third request should be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded","code":"rate_limited"}`, w.Body.String())
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	send := func(addr string) int {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("192.168.1.1:1234"))
	assert.Equal(t, http.StatusOK, send("192.168.1.2:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.168.1.1:1234"))
}

func TestClientLimitersEvictIdle(t *testing.T) {
	now := time.Unix(1000, 0)
	limiters := newClientLimiters(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	limiters.now = func() time.Time { return now }

	assert.True(t, limiters.allow("10.0.0.1"))
	assert.True(t, limiters.allow("10.0.0.2"))
	assert.Equal(t, 2, limiters.len())

	now = now.Add(2 * time.Minute)
	assert.True(t, limiters.allow("10.0.0.3"))
	assert.Equal(t, 1, limiters.len())
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.9:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "request %d", i+1)
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := setupTestRouter()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":"internal"}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := setupTestRouter()
	router.Use(AccessLog(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/broken", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/missing", "/broken"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.DebugLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	entry := logs.FilterMessage("Request rejected").All()[0]
	assert.Equal(t, int64(http.StatusNotFound), entry.ContextMap()["status"])
}

func TestBodyLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(BodyLimit(8))
	router.PUT("/upload", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(data))
	})

	tests := []struct {
		name       string
		body       string
		chunked    bool
		wantStatus int
	}{
		{"under the limit", "tiny", false, http.StatusOK},
		{"declared too large", "way past eight bytes", false, http.StatusRequestEntityTooLarge},
		{"streamed too large", "way past eight bytes", true, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PUT", "/upload", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
