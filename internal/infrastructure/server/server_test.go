package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/DocSandbox/backend/internal/domain/documents"
	"github.com/GriffinCanCode/DocSandbox/backend/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Documents.Root = t.TempDir()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	return cfg
}

func TestNewServerRejectsMissingRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Documents.Root = cfg.Documents.Root + "/does-not-exist"

	_, err := NewServer(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, documents.ErrFatal)
}

func TestServerRoutes(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	h := srv.Handler()
	serve := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, target, nil)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := serve("GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	w = serve("POST", "/documents", `{"parent_id":"root:","mime_type":"text/plain","display_name":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve("PUT", "/documents/content?id=root:hello.txt", "hi there")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve("GET", "/documents/content?id=root:hello.txt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi there", w.Body.String())

	w = serve("GET", "/documents?id=root:hello.txt", "")
	require.Equal(t, http.StatusOK, w.Code)
	var doc documents.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, int64(8), doc.Size)

	w = serve("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docsandbox_http_requests_total")
	assert.Contains(t, w.Body.String(), "docsandbox_service_calls_total")

	w = serve("GET", "/metrics/json", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerUploadLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxUploadBytes = 4
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	_, err = srv.Documents().Create("root:", "text/plain", "small.txt")
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/documents/content?id=root:small.txt", strings.NewReader("far too long"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServerUploadLimitAppliesAfterDecompression(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxUploadBytes = 64 << 10
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	target := filepath.Join(cfg.Documents.Root, "big.bin")
	require.NoError(t, os.WriteFile(target, []byte("original content"), 0o644))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(make([]byte, 10<<20))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, buf.Len(), int(cfg.Server.MaxUploadBytes))

	req := httptest.NewRequest("PUT", "/documents/content?id=root:big.bin", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original content", string(got))
}

func TestServerRejectedUploadKeepsContent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxUploadBytes = 1 << 10
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	target := filepath.Join(cfg.Documents.Root, "notes.txt")
	require.NoError(t, os.WriteFile(target, []byte("original content"), 0o644))

	// MultiReader hides the length, so the body arrives without Content-Length.
	body := io.MultiReader(strings.NewReader(strings.Repeat("x", 4<<10)))
	req := httptest.NewRequest("PUT", "/documents/content?id=root:notes.txt", body)
	require.Equal(t, int64(-1), req.ContentLength)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original content", string(got))
}

func TestServerLogLevel(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	serve := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/admin/log-level", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w
	}

	w := serve("GET", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"level":"error"}`, w.Body.String())

	w = serve("PUT", `{"level":"debug"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"level":"debug"}`, w.Body.String())
	assert.Equal(t, "debug", srv.logger.Level())

	w = serve("PUT", `{"level":"chatty"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "debug", srv.logger.Level())
}

func TestServerGlobalRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Scope = config.RateLimitGlobal
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	codes := make([]int, 0, 2)
	for _, addr := range []string{"10.0.0.1:1000", "10.0.0.2:1000"} {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServerMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunAndShutdown(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
