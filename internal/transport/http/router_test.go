package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/internal/config"
	"neurphys/internal/services"
)

func testConfig(t *testing.T) (*config.Config, *config.Paths) {
	t.Helper()

	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			RateLimitRPS:   1000,
			RateLimitBurst: 1000,
		},
		Operations: config.OperationsConfig{
			MaxRetries:    0,
			RetryDelay:    time.Millisecond,
			ImportWorkers: 2,
		},
	}
	return cfg, paths
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg, paths := testConfig(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	recordings := services.NewRecordingService(paths, cfg.Operations.ImportWorkers, logger)
	ops, err := services.NewOperationService(cfg, paths, nil, logger)
	require.NoError(t, err)
	health := services.NewHealthService(paths, nil, ops, logger)

	router, err := NewRouter(RouterDeps{
		Config:     cfg,
		Logger:     logger,
		Recordings: recordings,
		Operations: ops,
		Health:     health,
	})
	require.NoError(t, err)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded),
			"response body: %s", rec.Body.String())
	}
	return rec, decoded
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := testRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, []string{"healthy", "degraded"}, body["status"])

	rec, body = doJSON(t, router, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["version"])
}

func TestRouterSetsRequestIDHeader(t *testing.T) {
	router := testRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListRecordingsEmpty(t *testing.T) {
	router := testRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/api/recordings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
}

func TestGetRecordingNotFoundProblem(t *testing.T) {
	router := testRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/api/recordings/missing.abf", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/errors/not-found", body["type"])
	assert.NotNil(t, body["trace_id"])
}

func TestGetSweepRejectsBadNumber(t *testing.T) {
	router := testRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/recordings/cell01.abf/sweeps/zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListReports(t *testing.T) {
	cfg, paths := testConfig(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	recordings := services.NewRecordingService(paths, 1, logger)
	ops, err := services.NewOperationService(cfg, paths, nil, logger)
	require.NoError(t, err)
	health := services.NewHealthService(paths, nil, ops, logger)
	router, err := NewRouter(RouterDeps{
		Config: cfg, Logger: logger,
		Recordings: recordings, Operations: ops, Health: health,
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(paths.ReportsDir, "cell01.csv"), []byte("t,v\n"), 0o644))

	rec, body := doJSON(t, router, http.MethodGet, "/api/reports", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
}

func TestOperationTypes(t *testing.T) {
	router := testRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/api/operations/types", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	types, ok := body["types"].([]interface{})
	require.True(t, ok)
	ids := make([]string, 0, len(types))
	for _, tp := range types {
		ids = append(ids, tp.(map[string]interface{})["id"].(string))
	}
	assert.Contains(t, ids, "import")
	assert.Contains(t, ids, "full_pipeline")
}

func TestStartOperationValidation(t *testing.T) {
	router := testRouter(t)

	t.Run("missing mode", func(t *testing.T) {
		rec, body := doJSON(t, router, http.MethodPost, "/api/operations", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "/errors/validation", body["type"])
	})

	t.Run("unknown mode", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodPost, "/api/operations", `{"mode":"transcode"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec, _ := doJSON(t, router, http.MethodPost, "/api/operations", `{mode:`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/operations", strings.NewReader(`{"mode":"import"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStartOperationAcceptedBeforeCompletion(t *testing.T) {
	router := testRouter(t)

	// The POST answers before the pipeline runs; the outcome is observed
	// by polling. Import finds nothing in the empty data dir, so this
	// operation ends up failed.
	rec, body := doJSON(t, router, http.MethodPost, "/api/operations", `{"mode":"import"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "pending", body["status"])
	require.NotEmpty(t, body["id"])

	id := body["id"].(string)
	assert.Equal(t, "/api/operations/"+id, body["poll_url"])

	require.Eventually(t, func() bool {
		rec, body := doJSON(t, router, http.MethodGet, "/api/operations/"+id, "")
		return rec.Code == http.StatusOK && body["status"] == "failed"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestOperationStatusNotFound(t *testing.T) {
	router := testRouter(t)

	rec, body := doJSON(t, router, http.MethodGet, "/api/operations/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/errors/not-found", body["type"])
}

func TestUnknownRouteReturnsProblem(t *testing.T) {
	router := testRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	router := testRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
