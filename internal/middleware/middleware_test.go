package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "neurphys/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRequestIDSetsHeaderAndContext(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetReqID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	headerID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, headerID)
	assert.Equal(t, headerID, ctxID)
}

func TestRequestIDHonorsIncomingHeader(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/recordings", nil)
	req.Header.Set("X-Request-ID", "upstream-id-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-id-42", rec.Header().Get("X-Request-ID"))
}

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 2, testLogger())
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])
	assert.Equal(t, http.StatusTooManyRequests, statuses[2])
}

func TestRateLimiterProblemResponse(t *testing.T) {
	rl := NewRateLimiter(0, 0, testLogger())
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate-limit-exceeded")
}

func TestRecovererConvertsPanicToProblem(t *testing.T) {
	handler := Recoverer(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "internal-server-error")
}

func TestTimeoutReturnsGatewayTimeout(t *testing.T) {
	handler := Timeout(20*time.Millisecond, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/operations", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "request-timeout")
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator("application/json")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("accepts json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/operations", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/operations", strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unsupported media type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/operations", strings.NewReader("<xml/>"))
		req.Header.Set("Content-Type", "application/xml")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("skips GET requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recordings", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestValidateRequestRejectsInvalidJSON(t *testing.T) {
	m := NewValidationMiddleware(testLogger(), apierrors.NewErrorHandler(testLogger()))
	handler := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/operations", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateRequestPassesBodyThrough(t *testing.T) {
	m := NewValidationMiddleware(testLogger(), apierrors.NewErrorHandler(testLogger()))
	var seen []byte
	handler := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	body := []byte(`{"mode":"full_pipeline"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/operations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, seen)
}

func TestValidateStruct(t *testing.T) {
	m := NewValidationMiddleware(testLogger(), apierrors.NewErrorHandler(testLogger()))

	type startRequest struct {
		Mode   string `json:"mode" validate:"required,oneof=full_pipeline import process analyze export"`
		Source string `json:"source" validate:"omitempty,filename"`
	}

	t.Run("valid", func(t *testing.T) {
		err := m.ValidateStruct(startRequest{Mode: "import", Source: "cell01.abf"})
		assert.NoError(t, err)
	})

	t.Run("missing mode", func(t *testing.T) {
		err := m.ValidateStruct(startRequest{})
		require.Error(t, err)
		apiErr, ok := err.(*apierrors.APIError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		err := m.ValidateStruct(startRequest{Mode: "import", Source: "../etc/passwd"})
		assert.Error(t, err)
	})
}

func TestQueryParamValidator(t *testing.T) {
	v := NewQueryParamValidator(testLogger(), apierrors.NewErrorHandler(testLogger()))

	t.Run("int default", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recordings", nil)
		rec := httptest.NewRecorder()
		got, ok := v.ValidateInt(rec, req, "limit", 1, 100, 25)
		assert.True(t, ok)
		assert.Equal(t, 25, got)
	})

	t.Run("int out of range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recordings?limit=500", nil)
		rec := httptest.NewRecorder()
		_, ok := v.ValidateInt(rec, req, "limit", 1, 100, 25)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("enum", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recordings?format=abf", nil)
		rec := httptest.NewRecorder()
		got, ok := v.ValidateEnum(rec, req, "format", []string{"abf", "prairieview"}, "")
		assert.True(t, ok)
		assert.Equal(t, "abf", got)
	})

	t.Run("enum rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recordings?format=wav", nil)
		rec := httptest.NewRecorder()
		_, ok := v.ValidateEnum(rec, req, "format", []string{"abf", "prairieview"}, "")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
