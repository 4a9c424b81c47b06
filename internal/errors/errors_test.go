package errors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorInterface(t *testing.T) {
	err := New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	assert.Equal(t, "Resource not found", err.Error())
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
}

func TestErrValidationDetails(t *testing.T) {
	err := ErrValidation("window", "window must be positive")
	details, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "window", details.Field)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestProblemDetailsMarshalIncludesExtensions(t *testing.T) {
	pd := NewProblemDetails(http.StatusConflict, TypeOperationRunning,
		"Operation already running", "operation abc is active", "/api/operations")
	pd.WithExtension("operation_id", "abc")

	raw, err := json.Marshal(pd)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, TypeOperationRunning, decoded["type"])
	assert.Equal(t, float64(http.StatusConflict), decoded["status"])
	assert.Equal(t, "abc", decoded["operation_id"])
}

func TestErrorToProblem(t *testing.T) {
	h := NewErrorHandler(slog.Default())
	r := httptest.NewRequest(http.MethodGet, "/api/recordings/xyz", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"api not found", RecordingNotFoundError("xyz"), http.StatusNotFound, TypeNotFound},
		{"api validation", ErrValidation("f", "m"), http.StatusBadRequest, TypeValidation},
		{"unreadable file", UnreadableFileError(assert.AnError), http.StatusUnprocessableEntity, TypeUnreadableFile},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"unknown", assert.AnError, http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/recordings/xyz", problem.Instance)
		})
	}
}

func TestHandleErrorWritesProblemJSON(t *testing.T) {
	h := NewErrorHandler(slog.Default())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/recordings", nil)

	h.HandleError(w, r, ErrOperationRunning)

	assert.Equal(t, http.StatusConflict, w.Code)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, TypeOperationRunning, decoded["type"])
}
