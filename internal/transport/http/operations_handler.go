package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	apierrors "neurphys/internal/errors"
	"neurphys/internal/infrastructure"
	"neurphys/internal/middleware"
	"neurphys/internal/operations"
	"neurphys/internal/services"
	apiv1 "neurphys/pkg/contracts/api/v1"
)

// OperationsHandler handles pipeline operation endpoints
type OperationsHandler struct {
	service      *services.OperationService
	validator    *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service *services.OperationService, validator *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "operations")),
	}
}

// Routes returns a chi router for operation endpoints
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/types", h.GetOperationTypes)
	r.Get("/metrics", h.GetMetrics)
	r.Post("/", h.StartOperation)
	r.Get("/", h.ListOperations)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetOperationStatus)
		r.Post("/cancel", h.CancelOperation)
	})

	return r
}

// StartOperation handles POST /api/operations
func (h *OperationsHandler) StartOperation(w http.ResponseWriter, r *http.Request) {
	ctx, span := infrastructure.StartSpan(r.Context(), "operations_handler.start",
		attribute.String("http.route", "/api/operations"))
	defer span.End()

	var data apiv1.OperationStartRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(data); err != nil {
		infrastructure.RecordError(ctx, err)
		h.errorHandler.HandleError(w, r, err)
		return
	}

	operationID := middleware.GetReqID(ctx)
	if operationID == "" {
		operationID = uuid.New().String()
	}

	req := operations.OperationRequest{
		ID:         operationID,
		InputDir:   data.InputDir,
		OutputDir:  data.OutputDir,
		Format:     data.Format,
		Parameters: map[string]interface{}{},
	}
	for k, v := range data.Parameters {
		req.Parameters[k] = v
	}
	// A single-step mode runs just that step; full_pipeline runs them all
	// in dependency order.
	req.Parameters["step"] = data.Mode

	span.SetAttributes(
		attribute.String("operation.id", operationID),
		attribute.String("operation.mode", data.Mode),
	)

	h.logger.InfoContext(ctx, "starting operation",
		slog.String("operation_id", operationID),
		slog.String("mode", data.Mode),
		slog.String("format", data.Format))

	// The pipeline runs in the background on a context that outlives this
	// request; clients follow progress over the WebSocket or by polling.
	opCtx := infrastructure.WithTraceID(context.Background(), infrastructure.GetTraceID(ctx))
	go func() {
		if _, err := h.service.Start(opCtx, req); err != nil {
			h.logger.ErrorContext(opCtx, "operation failed",
				slog.String("operation_id", operationID),
				slog.String("error", err.Error()))
		}
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"id":       operationID,
		"status":   string(operations.OperationStatusPending),
		"poll_url": "/api/operations/" + operationID,
	})
}

// ListOperations handles GET /api/operations
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	states := h.service.List(ctx)
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := states[:0:0]
		for _, st := range states {
			if string(st.Status) == status {
				filtered = append(filtered, st)
			}
		}
		states = filtered
	}

	render.JSON(w, r, map[string]interface{}{
		"operations": states,
		"count":      len(states),
	})
}

// GetOperationStatus handles GET /api/operations/{id}
func (h *OperationsHandler) GetOperationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	state, err := h.service.Status(ctx, id)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.JSON(w, r, state)
}

// CancelOperation handles POST /api/operations/{id}/cancel
func (h *OperationsHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Cancel(ctx, id); err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	h.logger.InfoContext(ctx, "operation cancelled", slog.String("operation_id", id))

	render.JSON(w, r, map[string]interface{}{
		"id":     id,
		"status": string(operations.OperationStatusCancelled),
	})
}

// GetOperationTypes handles GET /api/operations/types
func (h *OperationsHandler) GetOperationTypes(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"types": h.service.Types(r.Context()),
	})
}

// GetMetrics handles GET /api/operations/metrics
func (h *OperationsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Metrics(r.Context()))
}
