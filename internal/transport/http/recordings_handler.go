package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "neurphys/internal/errors"
	"neurphys/internal/services"
)

// RecordingsHandler handles recording discovery and read endpoints
type RecordingsHandler struct {
	service      *services.RecordingService
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewRecordingsHandler creates a new recordings handler
func NewRecordingsHandler(service *services.RecordingService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *RecordingsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingsHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "recordings")),
	}
}

// Routes returns a chi router for recording endpoints
func (h *RecordingsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListRecordings)
	r.Route("/{name}", func(r chi.Router) {
		r.Get("/", h.GetRecording)
		r.Get("/summary", h.GetSummary)
		r.Get("/sweeps/{number}", h.GetSweep)
	})

	return r
}

// ListRecordings handles GET /api/recordings
func (h *RecordingsHandler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recordings, err := h.service.ListRecordings(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	if format := r.URL.Query().Get("format"); format != "" {
		filtered := recordings[:0:0]
		for _, rec := range recordings {
			if rec.Format == format {
				filtered = append(filtered, rec)
			}
		}
		recordings = filtered
	}

	render.JSON(w, r, map[string]interface{}{
		"recordings": recordings,
		"count":      len(recordings),
	})
}

// GetRecording handles GET /api/recordings/{name}
func (h *RecordingsHandler) GetRecording(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	recording, err := h.service.GetRecording(ctx, name)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load recording",
			slog.String("name", name),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.JSON(w, r, recording)
}

// GetSummary handles GET /api/recordings/{name}/summary
func (h *RecordingsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	summary, err := h.service.GetSummary(ctx, name)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.JSON(w, r, summary)
}

// GetSweep handles GET /api/recordings/{name}/sweeps/{number}
func (h *RecordingsHandler) GetSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number < 1 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("number", "sweep number must be a positive integer"))
		return
	}

	sweep, err := h.service.GetSweep(ctx, name, number)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"recording": name,
		"number":    number,
		"sweep":     sweep,
	})
}

// ReportsHandler handles generated report listing
type ReportsHandler struct {
	service      *services.RecordingService
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(service *services.RecordingService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ReportsHandler {
	return &ReportsHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "reports")),
	}
}

// Routes returns a chi router for report endpoints
func (h *ReportsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListReports)
	return r
}

// ListReports handles GET /api/reports
func (h *ReportsHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reports, err := h.service.ListReports(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, mapServiceError(err))
		return
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := reports[:0:0]
		for _, rep := range reports {
			if rep.Kind == kind {
				filtered = append(filtered, rep)
			}
		}
		reports = filtered
	}

	render.JSON(w, r, map[string]interface{}{
		"reports": reports,
		"count":   len(reports),
	})
}
