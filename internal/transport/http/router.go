package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"neurphys/internal/config"
	apierrors "neurphys/internal/errors"
	"neurphys/internal/infrastructure"
	"neurphys/internal/middleware"
	"neurphys/internal/services"
	ws "neurphys/internal/websocket"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Providers  *infrastructure.OTelProviders
	Recordings *services.RecordingService
	Operations *services.OperationService
	Health     *services.HealthService
	Hub        *ws.Hub
}

// NewRouter assembles the middleware chain and mounts every handler.
func NewRouter(deps RouterDeps) (chi.Router, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	errorHandler := apierrors.NewErrorHandler(logger)
	validation := middleware.NewValidationMiddleware(logger, errorHandler)

	r := chi.NewRouter()

	// Order matters: request IDs first so every later middleware logs them.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Compress(5))
	r.Use(middleware.CORS(middleware.CORSConfig{Logger: logger}))

	if deps.Providers != nil {
		otelMW, err := middleware.NewOTelMiddleware(deps.Providers)
		if err != nil {
			return nil, err
		}
		r.Use(otelMW.Handler)

		if deps.Providers.PrometheusHTTP != nil {
			r.Handle("/metrics", deps.Providers.PrometheusHTTP)
		}
	}

	rateLimiter := middleware.NewRateLimiter(
		cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimiter.Handler)
		r.Use(middleware.ContentTypeValidator("application/json"))
		r.Use(validation.ValidateRequest)

		healthHandler := NewHealthHandler(deps.Health, logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Mount("/recordings", NewRecordingsHandler(deps.Recordings, errorHandler, logger).Routes())
		r.Mount("/reports", NewReportsHandler(deps.Recordings, errorHandler, logger).Routes())
		r.Mount("/operations", NewOperationsHandler(deps.Operations, validation, errorHandler, logger).Routes())
	})

	if deps.Hub != nil {
		wsHandler := NewWebSocketHandler(deps.Hub, cfg.WebSocket, errorHandler, logger)
		r.Method(http.MethodGet, "/ws", wsHandler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, apierrors.NotFoundError(r.URL.Path))
	})

	return r, nil
}
