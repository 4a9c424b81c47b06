package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"neurphys/internal/config"
	"neurphys/internal/infrastructure"
	"neurphys/internal/operations"
	"neurphys/internal/services"
	transport "neurphys/internal/transport/http"
	ws "neurphys/internal/websocket"
	"neurphys/pkg/contracts"
)

// Application is the dependency container for the neurphys service.
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	WebSocketHub     *ws.Hub
	RecordingService *services.RecordingService
	OperationService *services.OperationService
	HealthService    *services.HealthService
	Server           *http.Server
}

// NewApplication loads configuration and builds the full service graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", contracts.GetVersionString()),
		slog.Int("port", cfg.Server.Port))

	paths, err := config.FromConfig(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if err := operations.InitGlobalOperationTracer(otelProviders); err != nil {
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}
	if err := ws.InitOTelMetrics(otelProviders); err != nil {
		return nil, fmt.Errorf("failed to initialize WebSocket metrics: %w", err)
	}

	hub := ws.NewHub(logger)
	hub.Start()

	recordingService := services.NewRecordingService(paths, cfg.Operations.ImportWorkers, logger)
	operationService, err := services.NewOperationService(cfg, paths, hub, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize operation service: %w", err)
	}
	healthService := services.NewHealthService(paths, hub, operationService, logger)

	router, err := transport.NewRouter(transport.RouterDeps{
		Config:     cfg,
		Logger:     logger,
		Providers:  otelProviders,
		Recordings: recordingService,
		Operations: operationService,
		Health:     healthService,
		Hub:        hub,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	app := &Application{
		Config:           cfg,
		Paths:            paths,
		Logger:           logger,
		OTelProviders:    otelProviders,
		WebSocketHub:     hub,
		RecordingService: recordingService,
		OperationService: operationService,
		HealthService:    healthService,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
	return app, nil
}

// Start begins serving. It returns immediately; cancel is invoked if the
// listener fails so that Run can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("reports_dir", a.Paths.ReportsDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	return nil
}

// Stop drains the server and shuts down every subsystem.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run serves until an interrupt or termination signal arrives.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
	}

	return a.Stop(context.Background())
}
