package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"neurphys/internal/config"
	"neurphys/internal/exporter"
	"neurphys/internal/files"
	"neurphys/internal/operations"
	"neurphys/internal/websocket"
)

// OperationService wraps the pipeline manager behind the API surface.
type OperationService struct {
	manager *operations.Manager
	logger  *slog.Logger
	paths   *config.Paths
}

// NewOperationService builds the pipeline manager, registers the standard
// import/process/analyze/export steps, and wires progress broadcasting to
// the WebSocket hub.
func NewOperationService(cfg *config.Config, paths *config.Paths, hub *websocket.Hub, logger *slog.Logger) (*OperationService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "operation_service"))

	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare directories: %w", err)
	}

	logger.Info("OperationService initialized",
		slog.String("data_dir", paths.DataDir),
		slog.String("reports_dir", paths.ReportsDir))

	opConfig := operations.NewConfigBuilder().
		WithRetryConfig(operations.RetryConfig{
			MaxAttempts:  cfg.Operations.MaxRetries + 1,
			InitialDelay: cfg.Operations.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		}).
		WithImportWorkers(cfg.Operations.ImportWorkers).
		Build()
	if cfg.Operations.StepTimeout > 0 {
		opConfig.SetStepTimeout(operations.StepIDImport, cfg.Operations.StepTimeout)
	}

	// A typed-nil *Hub must not end up inside the interface.
	var wsHub operations.WebSocketHub
	if hub != nil {
		wsHub = hub
	}
	manager := operations.NewManager(wsHub, nil, opConfig)

	discovery := files.NewDiscovery(paths.DataDir)
	csv := exporter.NewRecordingExporter(paths)
	excel := exporter.NewExcelExporter(paths)

	opts := operations.StepOptions{
		WebSocketHub:      wsHub,
		StatusBroadcaster: manager.GetBroadcaster(),
		EnableProgress:    true,
	}
	if err := operations.RegisterPipeline(manager, discovery, csv, excel, opts); err != nil {
		return nil, fmt.Errorf("failed to register pipeline steps: %w", err)
	}

	return &OperationService{
		manager: manager,
		logger:  logger,
		paths:   paths,
	}, nil
}

// Start launches an operation and returns its final state. The manager runs
// the steps synchronously; callers wanting async behavior run Start in a
// goroutine and follow progress over the WebSocket.
func (s *OperationService) Start(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error) {
	if req.InputDir == "" {
		req.InputDir = s.paths.DataDir
	}
	if req.OutputDir == "" {
		req.OutputDir = s.paths.ReportsDir
	}
	if req.Format == "" {
		req.Format = operations.FormatAuto
	}

	s.logger.InfoContext(ctx, "starting operation",
		slog.String("input_dir", req.InputDir),
		slog.String("format", req.Format))

	resp, err := s.manager.Execute(ctx, req)
	if err != nil {
		return resp, fmt.Errorf("operation failed: %w", err)
	}
	return resp, nil
}

// Status returns the state of one operation.
func (s *OperationService) Status(ctx context.Context, id string) (*operations.OperationState, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: operation ID is required", ErrInvalidRequest)
	}

	state, err := s.manager.GetOperation(id)
	if err != nil {
		if errors.Is(err, operations.ErrOperationNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		return nil, err
	}
	return state, nil
}

// List returns all known operations.
func (s *OperationService) List(ctx context.Context) []*operations.OperationState {
	return s.manager.ListOperations()
}

// Cancel stops a running operation.
func (s *OperationService) Cancel(ctx context.Context, id string) error {
	if err := s.manager.CancelOperation(id); err != nil {
		if errors.Is(err, operations.ErrOperationNotFound) {
			return fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		return err
	}

	s.logger.InfoContext(ctx, "operation cancelled", slog.String("id", id))
	return nil
}

// Types describes the registered steps and the parameters each accepts, for
// API discovery.
func (s *OperationService) Types(ctx context.Context) []operations.OperationType {
	steps := s.manager.GetRegistry().List()

	types := make([]operations.OperationType, 0, len(steps)+1)
	for _, step := range steps {
		types = append(types, operations.OperationType{
			ID:           step.ID(),
			Name:         step.Name(),
			Description:  stepDescription(step.ID()),
			Dependencies: step.GetDependencies(),
			CanRunAlone:  len(step.GetDependencies()) == 0,
			Parameters:   stepParameters(step.ID()),
		})
	}

	types = append(types, operations.OperationType{
		ID:          "full_pipeline",
		Name:        "Full Pipeline",
		Description: "Import, condition, analyze and export every acquisition in the data directory",
		CanRunAlone: true,
		Parameters: []operations.ParameterDefinition{
			{
				Name:        "format",
				Type:        "select",
				Description: "Acquisition format to import",
				Default:     operations.FormatAuto,
				Options:     []string{operations.FormatAuto, operations.FormatABF, operations.FormatPrairieView},
			},
		},
	})

	return types
}

// Metrics summarizes operation counts by state.
func (s *OperationService) Metrics(ctx context.Context) map[string]interface{} {
	states := s.manager.ListOperations()

	active, completed, failed := 0, 0, 0
	for _, st := range states {
		switch st.Status {
		case operations.OperationStatusRunning, operations.OperationStatusPending:
			active++
		case operations.OperationStatusCompleted:
			completed++
		default:
			failed++
		}
	}

	return map[string]interface{}{
		"total_operations":     len(states),
		"active_operations":    active,
		"completed_operations": completed,
		"failed_operations":    failed,
		"timestamp":            time.Now().Unix(),
	}
}

// Manager exposes the underlying pipeline manager.
func (s *OperationService) Manager() *operations.Manager {
	return s.manager
}

func stepDescription(stepID string) string {
	descriptions := map[string]string{
		operations.StepIDImport:  "Read .abf files and PrairieView folders from the data directory",
		operations.StepIDProcess: "Baseline-subtract and smooth the imported sweeps",
		operations.StepIDAnalyze: "Detect firing events and compute frequency and periodogram summaries",
		operations.StepIDExport:  "Write per-recording CSV tables and an optional Excel workbook",
	}

	if desc, ok := descriptions[stepID]; ok {
		return desc
	}
	return "Process data"
}

func stepParameters(stepID string) []operations.ParameterDefinition {
	switch stepID {
	case operations.StepIDImport:
		return []operations.ParameterDefinition{
			{
				Name:        "format",
				Type:        "select",
				Description: "Acquisition format to import",
				Default:     operations.FormatAuto,
				Options:     []string{operations.FormatAuto, operations.FormatABF, operations.FormatPrairieView},
			},
		}
	case operations.StepIDProcess:
		return []operations.ParameterDefinition{
			{
				Name:        "baseline_start",
				Type:        "number",
				Description: "Baseline window start in seconds",
			},
			{
				Name:        "baseline_end",
				Type:        "number",
				Description: "Baseline window end in seconds",
			},
			{
				Name:        "smoothing",
				Type:        "number",
				Description: "Rolling-mean window in samples (0 disables)",
			},
		}
	case operations.StepIDAnalyze:
		return []operations.ParameterDefinition{
			{
				Name:        "min_height",
				Type:        "number",
				Description: "Minimum event amplitude",
			},
			{
				Name:        "min_distance",
				Type:        "number",
				Description: "Minimum distance between events in samples",
			},
			{
				Name:        "psd_window",
				Type:        "number",
				Description: "Periodogram epoch length in samples (0 disables)",
			},
		}
	case operations.StepIDExport:
		return []operations.ParameterDefinition{
			{
				Name:        "workbook",
				Type:        "string",
				Description: "Excel workbook filename (empty skips the workbook)",
			},
		}
	default:
		return nil
	}
}
