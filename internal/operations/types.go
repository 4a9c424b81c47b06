package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDImport  = "import"
	StepIDProcess = "process"
	StepIDAnalyze = "analyze"
	StepIDExport  = "export"
)

// Pipeline step names
const (
	StepNameImport  = "Data Import"
	StepNameProcess = "Signal Conditioning"
	StepNameAnalyze = "Analysis"
	StepNameExport  = "Export"
)

// Context keys for operation state
const (
	ContextKeyInputDir       = "input_dir"
	ContextKeyOutputDir      = "output_dir"
	ContextKeyFormat         = "format"
	ContextKeyFilesFound     = "files_found"
	ContextKeyFilesProcessed = "files_processed"
	ContextKeyRecordings     = "recordings"
	ContextKeyLinescans      = "linescans"
	ContextKeySummaries      = "summaries"
	ContextKeyFrequencies    = "frequencies"
	ContextKeySpectra        = "spectra"
	ContextKeyExportedFiles  = "exported_files"
)

// Recording formats accepted by the import step
const (
	FormatAuto        = "auto"
	FormatABF         = "abf"
	FormatPrairieView = "prairieview"
)

// Default timeouts
const (
	DefaultStepTimeout    = 10 * time.Minute
	DefaultImportTimeout  = 30 * time.Minute
	DefaultProcessTimeout = 10 * time.Minute
	DefaultAnalyzeTimeout = 20 * time.Minute
	DefaultExportTimeout  = 15 * time.Minute
)

// ExecutionMode defines how steps are executed
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute an operation
type OperationRequest struct {
	ID         string                 `json:"id"`
	InputDir   string                 `json:"input_dir,omitempty"`
	OutputDir  string                 `json:"output_dir,omitempty"`
	Format     string                 `json:"format,omitempty"` // auto, abf or prairieview
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from an operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}

// ProgressUpdate represents a progress update from a step
type ProgressUpdate struct {
	StepID   string                 `json:"step_id"`
	Progress float64                `json:"progress"`
	Message  string                 `json:"message"`
	ETA      string                 `json:"eta,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// OperationType describes an operation the service can run, for API listings
type OperationType struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Dependencies []string              `json:"dependencies"`
	CanRunAlone  bool                  `json:"can_run_alone"`
	Parameters   []ParameterDefinition `json:"parameters"`
}

// ParameterDefinition defines a parameter for an operation type
type ParameterDefinition struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // string, number, select, boolean
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Options     []string    `json:"options,omitempty"` // For select type
}
