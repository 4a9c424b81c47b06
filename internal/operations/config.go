package operations

import (
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Execution mode
	ExecutionMode ExecutionMode `json:"execution_mode"`

	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// Whether to continue on step failures
	ContinueOnError bool `json:"continue_on_error"`

	// Number of workers for parallel file imports
	ImportWorkers int `json:"import_workers"`

	// Custom step configurations
	StepConfigs map[string]interface{} `json:"step_configs"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		ExecutionMode: ExecutionModeSequential,
		StepTimeouts: map[string]time.Duration{
			StepIDImport:  DefaultImportTimeout,
			StepIDProcess: DefaultProcessTimeout,
			StepIDAnalyze: DefaultAnalyzeTimeout,
			StepIDExport:  DefaultExportTimeout,
		},
		RetryConfig:     NewRetryConfig(),
		ContinueOnError: false,
		ImportWorkers:   4,
		StepConfigs:     make(map[string]interface{}),
	}
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// GetStepConfig returns the configuration for a specific step
func (c *Config) GetStepConfig(stepID string) (interface{}, bool) {
	if c.StepConfigs == nil {
		return nil, false
	}
	config, ok := c.StepConfigs[stepID]
	return config, ok
}

// SetStepConfig sets the configuration for a specific step
func (c *Config) SetStepConfig(stepID string, config interface{}) {
	if c.StepConfigs == nil {
		c.StepConfigs = make(map[string]interface{})
	}
	c.StepConfigs[stepID] = config
}

// StepConfig represents configuration common to individual steps
type StepConfig struct {
	// Step identification
	ID string `json:"id"`

	// Step dependencies
	Dependencies []string `json:"dependencies,omitempty"`

	// Whether this step is enabled
	Enabled bool `json:"enabled"`

	// Custom timeout for this step
	Timeout time.Duration `json:"timeout"`

	// Retry configuration override
	RetryConfig *RetryConfig `json:"retry_config,omitempty"`

	// Step-specific parameters
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// ImportStepConfig represents configuration for the import step
type ImportStepConfig struct {
	StepConfig
	InputDir string `json:"input_dir"`
	Format   string `json:"format"` // auto, abf or prairieview
	Workers  int    `json:"workers"`
}

// ProcessStepConfig represents configuration for the signal conditioning step
type ProcessStepConfig struct {
	StepConfig
	BaselineStart float64 `json:"baseline_start"` // seconds
	BaselineEnd   float64 `json:"baseline_end"`   // seconds
	Smoothing     int     `json:"smoothing"`      // rolling-mean width in samples, 0 disables
}

// AnalyzeStepConfig represents configuration for the analysis step
type AnalyzeStepConfig struct {
	StepConfig
	MinHeight   float64 `json:"min_height"`
	MinDistance int     `json:"min_distance"`
	Valley      bool    `json:"valley"`
	PSDWindow   int     `json:"psd_window"` // samples per epoch, 0 disables spectral analysis
}

// ExportStepConfig represents configuration for the export step
type ExportStepConfig struct {
	StepConfig
	OutputDir string `json:"output_dir"`
	Workbook  string `json:"workbook"` // Excel workbook filename, empty disables
}

// ConfigBuilder provides a fluent interface for building operation configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithStepTimeout sets the timeout for a step
func (b *ConfigBuilder) WithStepTimeout(stepID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStepTimeout(stepID, timeout)
	return b
}

// WithRetryConfig sets the retry configuration
func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

// WithContinueOnError sets whether to continue on errors
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// WithImportWorkers sets the parallel import worker count
func (b *ConfigBuilder) WithImportWorkers(workers int) *ConfigBuilder {
	if workers > 0 {
		b.config.ImportWorkers = workers
	}
	return b
}

// WithStepConfig sets the configuration for a step
func (b *ConfigBuilder) WithStepConfig(stepID string, config interface{}) *ConfigBuilder {
	b.config.SetStepConfig(stepID, config)
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
