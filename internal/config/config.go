package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
	Operations OperationsConfig `yaml:"operations" envconfig:"OPERATIONS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/neurphys.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	FiguresDir string `yaml:"figures_dir" envconfig:"FIGURES_DIR" default:"figures"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// OperationsConfig contains pipeline execution configuration
type OperationsConfig struct {
	StepTimeout   time.Duration `yaml:"step_timeout" envconfig:"STEP_TIMEOUT" default:"30m"`
	MaxRetries    int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"2"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" default:"5s"`
	ImportWorkers int           `yaml:"import_workers" envconfig:"IMPORT_WORKERS" default:"4"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("NEURPHYS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges the file configuration into the env configuration.
// Environment variables win.
func mergeConfigs(file, env Config) Config {
	merged := file

	if env.Server.Port != 8080 {
		merged.Server.Port = env.Server.Port
	}
	if env.Logging.Level != "info" {
		merged.Logging.Level = env.Logging.Level
	}
	if env.Logging.Output != "console" {
		merged.Logging.Output = env.Logging.Output
	}
	if env.Paths.BaseDir != "" {
		merged.Paths.BaseDir = env.Paths.BaseDir
	}
	if env.Paths.DataDir != "data" {
		merged.Paths.DataDir = env.Paths.DataDir
	}
	if env.Operations.ImportWorkers != 4 {
		merged.Operations.ImportWorkers = env.Operations.ImportWorkers
	}
	return merged
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}
	if c.Operations.ImportWorkers < 1 {
		return fmt.Errorf("import_workers must be at least 1, got %d", c.Operations.ImportWorkers)
	}
	return nil
}

// configFilePath returns the path to the optional YAML config file, which
// lives next to the executable.
func configFilePath() string {
	exe, err := os.Executable()
	if err != nil {
		return "neurphys.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "neurphys.yaml")
}
