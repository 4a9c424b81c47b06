package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "bad log output",
			mutate:  func(c *Config) { c.Logging.Output = "syslog" },
			wantErr: "invalid log output",
		},
		{
			name:    "zero import workers",
			mutate:  func(c *Config) { c.Operations.ImportWorkers = 0 },
			wantErr: "import_workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "neurphys.yaml")
	yaml := `
server:
  port: 9090
logging:
  level: debug
  output: both
paths:
  data_dir: /srv/ephys/data
operations:
  import_workers: 8
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := loadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "/srv/ephys/data", cfg.Paths.DataDir)
	assert.Equal(t, 8, cfg.Operations.ImportWorkers)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := loadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMergeConfigsEnvWins(t *testing.T) {
	file := *defaultConfig()
	file.Server.Port = 9090
	file.Logging.Level = "debug"

	env := *defaultConfig()
	env.Server.Port = 7070

	merged := mergeConfigs(file, env)
	assert.Equal(t, 7070, merged.Server.Port, "explicit env port should win")
	assert.Equal(t, "debug", merged.Logging.Level, "file level should survive default env")
}

func TestFromConfigResolvesRelative(t *testing.T) {
	paths, err := FromConfig(PathsConfig{
		BaseDir:    "/opt/neurphys",
		DataDir:    "data",
		ReportsDir: "/var/reports",
		FiguresDir: "figures",
		LogsDir:    "logs",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/opt/neurphys", "data"), paths.DataDir)
	assert.Equal(t, "/var/reports", paths.ReportsDir, "absolute dirs pass through")
	assert.Equal(t, filepath.Join("/opt/neurphys", "figures"), paths.FiguresDir)
}

func TestEnsureDirs(t *testing.T) {
	paths := NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.DataDir, paths.ReportsDir, paths.FiguresDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestPathHelpers(t *testing.T) {
	paths := NewPaths("/base")
	assert.Equal(t, filepath.Join("/base", "reports", "summary.csv"), paths.ReportPath("summary.csv"))
	assert.Equal(t, filepath.Join("/base", "data", "cell01.abf"), paths.DataPath("cell01.abf"))
	assert.Equal(t, filepath.Join("/base", "figures", "trace.png"), paths.FigurePath("trace.png"))
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		Paths: PathsConfig{
			DataDir:    "data",
			ReportsDir: "reports",
			FiguresDir: "figures",
			LogsDir:    "logs",
		},
		Operations: OperationsConfig{ImportWorkers: 4},
	}
}
