package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file locations: raw instrument
// files live under DataDir, generated tables under ReportsDir, rendered
// figures under FiguresDir.
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	FiguresDir string
	LogsDir    string
}

// GetPaths returns the application paths rooted at the executable location.
// Paths are never relative to the current working directory, so the binaries
// behave the same regardless of where they are launched from.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths builds the path set rooted at the given base directory.
//
// Layout:
//
//	base/
//	  ├── data/      (raw .abf files and PrairieView folders)
//	  ├── reports/   (generated CSV and Excel tables)
//	  ├── figures/   (rendered plots)
//	  └── logs/
func NewPaths(baseDir string) *Paths {
	return &Paths{
		BaseDir:    baseDir,
		DataDir:    filepath.Join(baseDir, "data"),
		ReportsDir: filepath.Join(baseDir, "reports"),
		FiguresDir: filepath.Join(baseDir, "figures"),
		LogsDir:    filepath.Join(baseDir, "logs"),
	}
}

// FromConfig builds the path set from a loaded configuration, resolving any
// relative directories against BaseDir (or the executable directory when
// BaseDir is unset).
func FromConfig(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		base = filepath.Dir(exe)
	}

	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    resolve(cfg.DataDir),
		ReportsDir: resolve(cfg.ReportsDir),
		FiguresDir: resolve(cfg.FiguresDir),
		LogsDir:    resolve(cfg.LogsDir),
	}, nil
}

// EnsureDirs creates every directory in the path set.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.FiguresDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns the full path for a report file.
func (p *Paths) ReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// DataPath returns the full path for a raw data file.
func (p *Paths) DataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// FigurePath returns the full path for a rendered figure.
func (p *Paths) FigurePath(filename string) string {
	return filepath.Join(p.FiguresDir, filename)
}
