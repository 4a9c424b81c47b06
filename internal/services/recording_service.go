package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"neurphys/internal/abf"
	"neurphys/internal/config"
	"neurphys/internal/files"
	"neurphys/internal/prairieview"
	"neurphys/pkg/contracts/domain"
)

// RecordingInfo describes a discovered acquisition without parsing it.
type RecordingInfo struct {
	Name     string    `json:"name"`
	Format   string    `json:"format"` // "abf" or "prairieview"
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// ReportInfo describes a generated report file under the reports directory.
type ReportInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Kind     string    `json:"kind"` // "csv" or "excel"
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// RecordingService provides read access to acquisitions in the data
// directory.
type RecordingService struct {
	paths         *config.Paths
	discovery     *files.Discovery
	importWorkers int
	logger        *slog.Logger
}

// NewRecordingService creates a recording service rooted at the configured
// paths.
func NewRecordingService(paths *config.Paths, importWorkers int, logger *slog.Logger) *RecordingService {
	if logger == nil {
		logger = slog.Default()
	}
	if importWorkers < 1 {
		importWorkers = 1
	}

	logger = logger.With(slog.String("component", "recording_service"))
	logger.Info("RecordingService initialized",
		slog.String("data_dir", paths.DataDir),
		slog.String("reports_dir", paths.ReportsDir))

	return &RecordingService{
		paths:         paths,
		discovery:     files.NewDiscovery(paths.DataDir),
		importWorkers: importWorkers,
		logger:        logger,
	}
}

// ListRecordings returns every acquisition found under the data directory,
// newest first, without parsing any of them.
func (s *RecordingService) ListRecordings(ctx context.Context) ([]RecordingInfo, error) {
	var infos []RecordingInfo

	abfFiles, err := s.discovery.FindABFFiles("")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to scan for abf files: %w", err)
	}
	for _, f := range abfFiles {
		infos = append(infos, RecordingInfo{
			Name:     f.Name,
			Format:   "abf",
			Path:     f.Path,
			Size:     f.Size,
			Modified: f.ModTime,
		})
	}

	folders, err := s.discovery.FindPrairieViewFolders("")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to scan for PrairieView folders: %w", err)
	}
	for _, f := range folders {
		infos = append(infos, RecordingInfo{
			Name:     f.Name,
			Format:   "prairieview",
			Path:     f.Path,
			Size:     f.Size,
			Modified: f.ModTime,
		})
	}

	s.logger.DebugContext(ctx, "listed recordings",
		slog.Int("abf", len(abfFiles)),
		slog.Int("prairieview", len(folders)))

	return infos, nil
}

// GetRecording parses the named acquisition and returns the full recording.
// The name is resolved under the data directory; PrairieView names refer to
// acquisition folders.
func (s *RecordingService) GetRecording(ctx context.Context, name string) (*domain.Recording, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	if info.IsDir() {
		data, err := prairieview.ImportFolder(ctx, path, s.importWorkers)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
		}
		if data.VoltageRecording == nil {
			return nil, fmt.Errorf("%w: folder %s has no voltage recording", ErrRecordingNotFound, name)
		}
		return data.VoltageRecording, nil
	}

	if strings.ToLower(filepath.Ext(path)) != ".abf" {
		return nil, fmt.Errorf("%w: %s is not an .abf file", ErrInvalidRequest, name)
	}

	rec, err := abf.Read(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}
	return rec, nil
}

// GetSummary parses the named acquisition and returns only its shape.
func (s *RecordingService) GetSummary(ctx context.Context, name string) (*domain.RecordingSummary, error) {
	rec, err := s.GetRecording(ctx, name)
	if err != nil {
		return nil, err
	}

	summary := &domain.RecordingSummary{
		Source:     rec.Source,
		Format:     "prairieview",
		SampleRate: rec.SampleRate,
		NumSweeps:  rec.NumSweeps(),
	}
	if strings.ToLower(filepath.Ext(name)) == ".abf" {
		summary.Format = "abf"
	}
	if sw, err := rec.Sweep(1); err == nil {
		summary.NumSamples = sw.Len()
		summary.Channels = len(sw.Channels)
	}
	return summary, nil
}

// GetSweep returns one sweep of the named acquisition. Sweeps are numbered
// from 1.
func (s *RecordingService) GetSweep(ctx context.Context, name string, number int) (*domain.Sweep, error) {
	rec, err := s.GetRecording(ctx, name)
	if err != nil {
		return nil, err
	}

	sw, err := rec.Sweep(number)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return sw, nil
}

// ListReports returns generated report files under the reports directory,
// recursively.
func (s *RecordingService) ListReports(ctx context.Context) ([]ReportInfo, error) {
	var reports []ReportInfo

	err := filepath.Walk(s.paths.ReportsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Keep walking; a missing subtree is not fatal.
			return nil
		}
		if info.IsDir() {
			return nil
		}

		kind := ""
		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".csv":
			kind = "csv"
		case ".xlsx":
			kind = "excel"
		default:
			return nil
		}

		rel, err := filepath.Rel(s.paths.ReportsDir, path)
		if err != nil {
			return nil
		}

		reports = append(reports, ReportInfo{
			Name:     info.Name(),
			Path:     filepath.ToSlash(rel),
			Kind:     kind,
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to walk reports directory: %w", err)
	}

	s.logger.DebugContext(ctx, "listed reports", slog.Int("count", len(reports)))
	return reports, nil
}

// resolve maps an acquisition name onto the data directory and rejects
// anything that escapes it.
func (s *RecordingService) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: recording name is required", ErrInvalidRequest)
	}

	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: invalid recording name %q", ErrInvalidRequest, name)
	}

	return filepath.Join(s.paths.DataDir, cleaned), nil
}
