package operations

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"neurphys/internal/abf"
	"neurphys/internal/analysis"
	"neurphys/internal/exporter"
	"neurphys/internal/files"
	"neurphys/internal/oscillation"
	"neurphys/internal/pacemaking"
	"neurphys/internal/prairieview"
	"neurphys/pkg/contracts/domain"
)

// ImportStep discovers .abf files and PrairieView acquisition folders under
// the input directory and loads them into recordings.
type ImportStep struct {
	BaseStep
	discovery *files.Discovery
	workers   int
	opts      StepOptions
}

// NewImportStep creates the import step
func NewImportStep(discovery *files.Discovery, workers int, opts StepOptions) *ImportStep {
	if workers <= 0 {
		workers = 4
	}
	return &ImportStep{
		BaseStep:  NewBaseStep(StepIDImport, StepNameImport, nil),
		discovery: discovery,
		workers:   workers,
		opts:      opts,
	}
}

// Validate checks that the step has a discovery service to work with
func (s *ImportStep) Validate(state *OperationState) error {
	if s.discovery == nil {
		return fmt.Errorf("no file discovery configured")
	}
	return nil
}

// Execute loads every discoverable recording into the operation state
func (s *ImportStep) Execute(ctx context.Context, state *OperationState) error {
	inputDir := stringConfig(state, ContextKeyInputDir, "")
	format := stringConfig(state, ContextKeyFormat, FormatAuto)

	var (
		recordings []*domain.Recording
		linescans  []*domain.Linescan
		found      int
		skipped    int
	)

	if format == FormatAuto || format == FormatABF {
		abfFiles, err := s.discovery.FindABFFiles(inputDir)
		if err != nil {
			return NewExecutionError(s.ID(), fmt.Errorf("abf discovery: %w", err), false)
		}
		found += len(abfFiles)

		for i, f := range abfFiles {
			if err := ctx.Err(); err != nil {
				return NewCancellationError(s.ID())
			}
			rec, err := abf.Read(f.Path)
			if err != nil {
				slog.WarnContext(ctx, "abf_read_failed",
					slog.String("file", f.Name),
					slog.String("error", err.Error()))
				skipped++
				continue
			}
			recordings = append(recordings, rec)
			s.report(state, float64(i+1)/float64(len(abfFiles))*50,
				fmt.Sprintf("Imported %s", f.Name))
		}
	}

	if format == FormatAuto || format == FormatPrairieView {
		folders, err := s.discovery.FindPrairieViewFolders(inputDir)
		if err != nil {
			return NewExecutionError(s.ID(), fmt.Errorf("prairieview discovery: %w", err), false)
		}
		found += len(folders)

		for i, folder := range folders {
			if err := ctx.Err(); err != nil {
				return NewCancellationError(s.ID())
			}
			data, err := prairieview.ImportFolder(ctx, folder.Path, s.workers)
			if err != nil {
				slog.WarnContext(ctx, "prairieview_import_failed",
					slog.String("folder", folder.Name),
					slog.String("error", err.Error()))
				skipped++
				continue
			}
			if data.VoltageRecording != nil {
				recordings = append(recordings, data.VoltageRecording)
			}
			linescans = append(linescans, data.Linescans...)
			s.report(state, 50+float64(i+1)/float64(len(folders))*50,
				fmt.Sprintf("Imported %s", folder.Name))
		}
	}

	if len(recordings) == 0 && len(linescans) == 0 {
		return NewExecutionError(s.ID(),
			fmt.Errorf("no recordings found under %q (format %s)", inputDir, format), false)
	}

	summaries := make([]domain.RecordingSummary, 0, len(recordings))
	for _, rec := range recordings {
		summaries = append(summaries, summarize(rec))
	}

	state.SetContext(ContextKeyRecordings, recordings)
	state.SetContext(ContextKeyLinescans, linescans)
	state.SetContext(ContextKeySummaries, summaries)
	state.SetContext(ContextKeyFilesFound, found)
	state.SetContext(ContextKeyFilesProcessed, len(recordings)+len(linescans))

	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("files_found", found)
		st.SetMetadata("recordings", len(recordings))
		st.SetMetadata("linescans", len(linescans))
		st.SetMetadata("skipped", skipped)
	}
	if tracer := GetOperationTracer(); tracer != nil {
		tracer.RecordRecordingsImported(ctx, len(recordings), format)
	}

	s.report(state, 100, fmt.Sprintf("Imported %d recordings, %d linescans", len(recordings), len(linescans)))
	return nil
}

func (s *ImportStep) report(state *OperationState, progress float64, message string) {
	reportProgress(s.opts, state, s.ID(), progress, message)
}

// summarize builds the per-file summary reported by the import step.
func summarize(rec *domain.Recording) domain.RecordingSummary {
	sum := domain.RecordingSummary{
		Source:     rec.Source,
		Format:     FormatPrairieView,
		SampleRate: rec.SampleRate,
		NumSweeps:  rec.NumSweeps(),
	}
	if strings.EqualFold(filepath.Ext(rec.Source), ".abf") {
		sum.Format = FormatABF
	}
	if len(rec.Sweeps) > 0 {
		sum.NumSamples = rec.Sweeps[0].Len()
		sum.Channels = len(rec.Sweeps[0].Channels)
	}
	return sum
}

// ProcessStep conditions the imported sweeps: baseline subtraction over a
// fixed window and optional rolling-mean detrending.
type ProcessStep struct {
	BaseStep
	opts StepOptions
}

// NewProcessStep creates the signal conditioning step
func NewProcessStep(opts StepOptions) *ProcessStep {
	return &ProcessStep{
		BaseStep: NewBaseStep(StepIDProcess, StepNameProcess, []string{StepIDImport}),
		opts:     opts,
	}
}

// Validate checks that recordings are available
func (s *ProcessStep) Validate(state *OperationState) error {
	_, err := recordingsFromState(state)
	return err
}

// Execute applies the configured conditioning to every sweep in place
func (s *ProcessStep) Execute(ctx context.Context, state *OperationState) error {
	recordings, err := recordingsFromState(state)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	baselineStart := floatConfig(state, "baseline_start", 0)
	baselineEnd := floatConfig(state, "baseline_end", 0)
	smoothing := intConfig(state, "smoothing", 0)

	if baselineEnd <= baselineStart && smoothing <= 1 {
		s.report(state, 100, "No conditioning requested")
		return nil
	}

	conditioned := 0
	for i, rec := range recordings {
		if err := ctx.Err(); err != nil {
			return NewCancellationError(s.ID())
		}
		for _, sweep := range rec.Sweeps {
			if baselineEnd > baselineStart {
				if err := analysis.Baseline(sweep, baselineStart, baselineEnd); err != nil {
					return NewExecutionError(s.ID(),
						fmt.Errorf("baseline %s: %w", rec.Source, err), false)
				}
			}
			if smoothing > 1 {
				if err := pacemaking.BaselinePacemaking(sweep, smoothing); err != nil {
					return NewExecutionError(s.ID(),
						fmt.Errorf("detrend %s: %w", rec.Source, err), false)
				}
			}
			conditioned++
		}
		s.report(state, float64(i+1)/float64(len(recordings))*100,
			fmt.Sprintf("Conditioned %s", rec.Source))
	}

	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("sweeps_conditioned", conditioned)
	}
	s.report(state, 100, fmt.Sprintf("Conditioned %d sweeps", conditioned))
	return nil
}

func (s *ProcessStep) report(state *OperationState, progress float64, message string) {
	reportProgress(s.opts, state, s.ID(), progress, message)
}

// AnalyzeStep runs event detection on every sweep and, when requested,
// epoch periodograms of the primary channel.
type AnalyzeStep struct {
	BaseStep
	opts StepOptions
}

// NewAnalyzeStep creates the analysis step
func NewAnalyzeStep(opts StepOptions) *AnalyzeStep {
	return &AnalyzeStep{
		BaseStep: NewBaseStep(StepIDAnalyze, StepNameAnalyze, []string{StepIDProcess}),
		opts:     opts,
	}
}

// Validate checks that recordings are available
func (s *AnalyzeStep) Validate(state *OperationState) error {
	_, err := recordingsFromState(state)
	return err
}

// Execute computes per-sweep firing frequencies and optional spectra
func (s *AnalyzeStep) Execute(ctx context.Context, state *OperationState) error {
	recordings, err := recordingsFromState(state)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	minHeight := floatConfig(state, "min_height", 0)
	minDistance := intConfig(state, "min_distance", 1)
	valley := boolConfig(state, "valley", false)
	psdWindow := intConfig(state, "psd_window", 0)

	frequencies := make(map[string][]domain.FrequencySweep, len(recordings))
	spectra := make(map[string][]domain.PowerSpectrum)
	quietSweeps := 0
	epochCount := 0

	for i, rec := range recordings {
		if err := ctx.Err(); err != nil {
			return NewCancellationError(s.ID())
		}

		var sweeps []domain.FrequencySweep
		for j, sweep := range rec.Sweeps {
			res, err := pacemaking.CalcFreq(sweep, minHeight, minDistance, valley, false)
			if err != nil {
				// Sweeps with fewer than two events have no rate to report
				quietSweeps++
				continue
			}
			fs := domain.FrequencySweep{
				Sweep:       domain.SweepName(j + 1),
				EventTimes:  res.Times,
				Frequencies: res.Values,
				Intervals:   make([]float64, len(res.Values)),
			}
			for k, f := range res.Values {
				if f != 0 {
					fs.Intervals[k] = 1 / f
				}
			}
			sweeps = append(sweeps, fs)
		}
		frequencies[rec.Source] = sweeps

		if psdWindow > 1 {
			psds, err := oscillation.EpochPeriodogram(rec, domain.ChannelPrimary, psdWindow, psdWindow)
			if err != nil {
				return NewExecutionError(s.ID(),
					fmt.Errorf("periodogram %s: %w", rec.Source, err), false)
			}
			specs := make([]domain.PowerSpectrum, 0, len(psds))
			for _, psd := range psds {
				specs = append(specs, domain.PowerSpectrum{
					Sweep:       psd.Sweep,
					Epoch:       psd.Epoch,
					Frequencies: psd.Frequencies,
					Power:       psd.Power,
				})
			}
			spectra[rec.Source] = specs
			epochCount += len(psds)
		}

		s.report(state, float64(i+1)/float64(len(recordings))*100,
			fmt.Sprintf("Analyzed %s", rec.Source))
	}

	state.SetContext(ContextKeyFrequencies, frequencies)
	if len(spectra) > 0 {
		state.SetContext(ContextKeySpectra, spectra)
	}

	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("recordings_analyzed", len(recordings))
		st.SetMetadata("quiet_sweeps", quietSweeps)
		if psdWindow > 1 {
			st.SetMetadata("psd_epochs", epochCount)
		}
	}
	s.report(state, 100, fmt.Sprintf("Analyzed %d recordings", len(recordings)))
	return nil
}

func (s *AnalyzeStep) report(state *OperationState, progress float64, message string) {
	reportProgress(s.opts, state, s.ID(), progress, message)
}

// ExportStep writes recordings, linescan profiles and frequency tables to
// CSV, plus an optional Excel workbook.
type ExportStep struct {
	BaseStep
	csv   *exporter.RecordingExporter
	excel *exporter.ExcelExporter
	opts  StepOptions
}

// NewExportStep creates the export step
func NewExportStep(csv *exporter.RecordingExporter, excel *exporter.ExcelExporter, opts StepOptions) *ExportStep {
	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, StepNameExport, []string{StepIDAnalyze}),
		csv:      csv,
		excel:    excel,
		opts:     opts,
	}
}

// Validate checks the exporters and that there is something to export
func (s *ExportStep) Validate(state *OperationState) error {
	if s.csv == nil {
		return fmt.Errorf("no CSV exporter configured")
	}
	_, err := recordingsFromState(state)
	return err
}

// Execute writes all configured outputs
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	recordings, err := recordingsFromState(state)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}

	outputDir := stringConfig(state, ContextKeyOutputDir, "")
	workbook := stringConfig(state, "workbook", "")
	frequencies, _ := frequenciesFromState(state)
	spectra := spectraFromState(state)
	linescans := linescansFromState(state)

	var exported []string

	for i, rec := range recordings {
		if err := ctx.Err(); err != nil {
			return NewCancellationError(s.ID())
		}
		path, err := s.csv.ExportRecording(rec, outputDir)
		if err != nil {
			return NewExecutionError(s.ID(),
				fmt.Errorf("export %s: %w", rec.Source, err), false)
		}
		exported = append(exported, path)

		if fs := frequencies[rec.Source]; len(fs) > 0 {
			path, err := s.csv.ExportFrequencies(rec.Source, fs, outputDir)
			if err != nil {
				return NewExecutionError(s.ID(),
					fmt.Errorf("export frequencies %s: %w", rec.Source, err), false)
			}
			exported = append(exported, path)
		}

		if ps := spectra[rec.Source]; len(ps) > 0 {
			path, err := s.csv.ExportSpectra(rec.Source, ps, outputDir)
			if err != nil {
				return NewExecutionError(s.ID(),
					fmt.Errorf("export spectra %s: %w", rec.Source, err), false)
			}
			exported = append(exported, path)
		}

		s.report(state, float64(i+1)/float64(len(recordings))*80,
			fmt.Sprintf("Exported %s", rec.Source))
	}

	for _, ls := range linescans {
		path, err := s.csv.ExportLinescan(ls, outputDir)
		if err != nil {
			return NewExecutionError(s.ID(),
				fmt.Errorf("export linescan %s: %w", ls.Source, err), false)
		}
		exported = append(exported, path)
	}

	if workbook != "" && s.excel != nil && len(recordings) > 0 {
		s.report(state, 90, "Writing Excel workbook")
		path, err := s.excel.ExportWorkbook(recordings, workbook)
		if err != nil {
			return NewExecutionError(s.ID(),
				fmt.Errorf("export workbook: %w", err), false)
		}
		exported = append(exported, path)
	}

	state.SetContext(ContextKeyExportedFiles, exported)

	if st := state.GetStep(s.ID()); st != nil {
		st.SetMetadata("files_written", len(exported))
	}
	s.report(state, 100, fmt.Sprintf("Wrote %d files", len(exported)))
	return nil
}

func (s *ExportStep) report(state *OperationState, progress float64, message string) {
	reportProgress(s.opts, state, s.ID(), progress, message)
}

// RegisterPipeline registers the standard import/process/analyze/export chain
// on the manager.
func RegisterPipeline(m *Manager, discovery *files.Discovery, csv *exporter.RecordingExporter, excel *exporter.ExcelExporter, opts StepOptions) error {
	workers := 0
	if cfg := m.GetConfig(); cfg != nil {
		workers = cfg.ImportWorkers
	}
	steps := []Step{
		NewImportStep(discovery, workers, opts),
		NewProcessStep(opts),
		NewAnalyzeStep(opts),
		NewExportStep(csv, excel, opts),
	}
	for _, step := range steps {
		if err := m.RegisterStep(step); err != nil {
			return err
		}
	}
	return nil
}

// reportProgress mirrors progress into the step state and the broadcaster.
func reportProgress(opts StepOptions, state *OperationState, stepID string, progress float64, message string) {
	if st := state.GetStep(stepID); st != nil {
		st.UpdateProgress(progress, message)
	}
	if opts.StatusBroadcaster != nil {
		opts.StatusBroadcaster.UpdateStepProgress(state.ID, stepID, int(progress), message)
	}
}

// recordingsFromState pulls the imported recordings out of the shared context.
func recordingsFromState(state *OperationState) ([]*domain.Recording, error) {
	v, ok := state.GetContext(ContextKeyRecordings)
	if !ok {
		return nil, fmt.Errorf("no recordings in operation state; run the import step first")
	}
	recordings, ok := v.([]*domain.Recording)
	if !ok || len(recordings) == 0 {
		return nil, fmt.Errorf("no recordings in operation state; run the import step first")
	}
	return recordings, nil
}

func linescansFromState(state *OperationState) []*domain.Linescan {
	v, ok := state.GetContext(ContextKeyLinescans)
	if !ok {
		return nil
	}
	linescans, _ := v.([]*domain.Linescan)
	return linescans
}

func spectraFromState(state *OperationState) map[string][]domain.PowerSpectrum {
	v, ok := state.GetContext(ContextKeySpectra)
	if !ok {
		return nil
	}
	spectra, _ := v.(map[string][]domain.PowerSpectrum)
	return spectra
}

func frequenciesFromState(state *OperationState) (map[string][]domain.FrequencySweep, bool) {
	v, ok := state.GetContext(ContextKeyFrequencies)
	if !ok {
		return nil, false
	}
	frequencies, ok := v.(map[string][]domain.FrequencySweep)
	return frequencies, ok
}

func stringConfig(state *OperationState, key, def string) string {
	if v, ok := state.GetConfig(key); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func floatConfig(state *OperationState, key string, def float64) float64 {
	if v, ok := state.GetConfig(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func intConfig(state *OperationState, key string, def int) int {
	if v, ok := state.GetConfig(key); ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

func boolConfig(state *OperationState, key string, def bool) bool {
	if v, ok := state.GetConfig(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
