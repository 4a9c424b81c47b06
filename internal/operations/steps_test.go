package operations

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/internal/config"
	"neurphys/internal/exporter"
	"neurphys/internal/files"
	"neurphys/pkg/contracts/domain"
)

// spikingRecording builds a recording whose primary channel fires a short
// positive event every 100 samples at 1 kHz, i.e. at 10 Hz.
func spikingRecording() *domain.Recording {
	const n = 1000
	sweep := &domain.Sweep{
		Time: make([]float64, n),
		Channels: []domain.Series{
			{Name: domain.ChannelPrimary, Units: "mV", Samples: make([]float64, n)},
		},
	}
	for i := 0; i < n; i++ {
		sweep.Time[i] = float64(i) / 1000
		if i > 0 && i%100 == 0 {
			sweep.Channels[0].Samples[i] = 20
		}
	}
	return &domain.Recording{
		Source:     "/raw/pacemaker.abf",
		SampleRate: 1000,
		Sweeps:     []*domain.Sweep{sweep},
	}
}

func offsetRecording(offset float64) *domain.Recording {
	const n = 200
	sweep := &domain.Sweep{
		Time: make([]float64, n),
		Channels: []domain.Series{
			{Name: domain.ChannelPrimary, Units: "pA", Samples: make([]float64, n)},
		},
	}
	for i := 0; i < n; i++ {
		sweep.Time[i] = float64(i) / 1000
		sweep.Channels[0].Samples[i] = offset
	}
	return &domain.Recording{
		Source:     "/raw/flat.abf",
		SampleRate: 1000,
		Sweeps:     []*domain.Sweep{sweep},
	}
}

func stateWithRecordings(recs ...*domain.Recording) *OperationState {
	state := NewOperationState("op-test")
	state.SetContext(ContextKeyRecordings, recs)
	for _, id := range []string{StepIDImport, StepIDProcess, StepIDAnalyze, StepIDExport} {
		state.SetStep(id, NewStepState(id, id))
	}
	return state
}

func TestImportStepEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	step := NewImportStep(files.NewDiscovery(dir), 2, StepOptions{})

	state := NewOperationState("op-import")
	state.SetStep(StepIDImport, NewStepState(StepIDImport, StepNameImport))

	err := step.Execute(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recordings found")
}

func TestImportStepValidateRequiresDiscovery(t *testing.T) {
	step := NewImportStep(nil, 2, StepOptions{})
	assert.Error(t, step.Validate(NewOperationState("op")))
}

func TestImportStepSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/junk.abf", []byte("not an abf"), 0o644))

	step := NewImportStep(files.NewDiscovery(dir), 2, StepOptions{})
	state := NewOperationState("op-junk")
	state.SetStep(StepIDImport, NewStepState(StepIDImport, StepNameImport))

	// The only candidate file is unreadable, so nothing gets imported
	err := step.Execute(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recordings found")
}

func TestProcessStepBaselines(t *testing.T) {
	rec := offsetRecording(-60)
	state := stateWithRecordings(rec)
	state.SetConfig("baseline_start", 0.0)
	state.SetConfig("baseline_end", 0.05)

	step := NewProcessStep(StepOptions{})
	require.NoError(t, step.Validate(state))
	require.NoError(t, step.Execute(context.Background(), state))

	primary := rec.Sweeps[0].Primary()
	for _, v := range primary.Samples {
		assert.InDelta(t, 0, v, 1e-9)
	}
}

func TestProcessStepNoConditioningRequested(t *testing.T) {
	rec := offsetRecording(-60)
	state := stateWithRecordings(rec)

	step := NewProcessStep(StepOptions{})
	require.NoError(t, step.Execute(context.Background(), state))

	// Untouched without a baseline window or smoothing width
	assert.Equal(t, -60.0, rec.Sweeps[0].Primary().Samples[0])
}

func TestProcessStepRequiresImport(t *testing.T) {
	step := NewProcessStep(StepOptions{})
	err := step.Validate(NewOperationState("op-empty"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run the import step first")
}

func TestAnalyzeStepFrequencies(t *testing.T) {
	rec := spikingRecording()
	state := stateWithRecordings(rec)
	state.SetConfig("min_height", 5.0)
	state.SetConfig("min_distance", 10)

	step := NewAnalyzeStep(StepOptions{})
	require.NoError(t, step.Execute(context.Background(), state))

	frequencies, ok := frequenciesFromState(state)
	require.True(t, ok)
	sweeps := frequencies[rec.Source]
	require.Len(t, sweeps, 1)
	require.NotEmpty(t, sweeps[0].Frequencies)
	for _, f := range sweeps[0].Frequencies {
		assert.InDelta(t, 10, f, 1e-6)
	}
	for _, iv := range sweeps[0].Intervals {
		assert.InDelta(t, 0.1, iv, 1e-6)
	}
}

func TestAnalyzeStepQuietSweep(t *testing.T) {
	rec := offsetRecording(0) // no events at all
	state := stateWithRecordings(rec)
	state.SetConfig("min_height", 5.0)

	step := NewAnalyzeStep(StepOptions{})
	require.NoError(t, step.Execute(context.Background(), state))

	frequencies, ok := frequenciesFromState(state)
	require.True(t, ok)
	assert.Empty(t, frequencies[rec.Source])
}

func TestAnalyzeStepPeriodograms(t *testing.T) {
	rec := &domain.Recording{
		Source:     "/raw/osc.abf",
		SampleRate: 1000,
		Sweeps: []*domain.Sweep{{
			Time: make([]float64, 1000),
			Channels: []domain.Series{
				{Name: domain.ChannelPrimary, Samples: make([]float64, 1000)},
			},
		}},
	}
	for i := 0; i < 1000; i++ {
		rec.Sweeps[0].Time[i] = float64(i) / 1000
		rec.Sweeps[0].Channels[0].Samples[i] = math.Sin(2 * math.Pi * 50 * float64(i) / 1000)
	}

	state := stateWithRecordings(rec)
	state.SetConfig("min_height", 0.5)
	state.SetConfig("psd_window", 250)

	step := NewAnalyzeStep(StepOptions{})
	require.NoError(t, step.Execute(context.Background(), state))

	st := state.GetStep(StepIDAnalyze)
	require.NotNil(t, st)
	assert.Equal(t, 4, st.Metadata["psd_epochs"])

	// The spectra themselves carry forward for the export step.
	spectra := spectraFromState(state)
	require.Len(t, spectra[rec.Source], 4)

	first := spectra[rec.Source][0]
	require.NotEmpty(t, first.Power)
	peakBin := 0
	for i, p := range first.Power {
		if p > first.Power[peakBin] {
			peakBin = i
		}
	}
	// 50 Hz drive, 4 Hz bin resolution.
	assert.InDelta(t, 50, first.Frequencies[peakBin], 4)
}

func TestExportStepWritesFiles(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	rec := spikingRecording()
	state := stateWithRecordings(rec)
	state.SetContext(ContextKeyFrequencies, map[string][]domain.FrequencySweep{
		rec.Source: {{
			Sweep:       "sweep001",
			EventTimes:  []float64{0.2, 0.3},
			Frequencies: []float64{10, 10},
			Intervals:   []float64{0.1, 0.1},
		}},
	})
	state.SetContext(ContextKeySpectra, map[string][]domain.PowerSpectrum{
		rec.Source: {{
			Sweep:       "sweep001",
			Epoch:       "epoch001",
			Frequencies: []float64{0, 2, 4},
			Power:       []float64{0.1, 0.9, 0.2},
		}},
	})
	state.SetConfig(ContextKeyOutputDir, "session01")

	step := NewExportStep(exporter.NewRecordingExporter(paths), exporter.NewExcelExporter(paths), StepOptions{})
	require.NoError(t, step.Validate(state))
	require.NoError(t, step.Execute(context.Background(), state))

	v, ok := state.GetContext(ContextKeyExportedFiles)
	require.True(t, ok)
	exported := v.([]string)
	require.Len(t, exported, 3)
	assert.Contains(t, exported[2], "_psd.csv")

	for _, rel := range exported {
		info, err := os.Stat(paths.ReportPath(rel))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestExportStepWorkbook(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	rec := spikingRecording()
	state := stateWithRecordings(rec)
	state.SetConfig("workbook", "session01.xlsx")

	step := NewExportStep(exporter.NewRecordingExporter(paths), exporter.NewExcelExporter(paths), StepOptions{})
	require.NoError(t, step.Execute(context.Background(), state))

	v, _ := state.GetContext(ContextKeyExportedFiles)
	exported := v.([]string)
	require.NotEmpty(t, exported)
	assert.Contains(t, exported[len(exported)-1], "session01.xlsx")
}

func TestExportStepValidate(t *testing.T) {
	step := NewExportStep(nil, nil, StepOptions{})
	assert.Error(t, step.Validate(stateWithRecordings(spikingRecording())))
}

func TestRegisterPipeline(t *testing.T) {
	m := NewManager(nil, nil, NewConfig())
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())

	err := RegisterPipeline(m,
		files.NewDiscovery(paths.DataDir),
		exporter.NewRecordingExporter(paths),
		exporter.NewExcelExporter(paths),
		StepOptions{StatusBroadcaster: m.GetBroadcaster()})
	require.NoError(t, err)

	ordered, err := m.GetRegistry().GetDependencyOrder()
	require.NoError(t, err)
	ids := make([]string, len(ordered))
	for i, s := range ordered {
		ids[i] = s.ID()
	}
	assert.Equal(t, []string{StepIDImport, StepIDProcess, StepIDAnalyze, StepIDExport}, ids)
}
