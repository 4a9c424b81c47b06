package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"neurphys/internal/config"
	"neurphys/pkg/contracts/domain"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths := config.NewPaths(t.TempDir())
	require.NoError(t, paths.EnsureDirs())
	return paths
}

func testRecording() *domain.Recording {
	return &domain.Recording{
		Source:     "/raw/cell01.abf",
		SampleRate: 10000,
		Sweeps: []*domain.Sweep{
			{
				Time: []float64{0, 0.0001, 0.0002},
				Channels: []domain.Series{
					{Name: "primary", Units: "pA", Samples: []float64{1.5, 2.5, 3.5}},
					{Name: "channel_1", Units: "mV", Samples: []float64{-60, -60, -60}},
				},
			},
			{
				Time: []float64{0, 0.0001, 0.0002},
				Channels: []domain.Series{
					{Name: "primary", Units: "pA", Samples: []float64{4, 5, 6}},
					{Name: "channel_1", Units: "mV", Samples: []float64{-70, -70, -70}},
				},
			},
		},
	}
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// Strip the UTF-8 BOM before parsing.
	content := strings.TrimPrefix(string(raw), "\xEF\xBB\xBF")
	rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteSimpleCSV(t *testing.T) {
	paths := testPaths(t)
	w := NewCSVWriter(paths)

	err := w.WriteSimpleCSV("summary.csv",
		[]string{"source", "sweeps"},
		[][]string{{"cell01.abf", "2"}, {"cell02.abf", "5"}})
	require.NoError(t, err)

	rows := readCSVFile(t, paths.ReportPath("summary.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"source", "sweeps"}, rows[0])
	assert.Equal(t, []string{"cell02.abf", "5"}, rows[2])
}

func TestAppendToCSV(t *testing.T) {
	paths := testPaths(t)
	w := NewCSVWriter(paths)

	require.NoError(t, w.WriteSimpleCSV("log.csv", []string{"a"}, [][]string{{"1"}}))
	require.NoError(t, w.AppendToCSV("log.csv", [][]string{{"2"}}))

	rows := readCSVFile(t, paths.ReportPath("log.csv"))
	assert.Len(t, rows, 3)
}

func TestStreamWriter(t *testing.T) {
	paths := testPaths(t)
	w := NewCSVWriter(paths)

	stream, err := w.CreateStreamWriter("data/raw.csv", []string{"time", "value"})
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, stream.WriteRecord([]string{formatInt(i), formatMetric(float64(i) * 0.5)}))
	}
	require.NoError(t, stream.Close())

	rows := readCSVFile(t, paths.DataPath("raw.csv"))
	assert.Len(t, rows, 101)
}

func TestExportRecording(t *testing.T) {
	paths := testPaths(t)
	e := NewRecordingExporter(paths)

	rel, err := e.ExportRecording(testRecording(), "imports")
	require.NoError(t, err)

	rows := readCSVFile(t, paths.ReportPath(filepath.Join("imports", "cell01.csv")))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{
		"time",
		"sweep001_primary", "sweep001_channel_1",
		"sweep002_primary", "sweep002_channel_1",
	}, rows[0])
	assert.Equal(t, []string{"0", "1.5", "-60", "4", "-70"}, rows[1])
	assert.Contains(t, rel, "cell01.csv")
}

func TestExportRecordingAbsoluteOutputDir(t *testing.T) {
	paths := testPaths(t)
	e := NewRecordingExporter(paths)

	outDir := filepath.Join(t.TempDir(), "session01")
	out, err := e.ExportRecording(testRecording(), outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "cell01.csv"), out)

	// The CSV lands exactly where the caller asked, not under the data root.
	rows := readCSVFile(t, filepath.Join(outDir, "cell01.csv"))
	require.Len(t, rows, 4)

	ls := &domain.Linescan{
		Source: "LineScan-02.csv",
		Profiles: []domain.Profile{
			{Number: 1, Time: []float64{0, 0.01}, Fluorescence: []float64{100, 140}},
		},
	}
	out, err = e.ExportLinescan(ls, outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "LineScan-02.csv"), out)
	readCSVFile(t, filepath.Join(outDir, "LineScan-02.csv"))
}

func TestExportSpectra(t *testing.T) {
	paths := testPaths(t)
	e := NewRecordingExporter(paths)

	spectra := []domain.PowerSpectrum{{
		Sweep:       "sweep001",
		Epoch:       "epoch001",
		Frequencies: []float64{0, 2, 4},
		Power:       []float64{0.5, 1.25, 0.75},
	}}

	out, err := e.ExportSpectra("cell01.abf", spectra, "")
	require.NoError(t, err)
	assert.Contains(t, out, "cell01_psd.csv")

	rows := readCSVFile(t, paths.ReportPath("cell01_psd.csv"))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"sweep", "epoch", "frequency_hz", "power"}, rows[0])
	assert.Equal(t, "epoch001", rows[1][1])
	assert.Equal(t, "2", rows[2][2])
}

func TestExportRecordingEmpty(t *testing.T) {
	e := NewRecordingExporter(testPaths(t))

	_, err := e.ExportRecording(&domain.Recording{Source: "empty.abf"}, "imports")
	assert.Error(t, err)
}

func TestExportLinescan(t *testing.T) {
	paths := testPaths(t)
	e := NewRecordingExporter(paths)

	ls := &domain.Linescan{
		Source: "LineScan-01.csv",
		Profiles: []domain.Profile{
			{Number: 1, Time: []float64{0, 0.01}, Fluorescence: []float64{100, 140}},
			{Number: 2, Time: []float64{0, 0.01, 0.02}, Fluorescence: []float64{90, 95, 92}},
		},
	}

	_, err := e.ExportLinescan(ls, "imports")
	require.NoError(t, err)

	rows := readCSVFile(t, paths.ReportPath(filepath.Join("imports", "LineScan-01.csv")))
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"prof_1_time", "prof_1", "prof_2_time", "prof_2"}, rows[0])
	// Shorter profiles pad with empty cells.
	assert.Equal(t, []string{"", "", "0.02", "92"}, rows[3])
}

func TestExportFrequencies(t *testing.T) {
	paths := testPaths(t)
	e := NewRecordingExporter(paths)

	sweeps := []domain.FrequencySweep{{
		Sweep:       "sweep001",
		EventTimes:  []float64{0.2, 0.3},
		Frequencies: []float64{10, 10},
	}}

	_, err := e.ExportFrequencies("/raw/cell01.abf", sweeps, "")
	require.NoError(t, err)

	rows := readCSVFile(t, paths.ReportPath("cell01_frequency.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"sweep001", "0.2", "10.0000", ""}, rows[1])
}

func TestExportMembraneSummary(t *testing.T) {
	paths := testPaths(t)
	e := NewRecordingExporter(paths)

	results := map[string]*domain.MembraneProperties{
		"b.abf": {AccessResistance: 12.5, MembraneResistance: 150, Capacitance: 80, TimeConstant: 1.2},
		"a.abf": {AccessResistance: 10, MembraneResistance: 100, Capacitance: 100, TimeConstant: 0.9},
	}

	require.NoError(t, e.ExportMembraneSummary(results, "membrane.csv"))

	rows := readCSVFile(t, paths.ReportPath("membrane.csv"))
	require.Len(t, rows, 3)
	// Rows are sorted by source for stable output.
	assert.Equal(t, "a.abf", rows[1][0])
	assert.Equal(t, "12.5000", rows[2][1])
}

func TestExportWorkbook(t *testing.T) {
	paths := testPaths(t)
	e := NewExcelExporter(paths)

	path, err := e.ExportWorkbook([]*domain.Recording{testRecording()}, "results.xlsx")
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Contains(t, sheets, "Summary")
	assert.Contains(t, sheets, "cell01_sweep001")
	assert.Contains(t, sheets, "cell01_sweep002")

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "/raw/cell01.abf", rows[1][0])

	sweep, err := f.GetRows("cell01_sweep001")
	require.NoError(t, err)
	require.Len(t, sweep, 4)
	assert.Equal(t, []string{"time", "primary", "channel_1"}, sweep[0])
}

func TestExportWorkbookEmpty(t *testing.T) {
	e := NewExcelExporter(testPaths(t))

	_, err := e.ExportWorkbook(nil, "results.xlsx")
	assert.Error(t, err)
}

func TestSheetNameClipped(t *testing.T) {
	long := strings.Repeat("x", 40) + "_sweep001"
	assert.LessOrEqual(t, len(sheetName(long)), 31)
	assert.True(t, strings.HasSuffix(sheetName(long), "_sweep001"))
}
