package nuplot

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/internal/analysis"
	"neurphys/pkg/contracts/domain"
)

func sineRec(sweeps int) *domain.Recording {
	rec := &domain.Recording{Source: "plot.abf", SampleRate: 1000}
	for s := 0; s < sweeps; s++ {
		time := make([]float64, 200)
		samples := make([]float64, 200)
		for i := range samples {
			time[i] = float64(i) / 1000
			samples[i] = math.Sin(2*math.Pi*10*time[i]) * float64(s+1)
		}
		rec.Sweeps = append(rec.Sweeps, &domain.Sweep{
			Time:     time,
			Channels: []domain.Series{{Name: domain.ChannelPrimary, Units: "mV", Samples: samples}},
		})
	}
	return rec
}

func requireSaved(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestTraces(t *testing.T) {
	rec := sineRec(3)

	p, err := Traces(rec, domain.ChannelPrimary)
	require.NoError(t, err)
	assert.Equal(t, "primary (mV)", p.Y.Label.Text)

	out := filepath.Join(t.TempDir(), "traces.png")
	require.NoError(t, Save(p, out))
	requireSaved(t, out)
}

func TestTracesMissingChannel(t *testing.T) {
	_, err := Traces(sineRec(1), "channel_9")
	assert.Error(t, err)
}

func TestCleanAndScaleBars(t *testing.T) {
	rec := sineRec(2)

	p, err := Traces(rec, domain.ChannelPrimary)
	require.NoError(t, err)

	b, err := DataBounds(rec, domain.ChannelPrimary)
	require.NoError(t, err)
	assert.InDelta(t, 0, b.XMin, 1e-12)
	assert.InDelta(t, 0.199, b.XMax, 1e-9)

	require.NoError(t, Clean(p, "mV", map[string]float64{"baseline": 0}, b))
	require.NoError(t, ScaleBars(p, 0.05, "s", 1, "mV", b))

	out := filepath.Join(t.TempDir(), "clean.svg")
	require.NoError(t, Save(p, out))
	requireSaved(t, out)
}

func TestScaleBarsValidation(t *testing.T) {
	p, err := Traces(sineRec(1), domain.ChannelPrimary)
	require.NoError(t, err)

	err = ScaleBars(p, 0, "s", 1, "mV", Bounds{XMax: 1, YMax: 1})
	assert.Error(t, err)
}

func TestRaster(t *testing.T) {
	events := [][]float64{
		{0.1, 0.3, 0.5},
		{0.2, 0.4},
		{0.15, 0.35, 0.55},
	}

	p, err := Raster(events, map[string]float64{"stim": 0.25})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "raster.png")
	require.NoError(t, Save(p, out))
	requireSaved(t, out)
}

func TestBox(t *testing.T) {
	cols := []Column{
		{Label: "control", Values: []float64{1, 2, 3, 4, 5}},
		{Label: "drug", Values: []float64{2, 4, 6, 8, 10}},
	}

	p, err := Box(cols)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "box.png")
	require.NoError(t, Save(p, out))
	requireSaved(t, out)
}

func TestBoxEmpty(t *testing.T) {
	_, err := Box(nil)
	assert.Error(t, err)
}

func TestScatterColumnsDeterministic(t *testing.T) {
	cols := []Column{
		{Label: "a", Values: []float64{1, 2, 3}},
		{Label: "b", Values: []float64{4, 5, 6}},
	}

	dir := t.TempDir()
	for _, name := range []string{"one.png", "two.png"} {
		p, err := ScatterColumns(cols, 0.05, 42)
		require.NoError(t, err)
		require.NoError(t, Save(p, filepath.Join(dir, name)))
	}

	one, err := os.ReadFile(filepath.Join(dir, "one.png"))
	require.NoError(t, err)
	two, err := os.ReadFile(filepath.Join(dir, "two.png"))
	require.NoError(t, err)
	assert.Equal(t, one, two, "same data and seed should render identically")
}

func TestFitOverlay(t *testing.T) {
	fit := &analysis.DecayFit{
		Tau:    0.01,
		X:      []float64{0, 0.01, 0.02, 0.03},
		Y:      []float64{-80, -30, -11, -4},
		Fitted: []float64{-80, -29.4, -10.8, -4.0},
	}

	p, err := FitOverlay(fit)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "fit.png")
	require.NoError(t, Save(p, out))
	requireSaved(t, out)
}
