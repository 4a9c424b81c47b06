package synaptics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/internal/analysis"
	"neurphys/pkg/contracts/domain"
)

// epscSweep builds a trace with negative-going synaptic events of the given
// amplitudes (pA) at the given onset times, each decaying with tau.
func epscSweep(rate, tau, offset float64, onsets, amps []float64) *domain.Sweep {
	n := int(rate) // one second
	time := make([]float64, n)
	samples := make([]float64, n)
	for i := range samples {
		time[i] = float64(i) / rate
		samples[i] = offset
		for k, onset := range onsets {
			if time[i] >= onset {
				samples[i] += amps[k] * math.Exp(-(time[i]-onset)/tau)
			}
		}
	}
	return &domain.Sweep{
		Time:     time,
		Channels: []domain.Series{{Name: domain.ChannelPrimary, Units: "pA", Samples: samples}},
	}
}

func TestAnalyzeCurrentPeak(t *testing.T) {
	s := epscSweep(10000, 0.010, -12, []float64{0.5}, []float64{-80})

	res, err := AnalyzeCurrent(s, 0, 0.4, 0.45, 0.6, analysis.Min, false)
	require.NoError(t, err)

	// Baseline removes the -12 pA offset, leaving the bare event.
	assert.InDelta(t, -80, res.Peak.Amplitude, 1)
	assert.InDelta(t, 0.5, res.Peak.Time, 0.001)
	assert.Nil(t, res.Decay)
}

func TestAnalyzeCurrentWithDecay(t *testing.T) {
	s := epscSweep(10000, 0.010, 0, []float64{0.5}, []float64{-80})

	res, err := AnalyzeCurrent(s, 0, 0.4, 0.45, 0.6, analysis.Min, true)
	require.NoError(t, err)
	require.NotNil(t, res.Decay)
	assert.InEpsilon(t, 0.010, res.Decay.Tau, 0.25)
}

func TestAnalyzeCurrentBadWindow(t *testing.T) {
	s := epscSweep(10000, 0.010, 0, []float64{0.5}, []float64{-80})

	_, err := AnalyzeCurrent(s, 5, 6, 0.45, 0.6, analysis.Min, false)
	assert.Error(t, err)
}

func TestCalcPPRFacilitating(t *testing.T) {
	// Second pulse twice the first: PPR of 2.
	s := epscSweep(10000, 0.005, 0, []float64{0.5, 0.55}, []float64{-50, -100})

	ppr, err := CalcPPR(s, 0, 0.4, 0.5, 0.65, 0.05, analysis.Min)
	require.NoError(t, err)

	assert.InDelta(t, -50, ppr.Peak1, 1)
	// The second peak rides on the tail of the first.
	assert.InDelta(t, -100, ppr.Peak2, 3)
	assert.InDelta(t, 2.0, ppr.Ratio, 0.1)
}

func TestCalcPPRWindowsDoNotOverlap(t *testing.T) {
	// A large event exactly at the second stimulus must not be picked up
	// as the first peak.
	s := epscSweep(10000, 0.005, 0, []float64{0.5, 0.55}, []float64{-10, -100})

	ppr, err := CalcPPR(s, 0, 0.4, 0.5, 0.65, 0.05, analysis.Min)
	require.NoError(t, err)
	assert.InDelta(t, -10, ppr.Peak1, 1)
	assert.InDelta(t, -100, ppr.Peak2, 2)
}

func TestCalcPPRValidation(t *testing.T) {
	s := epscSweep(10000, 0.005, 0, []float64{0.5}, []float64{-50})

	_, err := CalcPPR(s, 0, 0.4, 0.5, 0.65, 0, analysis.Min)
	assert.Error(t, err, "zero interval")

	_, err = CalcPPR(s, 0, 0.4, 0.5, 0.6, 0.2, analysis.Min)
	assert.Error(t, err, "second stimulus past the window")
}
