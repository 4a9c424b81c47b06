// Package synaptics analyzes evoked synaptic currents: peak amplitude,
// decay kinetics, and paired-pulse ratios.
package synaptics

import (
	"fmt"

	"neurphys/internal/analysis"
	"neurphys/pkg/contracts/domain"
)

// pprNudge shifts the end of the first paired-pulse search window left so
// the two windows never share a sample.
const pprNudge = 0.0001

// CurrentResult is the outcome of analyzing a single synaptic current.
type CurrentResult struct {
	Peak domain.Peak
	// Decay is the biexponential fit of the event decay; nil unless it
	// was requested.
	Decay *analysis.DecayFit
}

// AnalyzeCurrent baselines the sweep over [bslStart, bslEnd], finds the
// event peak within [start, end], and optionally fits the decay. The sweep
// is modified in place by the baseline subtraction, matching how a
// multi-event protocol is analyzed sequentially.
func AnalyzeCurrent(s *domain.Sweep, bslStart, bslEnd, start, end float64, sign analysis.Sign, calcTau bool) (*CurrentResult, error) {
	if err := analysis.Baseline(s, bslStart, bslEnd); err != nil {
		return nil, err
	}

	peak, err := analysis.FindPeak(s, start, end, sign)
	if err != nil {
		return nil, err
	}

	res := &CurrentResult{Peak: peak}
	if calcTau {
		res.Decay, err = analysis.CalcDecay(s, peak)
		if err != nil {
			return nil, fmt.Errorf("decay fit: %w", err)
		}
	}
	return res, nil
}

// CalcPPR measures both peaks of a paired-pulse protocol and their ratio.
// start marks the first stimulus and stimInterval the delay to the second;
// the search for the second peak runs from the second stimulus to end.
func CalcPPR(s *domain.Sweep, bslStart, bslEnd, start, end, stimInterval float64, sign analysis.Sign) (*domain.PairedPulse, error) {
	if stimInterval <= 0 {
		return nil, fmt.Errorf("stimulus interval must be positive, got %v", stimInterval)
	}
	firstEnd := start + stimInterval
	if firstEnd >= end {
		return nil, fmt.Errorf("second stimulus at %v falls outside the search window ending at %v", firstEnd, end)
	}

	if err := analysis.Baseline(s, bslStart, bslEnd); err != nil {
		return nil, err
	}

	peak1, err := analysis.FindPeak(s, start, firstEnd-pprNudge, sign)
	if err != nil {
		return nil, fmt.Errorf("first pulse: %w", err)
	}
	peak2, err := analysis.FindPeak(s, firstEnd, end, sign)
	if err != nil {
		return nil, fmt.Errorf("second pulse: %w", err)
	}
	if peak1.Amplitude == 0 {
		return nil, fmt.Errorf("first peak amplitude is zero")
	}

	return &domain.PairedPulse{
		Peak1: peak1.Amplitude,
		Peak2: peak2.Amplitude,
		Ratio: peak2.Amplitude / peak1.Amplitude,
	}, nil
}
