// Package membrane derives passive membrane properties from the capacitive
// transient evoked by a voltage step, following the equations in the pClamp
// 10 user guide (pp. 163-166).
package membrane

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"neurphys/internal/analysis"
	"neurphys/pkg/contracts/domain"
)

// CalcMemProp fits the capacitive transient of a voltage-clamp test pulse
// and returns access resistance (MΩ), membrane resistance (MΩ), membrane
// capacitance (pF) and the membrane time constant (ms). The primary channel
// must hold current in pA; times are in seconds and pulseAmp is the step
// amplitude in mV, with its sign. The sweep is not modified.
func CalcMemProp(s *domain.Sweep, bslStart, bslEnd, pulseStart, pulseDur, pulseAmp float64) (*domain.MembraneProperties, error) {
	if pulseAmp == 0 {
		return nil, fmt.Errorf("pulse amplitude must be nonzero")
	}

	data := s.Clone()
	primary := data.Primary()
	if primary == nil {
		return nil, fmt.Errorf("sweep has no primary channel")
	}

	// Work in SI units: volts and amps.
	vStep := pulseAmp * 1e-3
	for i := range primary.Samples {
		primary.Samples[i] *= 1e-12
	}

	if err := analysis.Baseline(data, bslStart, bslEnd); err != nil {
		return nil, err
	}
	lo, hi := data.Window(bslStart, bslEnd)
	iBaseline := stat.Mean(primary.Samples[lo:hi], nil)

	// Steady-state current, averaged over 70-90% of the pulse.
	lo, hi = data.Window(pulseStart+pulseDur*0.7, pulseStart+pulseDur*0.9)
	if lo == hi {
		return nil, fmt.Errorf("steady-state window contains no samples")
	}
	iSS := stat.Mean(primary.Samples[lo:hi], nil)

	deltaI := iSS - iBaseline
	if deltaI == 0 {
		return nil, fmt.Errorf("no steady-state current change over the pulse")
	}

	// Remove the steady-state step so only the transient remains; its
	// charge is added back below as q2.
	for i := range primary.Samples {
		primary.Samples[i] -= deltaI
	}

	sign := analysis.Max
	if vStep < 0 {
		sign = analysis.Min
	}
	peak, err := analysis.FindPeak(data, pulseStart, pulseStart+pulseDur, sign)
	if err != nil {
		return nil, err
	}

	fit, err := analysis.CalcDecay(data, peak)
	if err != nil {
		return nil, err
	}

	// q1 is the transient charge under the fitted curve, q2 the charge
	// carried by the baseline-to-steady-state step over one time constant.
	q1 := integrate.Trapezoidal(fit.X, fit.Fitted)
	q2 := fit.Tau * deltaI
	qt := q1 + q2

	ra := fit.Tau * vStep / qt
	rt := vStep / deltaI
	rm := rt - ra
	cm := qt * rt / (vStep * rm)

	return &domain.MembraneProperties{
		AccessResistance:   ra * 1e-6,
		MembraneResistance: rm * 1e-6,
		Capacitance:        cm * 1e12,
		TimeConstant:       fit.Tau * 1e3,
	}, nil
}
