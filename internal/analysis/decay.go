package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"neurphys/pkg/contracts/domain"
)

// DecayFit is the result of fitting a biexponential to an event decay.
type DecayFit struct {
	// Tau is the amplitude-weighted time constant in seconds.
	Tau float64
	// X is the time vector (seconds, zeroed to the peak) covering the whole
	// post-peak region, Y the raw primary samples over it and Fitted the
	// fitted curve, for overlaying the fit on the data.
	X, Y, Fitted []float64
}

// biexp is the fitted model: a·e^(−x/b) + c·e^(−x/d) + e.
func biexp(p [5]float64, x float64) float64 {
	return p[0]*math.Exp(-x/p[1]) + p[2]*math.Exp(-x/p[3]) + p[4]
}

// CalcDecay fits a biexponential to the decay phase of an event whose peak
// was already located, and returns the amplitude-weighted tau. The fit
// region runs from where the trace has decayed to 90% of the peak down to
// 5%; the primary channel is assumed to be baselined. The fit itself is done
// in ms/pA-scaled units to keep the optimizer well conditioned.
func CalcDecay(s *domain.Sweep, peak domain.Peak) (*DecayFit, error) {
	primary := s.Primary()
	if primary == nil {
		return nil, fmt.Errorf("sweep has no primary channel")
	}

	// Post-peak region.
	start := 0
	for start < len(s.Time) && s.Time[start] < peak.Time {
		start++
	}
	if start >= len(s.Time) {
		return nil, fmt.Errorf("peak time %v is past the end of the sweep", peak.Time)
	}
	post := primary.Samples[start:]
	postTime := s.Time[start:]

	// Fit bounds: first sample decayed to 90%, then to 5%, of the peak.
	idx1, idx2 := -1, -1
	for i, v := range post {
		decayed := v >= peak.Amplitude*0.90
		tailing := v >= peak.Amplitude*0.05
		if peak.Amplitude >= 0 {
			decayed = v <= peak.Amplitude*0.90
			tailing = v <= peak.Amplitude*0.05
		}
		if idx1 < 0 && decayed {
			idx1 = i
		}
		if idx1 >= 0 && tailing {
			idx2 = i
			break
		}
	}
	if idx1 < 0 || idx2 <= idx1 {
		return nil, fmt.Errorf("event does not decay to 5%% of peak within the sweep")
	}

	fitX := make([]float64, idx2-idx1+1)
	fitY := make([]float64, idx2-idx1+1)
	for i := range fitX {
		fitX[i] = (postTime[idx1+i] - postTime[idx1]) * 1e3 // ms
		fitY[i] = post[idx1+i] * 1e12                       // pA-scale
	}

	guess := [5]float64{1, 1, 1, 1, 0}
	if peak.Amplitude < 0 {
		guess = [5]float64{-1, 1, -1, 1, 0}
	}

	params, err := fitBiexp(fitX, fitY, guess)
	if err != nil {
		return nil, err
	}

	amp1, tau1, amp2, tau2 := params[0], params[1], params[2], params[3]
	if amp1+amp2 == 0 {
		return nil, fmt.Errorf("degenerate fit: amplitudes cancel")
	}
	tau := (tau1*amp1 + tau2*amp2) / (amp1 + amp2) * 1e-3 // back to seconds

	fit := &DecayFit{
		Tau: tau,
		X:   make([]float64, len(post)),
		Y:   append([]float64(nil), post...),
	}
	fit.Fitted = make([]float64, len(post))
	for i := range post {
		fit.X[i] = postTime[i] - postTime[0]
		fit.Fitted[i] = biexp(params, fit.X[i]*1e3) / 1e12
	}
	return fit, nil
}

// fitBiexp minimizes the sum of squared residuals with Nelder-Mead.
func fitBiexp(x, y []float64, guess [5]float64) ([5]float64, error) {
	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			var params [5]float64
			copy(params[:], p)
			// Zero time constants blow up the model.
			if params[1] <= 0 || params[3] <= 0 {
				return math.Inf(1)
			}
			var sse float64
			for i := range x {
				r := biexp(params, x[i]) - y[i]
				sse += r * r
			}
			return sse
		},
	}

	result, err := optimize.Minimize(problem, guess[:], &optimize.Settings{
		MajorIterations: 2000,
	}, &optimize.NelderMead{})
	if err != nil {
		return [5]float64{}, fmt.Errorf("decay fit failed to converge: %w", err)
	}

	var params [5]float64
	copy(params[:], result.X)
	return params, nil
}
