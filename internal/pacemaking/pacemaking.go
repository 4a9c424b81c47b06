package pacemaking

import (
	"fmt"
	"math"

	"neurphys/internal/analysis"
	"neurphys/pkg/contracts/domain"
)

// BaselinePacemaking flattens slow drift in a cell-attached trace by
// subtracting an n-point running average from the primary channel, in
// place. The first n-1 samples have no running average yet and are left
// unbaselined.
func BaselinePacemaking(s *domain.Sweep, n int) error {
	primary := s.Primary()
	if primary == nil {
		return fmt.Errorf("sweep has no primary channel")
	}
	if n < 1 || n > len(primary.Samples) {
		return fmt.Errorf("running average span %d out of range for %d samples", n, len(primary.Samples))
	}

	smoothed := analysis.SimpleSmoothing(primary.Samples, n)
	for i, v := range smoothed {
		if !math.IsNaN(v) {
			primary.Samples[i] -= v
		}
	}
	return nil
}

// FreqResult holds the instantaneous event frequency of one sweep.
// Values[k] is the frequency (or interval) between event k and k+1, so it
// is one shorter than Indices. Times holds the time of each event's
// closing edge, aligned with Values.
type FreqResult struct {
	Values  []float64 // Hz, or seconds when ISI was requested
	Indices []int
	Times   []float64
}

// CalcFreq detects events on the primary channel that exceed minHeight and
// returns their instantaneous frequency. minDistance is the minimum event
// separation in samples. With valley true the trace is searched for
// negative-going events and the sign of minHeight is ignored. With isi
// true the raw inter-event intervals are returned instead of Hz.
func CalcFreq(s *domain.Sweep, minHeight float64, minDistance int, valley, isi bool) (*FreqResult, error) {
	primary := s.Primary()
	if primary == nil {
		return nil, fmt.Errorf("sweep has no primary channel")
	}

	opts := DefaultPeakOptions()
	opts.MinDistance = minDistance
	opts.Valley = valley
	opts.MinHeight = minHeight
	if valley {
		opts.MinHeight = math.Abs(minHeight)
	}

	indices := DetectPeaks(primary.Samples, opts)
	if len(indices) < 2 {
		return nil, fmt.Errorf("found %d events; need at least 2 for a frequency", len(indices))
	}

	res := &FreqResult{
		Values:  make([]float64, len(indices)-1),
		Indices: indices,
		Times:   make([]float64, len(indices)-1),
	}
	for k := 1; k < len(indices); k++ {
		dt := s.Time[indices[k]] - s.Time[indices[k-1]]
		if isi {
			res.Values[k-1] = dt
		} else {
			res.Values[k-1] = 1 / dt
		}
		res.Times[k-1] = s.Time[indices[k]]
	}
	return res, nil
}

// FixedShifts shifts the event indices by each given sample count. A
// shifted index is masked out when it would run past the next event, so
// every returned array stays within its own inter-event interval. Keys of
// the result are "fixed_<shift>".
func FixedShifts(indices []int, shifts []int) map[string][]int {
	out := make(map[string][]int, len(shifts))
	for _, shift := range shifts {
		var kept []int
		for k := 0; k+1 < len(indices); k++ {
			if indices[k]+shift <= indices[k+1] {
				kept = append(kept, indices[k]+shift)
			}
		}
		out[fmt.Sprintf("fixed_%d", shift)] = kept
	}
	return out
}

// PercentShifts shifts each event index forward by a fraction of the
// following inter-event interval, truncated to whole samples. Keys of the
// result are "percen_<fraction>" with two decimal places.
func PercentShifts(indices []int, fractions []float64) map[string][]int {
	out := make(map[string][]int, len(fractions))
	for _, frac := range fractions {
		shifted := make([]int, 0, len(indices))
		for k := 0; k+1 < len(indices); k++ {
			gap := indices[k+1] - indices[k]
			shifted = append(shifted, indices[k]+int(float64(gap)*frac))
		}
		out[fmt.Sprintf("percen_%.2f", frac)] = shifted
	}
	return out
}

// IEIMasks merges FixedShifts and PercentShifts into one keyed set of
// inter-event-interval index masks. Either argument may be nil.
func IEIMasks(indices []int, shifts []int, fractions []float64) map[string][]int {
	out := make(map[string][]int)
	for k, v := range FixedShifts(indices, shifts) {
		out[k] = v
	}
	for k, v := range PercentShifts(indices, fractions) {
		out[k] = v
	}
	return out
}
