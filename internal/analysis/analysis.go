package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"neurphys/pkg/contracts/domain"
)

// Sign selects the direction of a peak search.
type Sign string

const (
	// Min finds negative-going events.
	Min Sign = "min"
	// Max finds positive-going events.
	Max Sign = "max"
)

// Baseline subtracts the mean of the primary channel over [start, end] from
// the whole primary channel. The sweep is modified in place.
func Baseline(s *domain.Sweep, start, end float64) error {
	primary := s.Primary()
	if primary == nil {
		return fmt.Errorf("sweep has no primary channel")
	}
	lo, hi := s.Window(start, end)
	if lo == hi {
		return fmt.Errorf("baseline window [%v, %v] contains no samples", start, end)
	}

	avg := stat.Mean(primary.Samples[lo:hi], nil)
	for i := range primary.Samples {
		primary.Samples[i] -= avg
	}
	return nil
}

// FindPeak returns the extreme of the primary channel over [start, end].
// Min finds the minimum, Max the maximum; the first sample wins on ties.
func FindPeak(s *domain.Sweep, start, end float64, sign Sign) (domain.Peak, error) {
	primary := s.Primary()
	if primary == nil {
		return domain.Peak{}, fmt.Errorf("sweep has no primary channel")
	}
	lo, hi := s.Window(start, end)
	if lo == hi {
		return domain.Peak{}, fmt.Errorf("peak window [%v, %v] contains no samples", start, end)
	}

	best := lo
	for i := lo + 1; i < hi; i++ {
		v := primary.Samples[i]
		switch sign {
		case Max:
			if v > primary.Samples[best] {
				best = i
			}
		default:
			if v < primary.Samples[best] {
				best = i
			}
		}
	}

	return domain.Peak{Time: s.Time[best], Amplitude: primary.Samples[best]}, nil
}

// SimpleSmoothing computes the running average of n points. The first n-1
// positions of the result are NaN so the output has the same length as the
// input. A NaN head in the input is passed through untouched and smoothing
// starts after it.
func SimpleSmoothing(data []float64, n int) []float64 {
	if n < 1 || len(data) == 0 {
		return append([]float64(nil), data...)
	}

	// Strip a leading NaN run, smooth the remainder, and stitch back.
	head := 0
	for head < len(data) && math.IsNaN(data[head]) {
		head++
	}
	if head > 0 {
		out := make([]float64, head, len(data))
		for i := range out {
			out[i] = math.NaN()
		}
		return append(out, SimpleSmoothing(data[head:], n)...)
	}

	out := make([]float64, len(data))
	for i := 0; i < n-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}

	var sum float64
	for i, v := range data {
		sum += v
		if i >= n {
			sum -= data[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}
