package oscillation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"neurphys/pkg/contracts/domain"
)

// Histogram is the binned amplitude distribution of one epoch. Bins holds
// the left edge of each bin.
type Histogram struct {
	Sweep  string
	Epoch  string
	Bins   []float64
	Counts []float64
}

// EpochHist builds a fixed-range histogram for every epoch of the named
// channel. Samples outside [min, max] are ignored; a sample exactly at max
// falls in the last bin.
func EpochHist(rec *domain.Recording, channel string, window, step int, min, max float64, numBins int) ([]Histogram, error) {
	if numBins < 1 {
		return nil, fmt.Errorf("numBins must be positive, got %d", numBins)
	}
	if min >= max {
		return nil, fmt.Errorf("histogram range [%v, %v] is empty", min, max)
	}

	epochs, err := Epochs(rec, channel, window, step)
	if err != nil {
		return nil, err
	}

	dividers := make([]float64, numBins+1)
	floats.Span(dividers, min, max)

	out := make([]Histogram, 0, len(epochs))
	for _, epoch := range epochs {
		// stat.Histogram requires sorted in-range samples.
		sorted := make([]float64, 0, len(epoch.Samples))
		topBin := 0.0
		for _, v := range epoch.Samples {
			switch {
			case v == max:
				topBin++
			case v >= min && v < max:
				sorted = append(sorted, v)
			}
		}
		sort.Float64s(sorted)

		counts := stat.Histogram(make([]float64, numBins), dividers, sorted, nil)
		counts[numBins-1] += topBin

		out = append(out, Histogram{
			Sweep:  epoch.Sweep,
			Epoch:  epoch.Name,
			Bins:   dividers[:numBins],
			Counts: counts,
		})
	}
	return out, nil
}

// Density is the kernel density estimate of one epoch.
type Density struct {
	Sweep   string
	Epoch   string
	X       []float64
	Density []float64
}

// EpochKDE computes a Gaussian kernel density estimate over [min, max] for
// every epoch of the named channel, using Scott's rule for the bandwidth.
// resolution <= 0 defaults to 5 points per unit of range.
func EpochKDE(rec *domain.Recording, channel string, window, step int, min, max float64, resolution int) ([]Density, error) {
	if min >= max {
		return nil, fmt.Errorf("KDE range [%v, %v] is empty", min, max)
	}
	if resolution <= 0 {
		resolution = int(math.Abs(max-min) * 5)
		if resolution < 2 {
			resolution = 2
		}
	}

	epochs, err := Epochs(rec, channel, window, step)
	if err != nil {
		return nil, err
	}

	x := make([]float64, resolution)
	floats.Span(x, min, max)

	out := make([]Density, 0, len(epochs))
	for _, epoch := range epochs {
		density := Density{
			Sweep:   epoch.Sweep,
			Epoch:   epoch.Name,
			X:       x,
			Density: gaussianKDE(epoch.Samples, x),
		}
		out = append(out, density)
	}
	return out, nil
}

// gaussianKDE evaluates a Gaussian KDE with Scott's-rule bandwidth at the
// given evaluation points.
func gaussianKDE(samples, x []float64) []float64 {
	n := float64(len(samples))
	sigma := stat.StdDev(samples, nil)
	if sigma == 0 || math.IsNaN(sigma) {
		sigma = 1
	}
	h := sigma * math.Pow(n, -1.0/5.0)

	norm := 1 / (n * h * math.Sqrt(2*math.Pi))
	out := make([]float64, len(x))
	for i, xi := range x {
		var sum float64
		for _, s := range samples {
			z := (xi - s) / h
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = norm * sum
	}
	return out
}
