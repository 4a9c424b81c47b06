package oscillation

import (
	"fmt"

	"neurphys/pkg/contracts/domain"
)

// maxEpochs bounds the per-sweep epoch count so a bad window/step pair
// cannot explode downstream result sets.
const maxEpochs = 999

// Epoch is one windowed slice of a single channel of a single sweep.
type Epoch struct {
	Sweep   string // "sweep001"
	Name    string // "epoch001"
	Samples []float64
}

// EpochName returns the zero-padded epoch label for a 1-based epoch number.
func EpochName(n int) string {
	return fmt.Sprintf("epoch%03d", n)
}

// numEpochs computes the epoch count for a sweep of the given length.
func numEpochs(samples, window, step int) (int, error) {
	if window < 1 || step < 1 {
		return 0, fmt.Errorf("window and step must be positive, got window=%d step=%d", window, step)
	}
	if window > samples {
		return 0, fmt.Errorf("window %d exceeds sweep length %d", window, samples)
	}
	n := 1 + (samples-window)/step
	if n > maxEpochs {
		return 0, fmt.Errorf("window/step would create %d epochs per sweep; limit is %d", n, maxEpochs)
	}
	return n, nil
}

// Epochs slices the named channel of every sweep into windowed epochs.
// The epoch slices alias the recording's sample storage.
func Epochs(rec *domain.Recording, channel string, window, step int) ([]Epoch, error) {
	var out []Epoch
	for si, sweep := range rec.Sweeps {
		series := sweep.Channel(channel)
		if series == nil {
			return nil, fmt.Errorf("%s has no channel %q", domain.SweepName(si+1), channel)
		}
		n, err := numEpochs(len(series.Samples), window, step)
		if err != nil {
			return nil, err
		}
		for e := 0; e < n; e++ {
			out = append(out, Epoch{
				Sweep:   domain.SweepName(si + 1),
				Name:    EpochName(e + 1),
				Samples: series.Samples[e*step : e*step+window],
			})
		}
	}
	return out, nil
}
