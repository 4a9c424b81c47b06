package pacemaking

import (
	"math"
	"sort"
)

// Edge selects which side of a flat peak counts as the detection point.
type Edge int

const (
	EdgeNone Edge = iota // flat peaks are not detected
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// PeakOptions tunes DetectPeaks. The zero value detects every rising-edge
// local maximum; use DefaultPeakOptions to disable the height filter.
type PeakOptions struct {
	// MinHeight drops peaks below this amplitude. NaN disables the filter.
	MinHeight float64
	// MinDistance is the minimum separation between peaks in samples.
	// Values below 1 are treated as 1.
	MinDistance int
	// Threshold drops peaks that do not exceed both immediate neighbors
	// by at least this much.
	Threshold float64
	Edge      Edge
	// KeepSameHeight retains peaks of equal height even when they fall
	// within MinDistance of each other.
	KeepSameHeight bool
	// Valley detects local minima instead of maxima.
	Valley bool
}

// DefaultPeakOptions returns options matching a plain rising-edge peak
// search with no amplitude filter.
func DefaultPeakOptions() PeakOptions {
	return PeakOptions{MinHeight: math.NaN(), MinDistance: 1, Edge: EdgeRising}
}

// DetectPeaks finds the indices of local maxima (or minima) in x, after
// Marcos Duarte's detect_peaks. NaN samples and their neighbors are never
// peaks, and neither are the first and last samples.
func DetectPeaks(x []float64, opts PeakOptions) []int {
	n := len(x)
	if n < 3 {
		return nil
	}

	data := make([]float64, n)
	copy(data, x)
	if opts.Valley {
		for i := range data {
			data[i] = -data[i]
		}
	}

	var nanIdx []int
	for i, v := range data {
		if math.IsNaN(v) {
			nanIdx = append(nanIdx, i)
			data[i] = math.Inf(1)
		}
	}

	dx := make([]float64, n-1)
	for i := range dx {
		dx[i] = data[i+1] - data[i]
		if math.IsNaN(dx[i]) {
			dx[i] = math.Inf(1)
		}
	}

	// left/right are the padded slopes around sample i.
	left := func(i int) float64 {
		if i == 0 {
			return 0
		}
		return dx[i-1]
	}
	right := func(i int) float64 {
		if i == n-1 {
			return 0
		}
		return dx[i]
	}

	var ind []int
	for i := 0; i < n; i++ {
		var hit bool
		switch opts.Edge {
		case EdgeNone:
			hit = right(i) < 0 && left(i) > 0
		case EdgeRising:
			hit = right(i) <= 0 && left(i) > 0
		case EdgeFalling:
			hit = right(i) < 0 && left(i) >= 0
		case EdgeBoth:
			hit = (right(i) <= 0 && left(i) > 0) || (right(i) < 0 && left(i) >= 0)
		}
		if hit {
			ind = append(ind, i)
		}
	}

	if len(nanIdx) > 0 {
		near := make(map[int]bool, len(nanIdx)*3)
		for _, i := range nanIdx {
			near[i-1] = true
			near[i] = true
			near[i+1] = true
		}
		ind = filterIdx(ind, func(i int) bool { return !near[i] })
	}

	ind = filterIdx(ind, func(i int) bool { return i != 0 && i != n-1 })

	if !math.IsNaN(opts.MinHeight) {
		ind = filterIdx(ind, func(i int) bool { return data[i] >= opts.MinHeight })
	}

	if opts.Threshold > 0 {
		ind = filterIdx(ind, func(i int) bool {
			return math.Min(data[i]-data[i-1], data[i]-data[i+1]) >= opts.Threshold
		})
	}

	if len(ind) > 0 && opts.MinDistance > 1 {
		ind = enforceDistance(data, ind, opts.MinDistance, opts.KeepSameHeight)
	}

	return ind
}

func filterIdx(ind []int, keep func(int) bool) []int {
	out := ind[:0]
	for _, i := range ind {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

// enforceDistance suppresses peaks within mpd samples of a taller peak,
// tallest first. Equal heights break toward the later index, so of two
// equal peaks within mpd the later one survives.
func enforceDistance(data []float64, ind []int, mpd int, kpsh bool) []int {
	byHeight := make([]int, len(ind))
	copy(byHeight, ind)
	sort.SliceStable(byHeight, func(a, b int) bool {
		ha, hb := data[byHeight[a]], data[byHeight[b]]
		if ha != hb {
			return ha > hb
		}
		return byHeight[a] > byHeight[b]
	})

	deleted := make(map[int]bool, len(ind))
	for _, i := range byHeight {
		if deleted[i] {
			continue
		}
		for _, j := range byHeight {
			if j == i || deleted[j] {
				continue
			}
			if j >= i-mpd && j <= i+mpd && !(kpsh && data[j] >= data[i]) {
				deleted[j] = true
			}
		}
	}

	out := make([]int, 0, len(ind))
	for _, i := range ind {
		if !deleted[i] {
			out = append(out, i)
		}
	}
	return out
}
