package domain

import (
	"fmt"
	"sort"
	"time"
)

// Channel name conventions shared by every importer. The first ADC channel
// is always "primary"; additional channels are numbered from 1.
const (
	ChannelPrimary   = "primary"
	ChannelSecondary = "secondary"
	ChannelTime      = "time"
)

// ChannelName returns the conventional name for the ADC channel at index i.
func ChannelName(i int) string {
	if i == 0 {
		return ChannelPrimary
	}
	return fmt.Sprintf("channel_%d", i)
}

// SweepName returns the zero-padded sweep label for a 1-based sweep number,
// e.g. "sweep001".
func SweepName(n int) string {
	return fmt.Sprintf("sweep%03d", n)
}

// Series is a named sample vector with its physical units.
type Series struct {
	Name    string    `json:"name"`
	Units   string    `json:"units,omitempty"`
	Samples []float64 `json:"samples"`
}

// Sweep is a single acquisition episode: a time vector starting at zero plus
// one or more recorded channels of equal length.
type Sweep struct {
	Time     []float64 `json:"time"`
	Channels []Series  `json:"channels"`
}

// Channel returns the series with the given name, or nil if the sweep has no
// such channel.
func (s *Sweep) Channel(name string) *Series {
	for i := range s.Channels {
		if s.Channels[i].Name == name {
			return &s.Channels[i]
		}
	}
	return nil
}

// Primary returns the primary channel series, or nil for an empty sweep.
func (s *Sweep) Primary() *Series {
	return s.Channel(ChannelPrimary)
}

// Len returns the number of samples in the sweep.
func (s *Sweep) Len() int {
	return len(s.Time)
}

// Window returns the index range [lo, hi) of samples whose time falls within
// [start, end], both ends inclusive. An empty window yields lo == hi.
func (s *Sweep) Window(start, end float64) (lo, hi int) {
	lo = sort.SearchFloat64s(s.Time, start)
	hi = lo
	for hi < len(s.Time) && s.Time[hi] <= end {
		hi++
	}
	return lo, hi
}

// Clone returns a deep copy of the sweep.
func (s *Sweep) Clone() *Sweep {
	c := &Sweep{
		Time:     append([]float64(nil), s.Time...),
		Channels: make([]Series, len(s.Channels)),
	}
	for i, ch := range s.Channels {
		c.Channels[i] = Series{
			Name:    ch.Name,
			Units:   ch.Units,
			Samples: append([]float64(nil), ch.Samples...),
		}
	}
	return c
}

// Recording is an ordered collection of sweeps from a single source file or
// acquisition folder.
type Recording struct {
	Source     string    `json:"source"`
	SampleRate float64   `json:"sample_rate"` // Hz
	Sweeps     []*Sweep  `json:"sweeps"`
	AcquiredAt time.Time `json:"acquired_at,omitempty"`
}

// NumSweeps returns the number of sweeps in the recording.
func (r *Recording) NumSweeps() int {
	return len(r.Sweeps)
}

// Sweep returns the sweep with the given 1-based number.
func (r *Recording) Sweep(n int) (*Sweep, error) {
	if n < 1 || n > len(r.Sweeps) {
		return nil, fmt.Errorf("recording %s has no %s", r.Source, SweepName(n))
	}
	return r.Sweeps[n-1], nil
}

// KeepSweeps returns a recording containing only the sweeps with the given
// 1-based numbers, in their original order.
func (r *Recording) KeepSweeps(nums []int) (*Recording, error) {
	keep, err := r.sweepSet(nums)
	if err != nil {
		return nil, err
	}
	out := &Recording{Source: r.Source, SampleRate: r.SampleRate, AcquiredAt: r.AcquiredAt}
	for i, s := range r.Sweeps {
		if keep[i+1] {
			out.Sweeps = append(out.Sweeps, s)
		}
	}
	return out, nil
}

// DropSweeps returns a recording with the sweeps with the given 1-based
// numbers removed. Order of the surviving sweeps is preserved.
func (r *Recording) DropSweeps(nums []int) (*Recording, error) {
	drop, err := r.sweepSet(nums)
	if err != nil {
		return nil, err
	}
	out := &Recording{Source: r.Source, SampleRate: r.SampleRate, AcquiredAt: r.AcquiredAt}
	for i, s := range r.Sweeps {
		if !drop[i+1] {
			out.Sweeps = append(out.Sweeps, s)
		}
	}
	return out, nil
}

func (r *Recording) sweepSet(nums []int) (map[int]bool, error) {
	set := make(map[int]bool, len(nums))
	for _, n := range nums {
		if n < 1 || n > len(r.Sweeps) {
			return nil, fmt.Errorf("recording %s has no %s", r.Source, SweepName(n))
		}
		set[n] = true
	}
	return set, nil
}
