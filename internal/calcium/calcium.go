// Package calcium estimates calcium concentration from two-photon
// line-scan fluorescence profiles.
package calcium

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"neurphys/pkg/contracts/domain"
)

// DyeProperties describes the indicator dye and imaging system used for a
// concentration estimate.
type DyeProperties struct {
	// Background is the PMT background fluorescence subtracted from every
	// sample (arbitrary units).
	Background float64
	// Kd is the dye dissociation constant in nM.
	Kd float64
	// Rf is the dye's theoretical dynamic range (Fmax/Fmin).
	Rf float64
	// RfReal is the experimentally measured dynamic range.
	RfReal float64
}

func (d DyeProperties) validate() error {
	if d.Kd <= 0 {
		return fmt.Errorf("dye Kd must be positive, got %v", d.Kd)
	}
	if d.Rf <= 0 || d.RfReal <= 0 {
		return fmt.Errorf("dye dynamic ranges must be positive, got rf=%v rfReal=%v", d.Rf, d.RfReal)
	}
	return nil
}

// Concentration converts the fluorescence of one line-scan profile to an
// estimated calcium concentration in nM. F0 is the mean
// background-subtracted fluorescence over [f0Start, f0End] and Fmax is
// scaled from it by the ratio of the theoretical to the measured dynamic
// range. The profile itself is not modified.
func Concentration(ls *domain.Linescan, profileNum int, f0Start, f0End float64, dye DyeProperties) ([]float64, error) {
	if err := dye.validate(); err != nil {
		return nil, err
	}

	prof, err := ls.Profile(profileNum)
	if err != nil {
		return nil, err
	}

	f := make([]float64, len(prof.Fluorescence))
	for i, v := range prof.Fluorescence {
		f[i] = v - dye.Background
	}

	var baseline []float64
	for i, t := range prof.Time {
		if t >= f0Start && t <= f0End {
			baseline = append(baseline, f[i])
		}
	}
	if len(baseline) == 0 {
		return nil, fmt.Errorf("F0 window [%v, %v] contains no samples", f0Start, f0End)
	}

	f0 := stat.Mean(baseline, nil)
	if f0 == 0 {
		return nil, fmt.Errorf("mean baseline fluorescence is zero")
	}
	fmax := f0 * dye.Rf / dye.RfReal

	conc := make([]float64, len(f))
	for i, v := range f {
		ratio := v / fmax
		conc[i] = dye.Kd * (1 - ratio) / (ratio - 1/dye.Rf)
	}
	return conc, nil
}
