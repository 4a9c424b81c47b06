package domain

import "fmt"

// Profile is a single linescan profile: fluorescence samples with their own
// time base. PrairieView writes one time column per profile.
type Profile struct {
	Number       int       `json:"number"` // 1-based, matching "Prof 1", "Prof 2", ...
	Time         []float64 `json:"time"`   // seconds
	Fluorescence []float64 `json:"fluorescence"`
}

// Linescan holds the profiles extracted from a PrairieView linescan CSV.
type Linescan struct {
	Source   string    `json:"source"`
	Profiles []Profile `json:"profiles"`
}

// Profile returns the profile with the given 1-based number.
func (l *Linescan) Profile(n int) (*Profile, error) {
	for i := range l.Profiles {
		if l.Profiles[i].Number == n {
			return &l.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("linescan %s has no profile %d", l.Source, n)
}
