package domain

// Peak is the result of a windowed peak search on a single sweep.
type Peak struct {
	Time      float64 `json:"time"`      // seconds
	Amplitude float64 `json:"amplitude"` // channel units
}

// MembraneProperties are passive membrane parameters derived from a
// capacitive transient.
type MembraneProperties struct {
	AccessResistance   float64 `json:"access_resistance"`   // MOhm
	MembraneResistance float64 `json:"membrane_resistance"` // MOhm
	Capacitance        float64 `json:"capacitance"`         // pF
	TimeConstant       float64 `json:"time_constant"`       // ms
}

// PairedPulse is the peak pair and ratio from a paired-pulse protocol.
type PairedPulse struct {
	Peak1 float64 `json:"peak_1"`
	Peak2 float64 `json:"peak_2"`
	Ratio float64 `json:"ratio"`
}

// FrequencySweep summarizes event detection on one sweep.
type FrequencySweep struct {
	Sweep       string    `json:"sweep"`
	EventTimes  []float64 `json:"event_times"`           // seconds, from the second event on
	Frequencies []float64 `json:"frequencies,omitempty"` // Hz
	Intervals   []float64 `json:"intervals,omitempty"`   // seconds
}

// PowerSpectrum is the one-sided power spectral density of one epoch of a
// sweep.
type PowerSpectrum struct {
	Sweep       string    `json:"sweep"`
	Epoch       string    `json:"epoch"`
	Frequencies []float64 `json:"frequencies"` // Hz
	Power       []float64 `json:"power"`       // units²/Hz
}

// RecordingSummary is the per-file entry reported by the import step and the
// recordings API.
type RecordingSummary struct {
	Source     string  `json:"source"`
	Format     string  `json:"format"` // "abf" or "prairieview"
	SampleRate float64 `json:"sample_rate"`
	NumSweeps  int     `json:"num_sweeps"`
	NumSamples int     `json:"num_samples"` // per sweep
	Channels   int     `json:"channels"`
}
