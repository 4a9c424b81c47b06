// Package oscillation analyzes oscillatory activity by slicing sweeps into
// fixed-size, possibly overlapping epochs and characterizing each epoch's
// amplitude distribution (histogram, kernel density estimate) or frequency
// content (periodogram, spectrogram).
//
// Window and step arguments are sample counts. The epoch count per sweep is
// 1 + (samples-window)/step, truncating; epochs are named "epoch001" on up
// and capped at 999 per sweep.
package oscillation
