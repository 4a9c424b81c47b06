// Package analysis provides the shared trace utilities the higher-level
// analyses are built from: baseline subtraction, windowed peak search,
// biexponential decay fitting and running-average smoothing.
//
// All window arguments are in seconds against the sweep's own time vector
// and are inclusive on both ends.
package analysis
