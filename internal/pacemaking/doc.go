// Package pacemaking analyzes spontaneous firing in cell-attached and
// whole-cell recordings: event detection, firing frequency, and
// inter-event-interval index masks.
package pacemaking
