// Package prairieview imports PrairieView 5.0+ acquisitions.
//
// A PrairieView acquisition folder holds one XML sidecar per sweep
// (*_VoltageRecording_*.xml) describing the enabled channels, multiclamp
// scaling divisors, sampling rate and acquisition length, plus the CSV data
// files it references: a voltage-recording table and, for imaging
// experiments, a linescan profile table.
//
// ParseXML reads one sidecar, ImportVoltageCSV and ImportLinescanCSV read
// the referenced tables, and ImportFolder collapses a whole folder into a
// single Recording (one sweep per acquisition) plus its linescans.
package prairieview
