// Package exporter writes imported recordings and derived analysis tables
// to disk.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and UTF-8 BOM for Excel compatibility.
//
// RecordingExporter: Streams full-resolution sweep data to wide CSV files
// under data/ and writes analysis reports (event frequencies, membrane
// property summaries) under reports/.
//
// ExcelExporter: Builds multi-sheet workbooks with a recording summary
// sheet plus one sheet per sweep.
package exporter
