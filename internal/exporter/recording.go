package exporter

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"neurphys/internal/config"
	"neurphys/pkg/contracts/domain"
)

// RecordingExporter writes imported recordings and derived analysis tables
// to CSV files.
type RecordingExporter struct {
	csvWriter *CSVWriter
}

// NewRecordingExporter creates a new recording exporter
func NewRecordingExporter(paths *config.Paths) *RecordingExporter {
	return &RecordingExporter{
		csvWriter: NewCSVWriter(paths),
	}
}

// ExportRecording streams every sweep of a recording to one wide CSV: a
// shared time column followed by one column per sweep and channel, named
// sweep001_primary, sweep001_channel_1 and so on. An absolute outputDir is
// honored as-is; a relative one lands under the reports directory.
func (r *RecordingExporter) ExportRecording(rec *domain.Recording, outputDir string) (string, error) {
	if rec.NumSweeps() == 0 {
		return "", fmt.Errorf("recording %s has no sweeps", rec.Source)
	}

	first := rec.Sweeps[0]
	headers := []string{"time"}
	for si := range rec.Sweeps {
		for _, ch := range rec.Sweeps[si].Channels {
			headers = append(headers, fmt.Sprintf("%s_%s", domain.SweepName(si+1), ch.Name))
		}
	}

	filename := csvName(rec.Source)
	filePath := filepath.Join(outputDir, filename)

	stream, err := r.csvWriter.CreateStreamWriter(filePath, headers)
	if err != nil {
		return "", err
	}

	for row := 0; row < first.Len(); row++ {
		record := make([]string, 0, len(headers))
		record = append(record, formatSample(first.Time[row]))
		for _, sweep := range rec.Sweeps {
			for _, ch := range sweep.Channels {
				if row < len(ch.Samples) {
					record = append(record, formatSample(ch.Samples[row]))
				} else {
					record = append(record, "")
				}
			}
		}
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return "", fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := stream.Close(); err != nil {
		return "", err
	}
	return filePath, nil
}

// ExportLinescan writes every profile of a linescan to one CSV, with a time
// and fluorescence column per profile. Output directory handling matches
// ExportRecording.
func (r *RecordingExporter) ExportLinescan(ls *domain.Linescan, outputDir string) (string, error) {
	if len(ls.Profiles) == 0 {
		return "", fmt.Errorf("linescan %s has no profiles", ls.Source)
	}

	var headers []string
	maxLen := 0
	for _, prof := range ls.Profiles {
		headers = append(headers,
			fmt.Sprintf("prof_%d_time", prof.Number),
			fmt.Sprintf("prof_%d", prof.Number))
		if len(prof.Time) > maxLen {
			maxLen = len(prof.Time)
		}
	}

	var records [][]string
	for row := 0; row < maxLen; row++ {
		record := make([]string, 0, len(headers))
		for _, prof := range ls.Profiles {
			if row < len(prof.Time) {
				record = append(record, formatSample(prof.Time[row]), formatSample(prof.Fluorescence[row]))
			} else {
				record = append(record, "", "")
			}
		}
		records = append(records, record)
	}

	filePath := filepath.Join(outputDir, csvName(ls.Source))
	if err := r.csvWriter.WriteSimpleCSV(filePath, headers, records); err != nil {
		return "", err
	}
	return filePath, nil
}

// ExportFrequencies writes per-sweep event frequencies to a report CSV.
func (r *RecordingExporter) ExportFrequencies(source string, sweeps []domain.FrequencySweep, outputDir string) (string, error) {
	headers := []string{"sweep", "event_time", "frequency_hz", "interval_s"}

	var records [][]string
	for _, fs := range sweeps {
		for i, t := range fs.EventTimes {
			row := []string{fs.Sweep, formatSample(t), "", ""}
			if i < len(fs.Frequencies) {
				row[2] = formatMetric(fs.Frequencies[i])
			}
			if i < len(fs.Intervals) {
				row[3] = formatMetric(fs.Intervals[i])
			}
			records = append(records, row)
		}
	}

	filename := strings.TrimSuffix(csvName(source), ".csv") + "_frequency.csv"
	filePath := filepath.Join(outputDir, filename)
	if err := r.csvWriter.WriteSimpleCSV(filePath, headers, records); err != nil {
		return "", err
	}
	return filePath, nil
}

// ExportSpectra writes per-epoch power spectral densities to a report CSV,
// one row per frequency bin.
func (r *RecordingExporter) ExportSpectra(source string, spectra []domain.PowerSpectrum, outputDir string) (string, error) {
	headers := []string{"sweep", "epoch", "frequency_hz", "power"}

	var records [][]string
	for _, ps := range spectra {
		for i, f := range ps.Frequencies {
			if i >= len(ps.Power) {
				break
			}
			records = append(records, []string{
				ps.Sweep,
				ps.Epoch,
				formatSample(f),
				formatMetric(ps.Power[i]),
			})
		}
	}

	filename := strings.TrimSuffix(csvName(source), ".csv") + "_psd.csv"
	filePath := filepath.Join(outputDir, filename)
	if err := r.csvWriter.WriteSimpleCSV(filePath, headers, records); err != nil {
		return "", err
	}
	return filePath, nil
}

// ExportMembraneSummary appends one row of passive membrane properties per
// recording to a shared report, creating it with headers on first write.
func (r *RecordingExporter) ExportMembraneSummary(results map[string]*domain.MembraneProperties, filePath string) error {
	sources := make([]string, 0, len(results))
	for source := range results {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var records [][]string
	for _, source := range sources {
		props := results[source]
		records = append(records, []string{
			source,
			formatMetric(props.AccessResistance),
			formatMetric(props.MembraneResistance),
			formatMetric(props.Capacitance),
			formatMetric(props.TimeConstant),
		})
	}

	headers := []string{"source", "ra_mohm", "rm_mohm", "cm_pf", "tau_ms"}
	return r.csvWriter.WriteSimpleCSV(filePath, headers, records)
}

// csvName derives the export filename from a source path.
func csvName(source string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	if ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base + ".csv"
}
