package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"neurphys/internal/config"
	"neurphys/pkg/contracts/domain"
)

// ExcelExporter writes multi-sheet workbooks for sharing analysis results.
type ExcelExporter struct {
	paths *config.Paths
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(paths *config.Paths) *ExcelExporter {
	return &ExcelExporter{paths: paths}
}

// ExportWorkbook writes one workbook with a summary sheet covering every
// recording and one sheet per sweep of each recording. Sheet names are
// "<base>_sweep001" truncated to Excel's 31-character limit.
func (e *ExcelExporter) ExportWorkbook(recs []*domain.Recording, filename string) (string, error) {
	if len(recs) == 0 {
		return "", fmt.Errorf("no recordings to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	f.SetSheetName(f.GetSheetName(0), summary)

	summaryHeaders := []string{"source", "sample_rate_hz", "sweeps", "samples_per_sweep", "channels"}
	for col, h := range summaryHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}
		f.SetCellValue(summary, cell, h)
	}

	for ri, rec := range recs {
		if rec.NumSweeps() == 0 {
			return "", fmt.Errorf("recording %s has no sweeps", rec.Source)
		}
		first := rec.Sweeps[0]

		row := ri + 2
		values := []interface{}{
			rec.Source,
			rec.SampleRate,
			rec.NumSweeps(),
			first.Len(),
			len(first.Channels),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return "", err
			}
			f.SetCellValue(summary, cell, v)
		}

		if err := e.addSweepSheets(f, rec); err != nil {
			return "", err
		}
	}

	fullPath := e.paths.ReportPath(filename)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("Wrote Excel workbook",
		slog.String("path", fullPath),
		slog.Int("recordings", len(recs)))
	return fullPath, nil
}

func (e *ExcelExporter) addSweepSheets(f *excelize.File, rec *domain.Recording) error {
	base := filepath.Base(rec.Source)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}

	for si, sweep := range rec.Sweeps {
		name := sheetName(fmt.Sprintf("%s_%s", base, domain.SweepName(si+1)))
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}

		headers := []string{"time"}
		for _, ch := range sweep.Channels {
			headers = append(headers, ch.Name)
		}
		for col, h := range headers {
			cell, err := excelize.CoordinatesToCellName(col+1, 1)
			if err != nil {
				return err
			}
			f.SetCellValue(name, cell, h)
		}

		for row := 0; row < sweep.Len(); row++ {
			cell, err := excelize.CoordinatesToCellName(1, row+2)
			if err != nil {
				return err
			}
			f.SetCellValue(name, cell, sweep.Time[row])
			for ci, ch := range sweep.Channels {
				cell, err := excelize.CoordinatesToCellName(ci+2, row+2)
				if err != nil {
					return err
				}
				f.SetCellValue(name, cell, ch.Samples[row])
			}
		}
	}
	return nil
}

// sheetName clips a name to Excel's 31-character sheet name limit.
func sheetName(name string) string {
	const maxSheetName = 31
	if len(name) <= maxSheetName {
		return name
	}
	// Keep the sweep suffix, clip the middle.
	return name[:maxSheetName-9] + name[len(name)-9:]
}
