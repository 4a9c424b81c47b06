package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"neurphys/internal/abf"
	"neurphys/internal/config"
	"neurphys/internal/exporter"
	"neurphys/internal/files"
	"neurphys/internal/nuplot"
	"neurphys/internal/validation"
	"neurphys/pkg/contracts"
	"neurphys/pkg/contracts/domain"
)

func main() {
	inPath := flag.String("in", "", "ABF file or directory of ABF files to export")
	outDir := flag.String("out", "", "output directory for CSV files (defaults to reports/ next to the executable)")
	plotDir := flag.String("plot", "", "also render trace figures into this directory")
	excel := flag.Bool("excel", false, "also write an Excel workbook of the exported recordings")
	channel := flag.String("channel", domain.ChannelPrimary, "channel to plot")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	if *inPath == "" {
		slog.Error("missing required -in flag")
		flag.Usage()
		os.Exit(1)
	}

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to resolve paths", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = paths.ReportsDir
	}

	fv := validation.NewFileValidator(slog.Default())
	if err := fv.ValidateOutputDirectory(*outDir); err != nil {
		slog.Error("Output directory rejected", slog.String("error", err.Error()))
		os.Exit(1)
	}

	files, err := collectABFFiles(*inPath)
	if err != nil {
		slog.Error("Failed to collect input files", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(files) == 0 {
		slog.Error("No ABF files found", slog.String("path", *inPath))
		os.Exit(1)
	}

	recExporter := exporter.NewRecordingExporter(paths)

	var recordings []*domain.Recording
	exported := 0
	for _, file := range files {
		if err := fv.ValidateABFFile(file); err != nil {
			slog.Error("Skipping file", slog.String("error", err.Error()))
			continue
		}

		rec, err := abf.Read(file)
		if err != nil {
			slog.Error("Failed to read recording",
				slog.String("file", file),
				slog.String("error", err.Error()))
			continue
		}

		out, err := recExporter.ExportRecording(rec, *outDir)
		if err != nil {
			slog.Error("Failed to export recording",
				slog.String("file", file),
				slog.String("error", err.Error()))
			continue
		}

		slog.Info("Exported recording",
			slog.String("source", rec.Source),
			slog.Int("sweeps", rec.NumSweeps()),
			slog.Float64("sample_rate", rec.SampleRate),
			slog.String("output", out))
		exported++
		recordings = append(recordings, rec)

		if *plotDir != "" {
			if err := renderTraces(rec, *channel, *plotDir); err != nil {
				slog.Error("Failed to render traces",
					slog.String("file", file),
					slog.String("error", err.Error()))
			}
		}
	}

	if exported == 0 {
		slog.Error("No recordings exported")
		os.Exit(1)
	}

	if *excel {
		xlsx := exporter.NewExcelExporter(paths)
		book, err := xlsx.ExportWorkbook(recordings, "recordings.xlsx")
		if err != nil {
			slog.Error("Failed to write workbook", slog.String("error", err.Error()))
		} else {
			slog.Info("Wrote workbook", slog.String("output", book))
		}
	}
	slog.Info("Done", slog.Int("exported", exported), slog.Int("found", len(files)))
}

func collectABFFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	found, err := files.NewDiscovery(path).FindABFFiles("")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(found))
	for _, f := range found {
		paths = append(paths, f.Path)
	}
	return paths, nil
}

func renderTraces(rec *domain.Recording, channel, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	p, err := nuplot.Traces(rec, channel)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(rec.Source), filepath.Ext(rec.Source))
	out := filepath.Join(dir, base+".png")
	if err := nuplot.Save(p, out); err != nil {
		return err
	}

	slog.Info("Rendered traces", slog.String("figure", out))
	return nil
}
