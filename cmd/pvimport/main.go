package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"neurphys/internal/config"
	"neurphys/internal/exporter"
	"neurphys/internal/prairieview"
	"neurphys/internal/validation"
	"neurphys/pkg/contracts"
	"neurphys/pkg/contracts/domain"
)

func main() {
	inDir := flag.String("in", "", "PrairieView acquisition folder to import")
	outDir := flag.String("out", "", "output directory for CSV files (defaults to reports/ next to the executable)")
	workers := flag.Int("workers", 4, "concurrent file parsers")
	excel := flag.Bool("excel", false, "also write an Excel workbook of the voltage recording")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	if *inDir == "" {
		slog.Error("missing required -in flag")
		flag.Usage()
		os.Exit(1)
	}
	if *workers < 1 {
		*workers = 1
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
	if err := fv.ValidatePrairieViewFolder(*inDir); err != nil {
		slog.Error("Input folder rejected", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := fv.ValidateOutputDirectory(*outDir); err != nil {
		slog.Error("Output directory rejected", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("Importing PrairieView folder",
		slog.String("folder", *inDir),
		slog.Int("workers", *workers))

	data, err := prairieview.ImportFolder(ctx, *inDir, *workers)
	if err != nil {
		slog.Error("Import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	recExporter := exporter.NewRecordingExporter(paths)

	if data.VoltageRecording != nil {
		out, err := recExporter.ExportRecording(data.VoltageRecording, *outDir)
		if err != nil {
			slog.Error("Failed to export voltage recording", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("Exported voltage recording",
			slog.Int("sweeps", data.VoltageRecording.NumSweeps()),
			slog.Float64("sample_rate", data.VoltageRecording.SampleRate),
			slog.String("output", out))

		if *excel {
			xlsx := exporter.NewExcelExporter(paths)
			book, err := xlsx.ExportWorkbook([]*domain.Recording{data.VoltageRecording}, "recordings.xlsx")
			if err != nil {
				slog.Error("Failed to write workbook", slog.String("error", err.Error()))
			} else {
				slog.Info("Wrote workbook", slog.String("output", book))
			}
		}
	} else {
		slog.Warn("Folder has no voltage recording")
	}

	for _, ls := range data.Linescans {
		out, err := recExporter.ExportLinescan(ls, *outDir)
		if err != nil {
			slog.Error("Failed to export linescan",
				slog.String("source", ls.Source),
				slog.String("error", err.Error()))
			continue
		}
		slog.Info("Exported linescan",
			slog.String("source", ls.Source),
			slog.Int("profiles", len(ls.Profiles)),
			slog.String("output", out))
	}

	slog.Info("Done",
		slog.Int("files", len(data.Files)),
		slog.Int("linescans", len(data.Linescans)))
}
