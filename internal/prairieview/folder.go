package prairieview

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"neurphys/pkg/contracts/domain"
)

// FolderData is the result of importing a whole acquisition folder.
type FolderData struct {
	// VoltageRecording holds one sweep per acquisition that produced a
	// voltage table, in file order. Nil when the folder has none.
	VoltageRecording *domain.Recording
	// Linescans holds the profile tables, in file order.
	Linescans []*domain.Linescan
	// Files holds the parsed sidecar metadata, in file order.
	Files []*Metadata
}

// ImportFolder collapses a PrairieView acquisition folder into a recording.
// Sidecars are matched with the *_VoltageRecording_*.xml pattern and
// imported concurrently with at most workers goroutines. A folder without
// sidecars yields an empty FolderData, not an error.
func ImportFolder(ctx context.Context, folder string, workers int) (*FolderData, error) {
	sidecars, err := filepath.Glob(filepath.Join(folder, "*_VoltageRecording_*.xml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder %s: %w", folder, err)
	}
	sort.Strings(sidecars)

	out := &FolderData{}
	if len(sidecars) == 0 {
		slog.Warn("no VoltageRecording sidecars found", slog.String("folder", folder))
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}

	type acquisition struct {
		meta  *Metadata
		sweep *domain.Sweep
		scan  *domain.Linescan
	}
	acquired := make([]acquisition, len(sidecars))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sidecar := range sidecars {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			meta, err := ParseXML(sidecar)
			if err != nil {
				return err
			}
			acq := acquisition{meta: meta}

			if meta.VoltageFile != "" {
				csvPath := filepath.Join(folder, meta.VoltageFile+".csv")
				acq.sweep, err = ImportVoltageCSV(csvPath, meta)
				if err != nil {
					return err
				}
			}
			if meta.LinescanFile != "" {
				acq.scan, err = ImportLinescanCSV(filepath.Join(folder, meta.LinescanFile))
				if err != nil {
					return err
				}
			}

			acquired[i] = acq
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, acq := range acquired {
		out.Files = append(out.Files, acq.meta)
		if acq.sweep != nil {
			if out.VoltageRecording == nil {
				out.VoltageRecording = &domain.Recording{
					Source:     folder,
					SampleRate: float64(acq.meta.SampleRate),
				}
			}
			out.VoltageRecording.Sweeps = append(out.VoltageRecording.Sweeps, acq.sweep)
		}
		if acq.scan != nil {
			out.Linescans = append(out.Linescans, acq.scan)
		}
	}

	return out, nil
}
