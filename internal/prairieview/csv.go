package prairieview

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"neurphys/pkg/contracts/domain"
)

// ImportVoltageCSV reads a voltage recording table into a sweep. Column
// names come from the sidecar metadata; the first column is always time in
// milliseconds. Primary and secondary channels are divided by their
// multiclamp divisors.
func ImportVoltageCSV(path string, meta *Metadata) (*domain.Sweep, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: voltage recording has no data rows", path)
	}
	rows = rows[1:] // header row is replaced by sidecar channel names

	numCols := 1 + len(meta.Channels)
	sweep := &domain.Sweep{Time: make([]float64, len(rows))}
	for _, name := range meta.Channels {
		series := domain.Series{Name: name, Samples: make([]float64, len(rows))}
		switch name {
		case domain.ChannelPrimary:
			if meta.Primary != nil {
				series.Units = meta.Primary.Unit
			}
		case domain.ChannelSecondary:
			if meta.Secondary != nil {
				series.Units = meta.Secondary.Unit
			}
		}
		sweep.Channels = append(sweep.Channels, series)
	}

	primaryDiv := meta.PrimaryDivisor()
	secondaryDiv := meta.SecondaryDivisor()

	for i, row := range rows {
		if len(row) < numCols {
			return nil, fmt.Errorf("%s: row %d has %d columns, want %d", path, i+2, len(row), numCols)
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: bad time value %q", path, i+2, row[0])
		}
		sweep.Time[i] = t / 1000

		for c := range sweep.Channels {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: bad %s value %q", path, i+2, sweep.Channels[c].Name, row[c+1])
			}
			switch sweep.Channels[c].Name {
			case domain.ChannelPrimary:
				v /= primaryDiv
			case domain.ChannelSecondary:
				v /= secondaryDiv
			}
			sweep.Channels[c].Samples[i] = v
		}
	}

	return sweep, nil
}

// ImportLinescanCSV reads a linescan profile table. Profiles come in
// time/value column pairs ("Prof 1 Time(ms)", "Prof 1", ...); time columns
// are converted from milliseconds to seconds.
func ImportLinescanCSV(path string) (*domain.Linescan, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: linescan has no data rows", path)
	}

	header := rows[0]
	data := rows[1:]
	if len(header)%2 != 0 {
		return nil, fmt.Errorf("%s: expected time/value column pairs, got %d columns", path, len(header))
	}

	ls := &domain.Linescan{Source: path}
	for p := 0; p < len(header)/2; p++ {
		profile := domain.Profile{
			Number:       p + 1,
			Time:         make([]float64, len(data)),
			Fluorescence: make([]float64, len(data)),
		}
		for i, row := range data {
			if len(row) < len(header) {
				return nil, fmt.Errorf("%s: row %d has %d columns, want %d", path, i+2, len(row), len(header))
			}
			t, err := strconv.ParseFloat(strings.TrimSpace(row[2*p]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: bad time value %q", path, i+2, row[2*p])
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[2*p+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: bad profile value %q", path, i+2, row[2*p+1])
			}
			profile.Time[i] = t / 1000
			profile.Fluorescence[i] = v
		}
		ls.Profiles = append(ls.Profiles, profile)
	}

	return ls, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
