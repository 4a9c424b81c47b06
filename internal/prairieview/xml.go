package prairieview

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Multiclamp channel numbers as recorded in the sidecar.
const (
	patchclampPrimary   = 0
	patchclampSecondary = 1
)

// ChannelScale is the conversion recorded for a multiclamp channel.
type ChannelScale struct {
	Unit    string
	Divisor float64
}

// Metadata is the experiment description parsed from a VoltageRecording XML
// sidecar.
type Metadata struct {
	Channels     []string // enabled physical channel names, lowercased, in file order
	SampleRate   int      // Hz
	Duration     float64  // seconds
	Primary      *ChannelScale
	Secondary    *ChannelScale
	VoltageFile  string // voltage recording CSV base name, "" if none
	LinescanFile string // linescan profile file name, "" if none
}

// PrimaryDivisor returns the primary channel divisor, defaulting to 1.
func (m *Metadata) PrimaryDivisor() float64 {
	if m.Primary == nil || m.Primary.Divisor == 0 {
		return 1
	}
	return m.Primary.Divisor
}

// SecondaryDivisor returns the secondary channel divisor, defaulting to 1.
func (m *Metadata) SecondaryDivisor() float64 {
	if m.Secondary == nil || m.Secondary.Divisor == 0 {
		return 1
	}
	return m.Secondary.Divisor
}

// vrSession mirrors the VoltageRecording sidecar layout.
type vrSession struct {
	Experiment struct {
		Rate            int        `xml:"Rate"`
		AcquisitionTime int        `xml:"AcquisitionTime"` // ms
		Signals         []vrSignal `xml:"SignalList>VRecSignal"`
	} `xml:"Experiment"`
	DataFile     string `xml:"DataFile"`
	LinescanFile string `xml:"AssociatedLinescanProfileFile"`
}

type vrSignal struct {
	Enabled bool   `xml:"Enabled"`
	Name    string `xml:"Name"`
	Type    string `xml:"Type"`
	Unit    struct {
		PatchclampDevice  string  `xml:"PatchclampDevice"`
		PatchclampChannel *int    `xml:"PatchclampChannel"`
		UnitName          string  `xml:"UnitName"`
		Divisor           float64 `xml:"Divisor"`
	} `xml:"Unit"`
}

// ParseXML reads a VoltageRecording sidecar file.
func ParseXML(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	meta, err := parseXMLData(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

func parseXMLData(data []byte) (*Metadata, error) {
	var session vrSession
	if err := xml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse VoltageRecording XML: %w", err)
	}

	meta := &Metadata{
		SampleRate: session.Experiment.Rate,
		Duration:   float64(session.Experiment.AcquisitionTime) / 1000,
	}

	for _, sig := range session.Experiment.Signals {
		if !sig.Enabled || sig.Type != "Physical" {
			continue
		}
		meta.Channels = append(meta.Channels, strings.ToLower(sig.Name))

		if sig.Unit.PatchclampDevice == "" || sig.Unit.PatchclampChannel == nil {
			continue
		}
		scale := &ChannelScale{Unit: sig.Unit.UnitName, Divisor: sig.Unit.Divisor}
		switch *sig.Unit.PatchclampChannel {
		case patchclampPrimary:
			meta.Primary = scale
		case patchclampSecondary:
			meta.Secondary = scale
		}
	}

	// A DataFile naming a LineScan with no separate profile file means the
	// sidecar belongs to the linescan itself and there is no voltage table.
	if session.LinescanFile == "" {
		if strings.Contains(session.DataFile, "LineScan") {
			meta.LinescanFile = session.DataFile
		} else {
			meta.VoltageFile = session.DataFile
		}
	} else {
		meta.VoltageFile = session.DataFile
		meta.LinescanFile = session.LinescanFile
	}

	return meta, nil
}
