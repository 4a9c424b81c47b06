package prairieview

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/pkg/contracts/domain"
)

const voltageSidecar = `<?xml version="1.0" encoding="utf-8"?>
<VRecSessionEntry>
  <Experiment>
    <Rate>10000</Rate>
    <AcquisitionTime>2000</AcquisitionTime>
    <SignalList>
      <VRecSignal>
        <Enabled>true</Enabled>
        <Name>Primary</Name>
        <Type>Physical</Type>
        <Unit>
          <PatchclampDevice>MultiClamp 700B</PatchclampDevice>
          <PatchclampChannel>0</PatchclampChannel>
          <UnitName>mV</UnitName>
          <Divisor>10</Divisor>
        </Unit>
      </VRecSignal>
      <VRecSignal>
        <Enabled>true</Enabled>
        <Name>Secondary</Name>
        <Type>Physical</Type>
        <Unit>
          <PatchclampDevice>MultiClamp 700B</PatchclampDevice>
          <PatchclampChannel>1</PatchclampChannel>
          <UnitName>pA</UnitName>
          <Divisor>2</Divisor>
        </Unit>
      </VRecSignal>
      <VRecSignal>
        <Enabled>false</Enabled>
        <Name>Unused</Name>
        <Type>Physical</Type>
      </VRecSignal>
      <VRecSignal>
        <Enabled>true</Enabled>
        <Name>Virtual</Name>
        <Type>Virtual</Type>
      </VRecSignal>
    </SignalList>
  </Experiment>
  <DataFile>sweep_VoltageRecording_001</DataFile>
  <AssociatedLinescanProfileFile></AssociatedLinescanProfileFile>
</VRecSessionEntry>`

const linescanSidecar = `<?xml version="1.0" encoding="utf-8"?>
<VRecSessionEntry>
  <Experiment>
    <Rate>1000</Rate>
    <AcquisitionTime>500</AcquisitionTime>
    <SignalList></SignalList>
  </Experiment>
  <DataFile>LineScan-02262016-001_Profile</DataFile>
  <AssociatedLinescanProfileFile></AssociatedLinescanProfileFile>
</VRecSessionEntry>`

func TestParseXMLVoltageRecording(t *testing.T) {
	meta, err := parseXMLData([]byte(voltageSidecar))
	require.NoError(t, err)

	assert.Equal(t, []string{"primary", "secondary"}, meta.Channels,
		"disabled and virtual signals must be skipped")
	assert.Equal(t, 10000, meta.SampleRate)
	assert.InDelta(t, 2.0, meta.Duration, 1e-12)

	require.NotNil(t, meta.Primary)
	assert.Equal(t, "mV", meta.Primary.Unit)
	assert.InDelta(t, 10.0, meta.Primary.Divisor, 1e-12)

	require.NotNil(t, meta.Secondary)
	assert.InDelta(t, 2.0, meta.Secondary.Divisor, 1e-12)

	assert.Equal(t, "sweep_VoltageRecording_001", meta.VoltageFile)
	assert.Empty(t, meta.LinescanFile)
}

func TestParseXMLLinescanOnly(t *testing.T) {
	meta, err := parseXMLData([]byte(linescanSidecar))
	require.NoError(t, err)

	assert.Empty(t, meta.VoltageFile, "a LineScan data file is not a voltage table")
	assert.Equal(t, "LineScan-02262016-001_Profile", meta.LinescanFile)
}

func TestParseXMLMalformed(t *testing.T) {
	_, err := parseXMLData([]byte("<VRecSessionEntry><Experiment>"))
	assert.Error(t, err)
}

func TestImportVoltageCSV(t *testing.T) {
	meta, err := parseXMLData([]byte(voltageSidecar))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vr.csv")
	csv := "Time(ms), Input 0, Input 1\n0, -620, 10\n0.1, -625, 12\n0.2, -630, 14\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	sweep, err := ImportVoltageCSV(path, meta)
	require.NoError(t, err)
	require.Equal(t, 3, sweep.Len())

	// ms → s
	assert.InDelta(t, 0.0001, sweep.Time[1], 1e-12)

	// primary divided by 10, secondary by 2
	primary := sweep.Primary()
	require.NotNil(t, primary)
	assert.InDelta(t, -62.0, primary.Samples[0], 1e-12)
	assert.Equal(t, "mV", primary.Units)

	secondary := sweep.Channel(domain.ChannelSecondary)
	require.NotNil(t, secondary)
	assert.InDelta(t, 5.0, secondary.Samples[0], 1e-12)
}

func TestImportVoltageCSVBadRow(t *testing.T) {
	meta, err := parseXMLData([]byte(voltageSidecar))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vr.csv")
	require.NoError(t, os.WriteFile(path, []byte("Time, P, S\n0, oops, 1\n"), 0644))

	_, err = ImportVoltageCSV(path, meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad primary value")
}

func TestImportLinescanCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ls.csv")
	csv := "Prof 1 Time(ms), Prof 1, Prof 2 Time(ms), Prof 2\n" +
		"0, 100, 0.5, 200\n" +
		"1, 110, 1.5, 210\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	ls, err := ImportLinescanCSV(path)
	require.NoError(t, err)
	require.Len(t, ls.Profiles, 2)

	p1, err := ls.Profile(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.001, p1.Time[1], 1e-12)
	assert.InDelta(t, 110, p1.Fluorescence[1], 1e-12)

	p2, err := ls.Profile(2)
	require.NoError(t, err)
	assert.InDelta(t, 0.0005, p2.Time[0], 1e-12)
}

func TestImportFolder(t *testing.T) {
	dir := t.TempDir()

	writeAcq := func(n string, voltage string) {
		sidecar := filepath.Join(dir, "cell_VoltageRecording_"+n+".xml")
		require.NoError(t, os.WriteFile(sidecar, []byte(voltageSidecar), 0644))
		// every sidecar in this test names the same data file pattern
		data := filepath.Join(dir, "sweep_VoltageRecording_001.csv")
		require.NoError(t, os.WriteFile(data, []byte(voltage), 0644))
	}
	writeAcq("001", "Time, P, S\n0, -620, 10\n0.1, -625, 12\n")

	out, err := ImportFolder(context.Background(), dir, 4)
	require.NoError(t, err)

	require.NotNil(t, out.VoltageRecording)
	assert.Equal(t, 1, out.VoltageRecording.NumSweeps())
	assert.Equal(t, float64(10000), out.VoltageRecording.SampleRate)
	require.Len(t, out.Files, 1)
	assert.Empty(t, out.Linescans)
}

func TestImportFolderEmpty(t *testing.T) {
	out, err := ImportFolder(context.Background(), t.TempDir(), 4)
	require.NoError(t, err)
	assert.Nil(t, out.VoltageRecording)
	assert.Empty(t, out.Files)
}
