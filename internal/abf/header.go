package abf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Operation modes as recorded in the header. Only the acquisition-related
// distinction matters here: episodic stimulation produces sweeps, everything
// else is treated as one continuous record.
const (
	modeVariableLength = 1
	modeFixedLength    = 2
	modeGapFree        = 3
	modeHighSpeedOsc   = 4
	modeEpisodic       = 5
)

// Data formats in the data section.
const (
	formatInt16   = 0
	formatFloat32 = 1
)

const blockSize = 512

// maxADCChannels is the channel table size in the v1 header.
const maxADCChannels = 16

// channelInfo holds everything needed to turn raw samples from one ADC
// channel into physical units.
type channelInfo struct {
	adcNum int
	name   string
	units  string
	scale  float64
	offset float64
}

// header is the version-independent view of an ABF header.
type header struct {
	version         int
	operationMode   int16
	dataFormat      int16
	sampleRate      float64 // Hz, per channel
	actualAcqLength int64   // total multiplexed sample count
	samplesPerSweep int64   // multiplexed samples per episode
	numEpisodes     int64
	dataOffset      int64 // byte offset of the data section
	channels        []channelInfo
}

func (h *header) numChannels() int {
	return len(h.channels)
}

var (
	sigABF1 = []byte("ABF ")
	sigCLPS = []byte("CLPS")
	sigABF2 = []byte("ABF2")
)

// parseHeader dispatches on the file signature.
func parseHeader(data []byte) (*header, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("file too short for ABF signature (%d bytes)", len(data))
	}
	sig := data[:4]
	switch {
	case bytes.Equal(sig, sigABF1), bytes.Equal(sig, sigCLPS):
		return parseHeaderV1(data)
	case bytes.Equal(sig, sigABF2):
		return parseHeaderV2(data)
	default:
		return nil, fmt.Errorf("not an ABF file: signature %q", string(sig))
	}
}

// Fixed byte offsets of the v1 (ABF 1.8) header fields used here.
const (
	v1OperationMode     = 8   // int16
	v1ActualAcqLength   = 10  // int32
	v1ActualEpisodes    = 16  // int32
	v1DataSectionPtr    = 40  // int32, 512-byte blocks
	v1DataFormat        = 100 // int16
	v1ADCNumChannels    = 120 // int16
	v1ADCSampleInterval = 122 // float32, µs per multiplexed sample
	v1SamplesPerEpisode = 138 // int32
	v1ADCRange          = 244 // float32
	v1ADCResolution     = 252 // int32
	v1ADCSamplingSeq    = 410 // [16]int16
	v1ADCChannelName    = 442 // [16][10]byte
	v1ADCUnits          = 602 // [16][8]byte
	v1ProgrammableGain  = 730 // [16]float32
	v1InstrumentScale   = 922 // [16]float32
	v1InstrumentOffset  = 986 // [16]float32
	v1SignalGain        = 1050
	v1SignalOffset      = 1114
	v1TelegraphEnable   = 4512 // [16]int16
	v1TelegraphAddit    = 4576 // [16]float32
	v1HeaderSize        = 6144
)

func parseHeaderV1(data []byte) (*header, error) {
	if len(data) < v1HeaderSize {
		return nil, fmt.Errorf("truncated ABF1 header: %d bytes", len(data))
	}

	h := &header{
		version:         1,
		operationMode:   readInt16(data, v1OperationMode),
		dataFormat:      readInt16(data, v1DataFormat),
		actualAcqLength: int64(readInt32(data, v1ActualAcqLength)),
		numEpisodes:     int64(readInt32(data, v1ActualEpisodes)),
		samplesPerSweep: int64(readInt32(data, v1SamplesPerEpisode)),
		dataOffset:      int64(readInt32(data, v1DataSectionPtr)) * blockSize,
	}

	numChannels := int(readInt16(data, v1ADCNumChannels))
	if numChannels < 1 || numChannels > maxADCChannels {
		return nil, fmt.Errorf("implausible ADC channel count %d", numChannels)
	}

	// The sample interval is per multiplexed sample, so the per-channel
	// period scales with the channel count.
	interval := float64(readFloat32(data, v1ADCSampleInterval))
	if interval <= 0 {
		return nil, fmt.Errorf("invalid ADC sample interval %v µs", interval)
	}
	h.sampleRate = 1e6 / (interval * float64(numChannels))

	adcRange := float64(readFloat32(data, v1ADCRange))
	adcResolution := float64(readInt32(data, v1ADCResolution))
	if adcResolution == 0 {
		adcResolution = 1 << 15
	}

	for i := 0; i < numChannels; i++ {
		// Sampling sequence maps acquisition order to physical ADC number.
		adcNum := int(readInt16(data, v1ADCSamplingSeq+2*i))
		if adcNum < 0 || adcNum >= maxADCChannels {
			adcNum = i
		}

		scale := adcRange / adcResolution
		scale /= nonZero(float64(readFloat32(data, v1InstrumentScale+4*adcNum)))
		scale /= nonZero(float64(readFloat32(data, v1SignalGain+4*adcNum)))
		scale /= nonZero(float64(readFloat32(data, v1ProgrammableGain+4*adcNum)))
		if readInt16(data, v1TelegraphEnable+2*adcNum) != 0 {
			scale /= nonZero(float64(readFloat32(data, v1TelegraphAddit+4*adcNum)))
		}
		offset := float64(readFloat32(data, v1InstrumentOffset+4*adcNum)) -
			float64(readFloat32(data, v1SignalOffset+4*adcNum))

		h.channels = append(h.channels, channelInfo{
			adcNum: adcNum,
			name:   cString(data[v1ADCChannelName+10*adcNum : v1ADCChannelName+10*adcNum+10]),
			units:  cString(data[v1ADCUnits+8*adcNum : v1ADCUnits+8*adcNum+8]),
			scale:  scale,
			offset: offset,
		})
	}

	return h, nil
}

// section is one entry of the ABF2 section map.
type section struct {
	blockIndex uint32
	byteCount  uint32
	numEntries int64
}

func (s section) start() int64 {
	return int64(s.blockIndex) * blockSize
}

// Section map entry offsets (each entry is 16 bytes starting at byte 76).
const (
	v2SectionMapStart = 76
	v2SectionProtocol = 0
	v2SectionADC      = 1
	v2SectionStrings  = 9
	v2SectionData     = 10
)

// Protocol section field offsets.
const (
	protoOperationMode     = 0   // int16
	protoADCSeqInterval    = 2   // float32, µs
	protoSamplesPerEpisode = 22  // int32
	protoADCRange          = 110 // float32
	protoADCResolution     = 118 // int32
)

// ADC section per-entry field offsets.
const (
	adcNum              = 0  // int16
	adcTelegraphEnable  = 2  // int16
	adcTelegraphAddit   = 6  // float32
	adcProgrammableGain = 28 // float32
	adcInstrumentScale  = 40 // float32
	adcInstrumentOffset = 44 // float32
	adcSignalGain       = 48 // float32
	adcSignalOffset     = 52 // float32
	adcChannelNameIndex = 74 // int32
	adcUnitsIndex       = 78 // int32
	adcEntrySize        = 82 // minimum bytes we need per entry
)

func parseHeaderV2(data []byte) (*header, error) {
	readSection := func(i int) (section, error) {
		off := v2SectionMapStart + 16*i
		if off+16 > len(data) {
			return section{}, fmt.Errorf("truncated ABF2 section map")
		}
		return section{
			blockIndex: binary.LittleEndian.Uint32(data[off:]),
			byteCount:  binary.LittleEndian.Uint32(data[off+4:]),
			numEntries: int64(binary.LittleEndian.Uint64(data[off+8:])),
		}, nil
	}

	protoSec, err := readSection(v2SectionProtocol)
	if err != nil {
		return nil, err
	}
	adcSec, err := readSection(v2SectionADC)
	if err != nil {
		return nil, err
	}
	stringsSec, err := readSection(v2SectionStrings)
	if err != nil {
		return nil, err
	}
	dataSec, err := readSection(v2SectionData)
	if err != nil {
		return nil, err
	}

	protoStart := protoSec.start()
	if protoStart+protoADCResolution+4 > int64(len(data)) {
		return nil, fmt.Errorf("truncated ABF2 protocol section")
	}
	proto := data[protoStart:]

	h := &header{
		version:         2,
		operationMode:   readInt16(proto, protoOperationMode),
		dataFormat:      readInt16(data, 30),
		numEpisodes:     int64(binary.LittleEndian.Uint32(data[12:])),
		samplesPerSweep: int64(readInt32(proto, protoSamplesPerEpisode)),
		actualAcqLength: dataSec.numEntries,
		dataOffset:      dataSec.start(),
	}

	interval := float64(readFloat32(proto, protoADCSeqInterval))
	if interval <= 0 {
		return nil, fmt.Errorf("invalid ADC sequence interval %v µs", interval)
	}
	h.sampleRate = 1e6 / interval

	adcRange := float64(readFloat32(proto, protoADCRange))
	adcResolution := float64(readInt32(proto, protoADCResolution))
	if adcResolution == 0 {
		adcResolution = 1 << 15
	}

	indexed := indexedStrings(data, stringsSec)

	numChannels := int(adcSec.numEntries)
	if numChannels < 1 || numChannels > 64 {
		return nil, fmt.Errorf("implausible ADC channel count %d", numChannels)
	}
	entrySize := int64(adcSec.byteCount)
	if entrySize < adcEntrySize {
		return nil, fmt.Errorf("ADC section entries too small (%d bytes)", entrySize)
	}

	for i := 0; i < numChannels; i++ {
		start := adcSec.start() + int64(i)*entrySize
		if start+entrySize > int64(len(data)) {
			return nil, fmt.Errorf("truncated ABF2 ADC section")
		}
		entry := data[start:]

		scale := adcRange / adcResolution
		scale /= nonZero(float64(readFloat32(entry, adcInstrumentScale)))
		scale /= nonZero(float64(readFloat32(entry, adcSignalGain)))
		scale /= nonZero(float64(readFloat32(entry, adcProgrammableGain)))
		if readInt16(entry, adcTelegraphEnable) != 0 {
			scale /= nonZero(float64(readFloat32(entry, adcTelegraphAddit)))
		}
		offset := float64(readFloat32(entry, adcInstrumentOffset)) -
			float64(readFloat32(entry, adcSignalOffset))

		h.channels = append(h.channels, channelInfo{
			adcNum: int(readInt16(entry, adcNum)),
			name:   stringAt(indexed, int(readInt32(entry, adcChannelNameIndex))),
			units:  stringAt(indexed, int(readInt32(entry, adcUnitsIndex))),
			scale:  scale,
			offset: offset,
		})
	}

	return h, nil
}

// indexedStrings extracts the NUL-separated string table from the strings
// section. The table is prefixed with acquisition-software banter; the real
// entries start at the block that names the creator program.
func indexedStrings(data []byte, sec section) []string {
	start := sec.start()
	end := start + int64(sec.byteCount)*sec.numEntries
	if sec.blockIndex == 0 || start >= int64(len(data)) {
		return nil
	}
	if end > int64(len(data)) {
		end = int64(len(data))
	}

	parts := strings.Split(string(data[start:end]), "\x00")
	for i, p := range parts {
		for _, keyword := range []string{"clampex", "Clampex", "CLAMPEX", "axoscope", "AxoScope", "Clampfit", "AXENGN"} {
			if strings.Contains(p, keyword) {
				return parts[i:]
			}
		}
	}
	return parts
}

func stringAt(table []string, idx int) string {
	if idx < 0 || idx >= len(table) {
		return ""
	}
	return strings.TrimSpace(table[idx])
}

func readInt16(b []byte, off int) int16 {
	return int16(binary.LittleEndian.Uint16(b[off:]))
}

func readInt32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off:]))
}

func readFloat32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// nonZero guards the gain divisors: a zeroed header field means "unity", not
// "divide by zero".
func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
