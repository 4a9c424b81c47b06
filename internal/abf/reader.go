package abf

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"neurphys/pkg/contracts/domain"
)

// Read parses an ABF file into a Recording. Episodic acquisitions yield one
// sweep per episode; any other operation mode yields a single sweep covering
// the whole record.
func Read(path string) (*domain.Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ABF file: %w", err)
	}
	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rec.Source = path
	return rec, nil
}

// Decode parses an in-memory ABF file image.
func Decode(data []byte) (*domain.Recording, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	samples, err := readSamples(data, h)
	if err != nil {
		return nil, err
	}

	numChannels := h.numChannels()
	totalPerChannel := int64(len(samples)) / int64(numChannels)

	sweepLen := totalPerChannel
	numSweeps := int64(1)
	if h.operationMode == modeEpisodic && h.numEpisodes > 1 && h.samplesPerSweep > 0 {
		sweepLen = h.samplesPerSweep / int64(numChannels)
		numSweeps = totalPerChannel / sweepLen
		if numSweeps > h.numEpisodes {
			numSweeps = h.numEpisodes
		}
	}
	if sweepLen == 0 {
		return nil, fmt.Errorf("empty data section")
	}

	rec := &domain.Recording{SampleRate: h.sampleRate}
	dt := 1 / h.sampleRate

	for s := int64(0); s < numSweeps; s++ {
		sweep := &domain.Sweep{Time: make([]float64, sweepLen)}
		for i := range sweep.Time {
			sweep.Time[i] = float64(i) * dt
		}

		for c := 0; c < numChannels; c++ {
			ch := h.channels[c]
			series := domain.Series{
				Name:    domain.ChannelName(c),
				Units:   ch.units,
				Samples: make([]float64, sweepLen),
			}
			// Samples are interleaved channel by channel within each sweep.
			base := s * sweepLen * int64(numChannels)
			for i := int64(0); i < sweepLen; i++ {
				series.Samples[i] = samples[base+i*int64(numChannels)+int64(c)]
			}
			sweep.Channels = append(sweep.Channels, series)
		}
		rec.Sweeps = append(rec.Sweeps, sweep)
	}

	return rec, nil
}

// readSamples decodes the data section into physical units, still
// channel-interleaved.
func readSamples(data []byte, h *header) ([]float64, error) {
	var sampleSize int64
	switch h.dataFormat {
	case formatInt16:
		sampleSize = 2
	case formatFloat32:
		sampleSize = 4
	default:
		return nil, fmt.Errorf("unsupported data format %d", h.dataFormat)
	}

	count := h.actualAcqLength
	if count <= 0 {
		// Fall back to whatever fits between the data offset and EOF.
		count = (int64(len(data)) - h.dataOffset) / sampleSize
	}
	end := h.dataOffset + count*sampleSize
	if h.dataOffset <= 0 || end > int64(len(data)) {
		return nil, fmt.Errorf("truncated data section: need %d bytes, have %d", end, len(data))
	}

	raw := data[h.dataOffset:end]
	numChannels := int64(h.numChannels())
	// Drop any trailing partial frame.
	count -= count % numChannels

	samples := make([]float64, count)
	switch h.dataFormat {
	case formatInt16:
		for i := int64(0); i < count; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
			ch := h.channels[i%numChannels]
			samples[i] = float64(v)*ch.scale + ch.offset
		}
	case formatFloat32:
		for i := int64(0); i < count; i++ {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			samples[i] = float64(math.Float32frombits(bits))
		}
	}
	return samples, nil
}
