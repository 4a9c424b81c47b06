package calcium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/pkg/contracts/domain"
)

func testLinescan(fluor []float64) *domain.Linescan {
	time := make([]float64, len(fluor))
	for i := range time {
		time[i] = float64(i) * 0.01
	}
	return &domain.Linescan{
		Source:   "linescan.csv",
		Profiles: []domain.Profile{{Number: 1, Time: time, Fluorescence: fluor}},
	}
}

func TestConcentrationBaselineLevel(t *testing.T) {
	// Flat fluorescence: every sample equals F0.
	ls := testLinescan([]float64{150, 150, 150, 150, 150, 150})
	dye := DyeProperties{Background: 50, Kd: 380, Rf: 10, RfReal: 8}

	conc, err := Concentration(ls, 1, 0, 0.02, dye)
	require.NoError(t, err)
	require.Len(t, conc, 6)

	// F = F0, Fmax = F0*10/8, so F/Fmax = 0.8 everywhere:
	// 380*(1-0.8)/(0.8-0.1) = 108.571...
	for _, c := range conc {
		assert.InDelta(t, 380*0.2/0.7, c, 1e-9)
	}
}

func TestConcentrationTracksFluorescence(t *testing.T) {
	ls := testLinescan([]float64{150, 150, 150, 160, 170, 160})
	dye := DyeProperties{Background: 50, Kd: 380, Rf: 10, RfReal: 8}

	conc, err := Concentration(ls, 1, 0, 0.02, dye)
	require.NoError(t, err)

	// The estimate is monotonic in fluorescence, so the transient shows
	// up sample for sample.
	assert.NotEqual(t, conc[0], conc[3])
	assert.NotEqual(t, conc[3], conc[4])
	assert.Equal(t, conc[3], conc[5])
}

func TestConcentrationMissingProfile(t *testing.T) {
	ls := testLinescan([]float64{150, 150})
	dye := DyeProperties{Kd: 380, Rf: 10, RfReal: 8}

	_, err := Concentration(ls, 3, 0, 0.01, dye)
	assert.Error(t, err)
}

func TestConcentrationValidation(t *testing.T) {
	ls := testLinescan([]float64{150, 150, 150})

	_, err := Concentration(ls, 1, 0, 0.02, DyeProperties{Kd: 0, Rf: 10, RfReal: 8})
	assert.Error(t, err, "zero Kd")

	_, err = Concentration(ls, 1, 0, 0.02, DyeProperties{Kd: 380, Rf: 0, RfReal: 8})
	assert.Error(t, err, "zero rf")

	_, err = Concentration(ls, 1, 5, 6, DyeProperties{Kd: 380, Rf: 10, RfReal: 8})
	assert.Error(t, err, "empty F0 window")
}
