package membrane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurphys/pkg/contracts/domain"
)

// transientSweep models the whole-cell current response to a voltage step
// through an RC circuit with access resistance ra, membrane resistance rm
// and capacitance cm (SI units). The primary channel is in pA.
func transientSweep(ra, rm, cm, vStep, rate float64) *domain.Sweep {
	const (
		bslDur   = 0.1
		pulseDur = 0.1
	)
	tau := cm * ra * rm / (ra + rm)
	iSS := vStep / (ra + rm)
	iPeak := vStep / ra

	n := int((bslDur + pulseDur) * rate)
	time := make([]float64, n)
	samples := make([]float64, n)
	for i := range samples {
		time[i] = float64(i) / rate
		if time[i] >= bslDur {
			t := time[i] - bslDur
			samples[i] = (iSS + (iPeak-iSS)*math.Exp(-t/tau)) * 1e12
		}
	}
	return &domain.Sweep{
		Time:     time,
		Channels: []domain.Series{{Name: domain.ChannelPrimary, Units: "pA", Samples: samples}},
	}
}

func TestCalcMemPropRecoversCircuit(t *testing.T) {
	const (
		ra = 10e6    // 10 MOhm
		rm = 100e6   // 100 MOhm
		cm = 100e-12 // 100 pF
	)
	s := transientSweep(ra, rm, cm, -10e-3, 50000)

	props, err := CalcMemProp(s, 0, 0.09, 0.1, 0.1, -10)
	require.NoError(t, err)

	assert.InEpsilon(t, 10.0, props.AccessResistance, 0.15)
	assert.InEpsilon(t, 100.0, props.MembraneResistance, 0.15)
	assert.InEpsilon(t, 100.0, props.Capacitance, 0.15)

	wantTau := cm * ra * rm / (ra + rm) * 1e3
	assert.InEpsilon(t, wantTau, props.TimeConstant, 0.15)
}

func TestCalcMemPropPositiveStep(t *testing.T) {
	s := transientSweep(15e6, 150e6, 80e-12, 10e-3, 50000)

	props, err := CalcMemProp(s, 0, 0.09, 0.1, 0.1, 10)
	require.NoError(t, err)

	assert.InEpsilon(t, 15.0, props.AccessResistance, 0.2)
	assert.InEpsilon(t, 150.0, props.MembraneResistance, 0.2)
}

func TestCalcMemPropValidation(t *testing.T) {
	s := transientSweep(10e6, 100e6, 100e-12, -10e-3, 50000)

	_, err := CalcMemProp(s, 0, 0.09, 0.1, 0.1, 0)
	assert.Error(t, err, "zero pulse amplitude")

	flat := &domain.Sweep{
		Time:     []float64{0, 0.001, 0.002, 0.003},
		Channels: []domain.Series{{Name: domain.ChannelPrimary, Samples: []float64{1, 1, 1, 1}}},
	}
	_, err = CalcMemProp(flat, 0, 0.001, 0.002, 0.001, -10)
	assert.Error(t, err, "no current change over the pulse")
}

func TestCalcMemPropLeavesSweepUntouched(t *testing.T) {
	s := transientSweep(10e6, 100e6, 100e-12, -10e-3, 50000)
	before := append([]float64(nil), s.Channels[0].Samples...)

	_, err := CalcMemProp(s, 0, 0.09, 0.1, 0.1, -10)
	require.NoError(t, err)
	assert.Equal(t, before, s.Channels[0].Samples)
}
