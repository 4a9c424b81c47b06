package oscillation

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"neurphys/pkg/contracts/domain"
)

// Periodogram is the one-sided power spectral density of one epoch.
type Periodogram struct {
	Sweep       string
	Epoch       string
	Frequencies []float64 // Hz
	Power       []float64 // units²/Hz
}

// EpochPeriodogram estimates the power spectral density of every epoch of
// the named channel with a boxcar-windowed periodogram, density-scaled. Each
// epoch has its mean removed first, so a standing offset does not swamp the
// DC bin. The sampling rate is taken from the recording.
func EpochPeriodogram(rec *domain.Recording, channel string, window, step int) ([]Periodogram, error) {
	if rec.SampleRate <= 0 {
		return nil, fmt.Errorf("recording has no sampling rate")
	}

	epochs, err := Epochs(rec, channel, window, step)
	if err != nil {
		return nil, err
	}

	fft := fourier.NewFFT(window)
	freqs := make([]float64, window/2+1)
	for k := range freqs {
		freqs[k] = float64(k) * rec.SampleRate / float64(window)
	}

	out := make([]Periodogram, 0, len(epochs))
	detrended := make([]float64, window)
	for _, epoch := range epochs {
		mean := stat.Mean(epoch.Samples, nil)
		for i, s := range epoch.Samples {
			detrended[i] = s - mean
		}
		coeffs := fft.Coefficients(nil, detrended)
		out = append(out, Periodogram{
			Sweep:       epoch.Sweep,
			Epoch:       epoch.Name,
			Frequencies: freqs,
			Power:       onesidedPSD(coeffs, window, rec.SampleRate, float64(window)),
		})
	}
	return out, nil
}

// SweepSpectrogram is one sweep's spectrogram: power indexed [frequency][segment].
type SweepSpectrogram struct {
	Sweep       string
	Frequencies []float64 // Hz, trimmed to the requested band
	Times       []float64 // seconds, left-aligned to the sweep start
	Power       [][]float64
}

// Spectrogram computes a Hann-windowed overlapping-segment spectrogram of
// the named channel for every sweep, keeping only frequencies within
// [fTrim[0], fTrim[1]]. Segment hop is step samples, so consecutive
// segments overlap by window-step. Each segment has its mean removed before
// windowing.
func Spectrogram(rec *domain.Recording, channel string, window, step int, fTrim [2]float64) ([]SweepSpectrogram, error) {
	if rec.SampleRate <= 0 {
		return nil, fmt.Errorf("recording has no sampling rate")
	}
	if fTrim[0] > fTrim[1] {
		return nil, fmt.Errorf("frequency trim [%v, %v] is empty", fTrim[0], fTrim[1])
	}

	fs := rec.SampleRate
	hann := make([]float64, window)
	var winSumSq float64
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(window-1)))
		winSumSq += hann[i] * hann[i]
	}

	fft := fourier.NewFFT(window)

	// Trimmed frequency band.
	allFreqs := make([]float64, window/2+1)
	lo, hi := -1, -1
	for k := range allFreqs {
		allFreqs[k] = float64(k) * fs / float64(window)
		if allFreqs[k] >= fTrim[0] && lo < 0 {
			lo = k
		}
		if allFreqs[k] <= fTrim[1] {
			hi = k
		}
	}
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("no frequency bins within [%v, %v] Hz", fTrim[0], fTrim[1])
	}

	var out []SweepSpectrogram
	for si, sweep := range rec.Sweeps {
		series := sweep.Channel(channel)
		if series == nil {
			return nil, fmt.Errorf("%s has no channel %q", domain.SweepName(si+1), channel)
		}
		numSegs, err := numEpochs(len(series.Samples), window, step)
		if err != nil {
			return nil, err
		}

		sg := SweepSpectrogram{
			Sweep:       domain.SweepName(si + 1),
			Frequencies: allFreqs[lo : hi+1],
			Times:       make([]float64, numSegs),
			Power:       make([][]float64, hi-lo+1),
		}
		for f := range sg.Power {
			sg.Power[f] = make([]float64, numSegs)
		}

		windowed := make([]float64, window)
		for seg := 0; seg < numSegs; seg++ {
			sg.Times[seg] = float64(seg*step) / fs
			segment := series.Samples[seg*step : seg*step+window]
			mean := stat.Mean(segment, nil)
			for i := range windowed {
				windowed[i] = (segment[i] - mean) * hann[i]
			}
			psd := onesidedPSD(fft.Coefficients(nil, windowed), window, fs, winSumSq)
			for f := lo; f <= hi; f++ {
				sg.Power[f-lo][seg] = psd[f]
			}
		}
		out = append(out, sg)
	}
	return out, nil
}

// onesidedPSD converts FFT coefficients to a one-sided density-scaled PSD.
// norm is the window normalization: N for a boxcar window, sum of squared
// window samples otherwise. Every bin except DC and Nyquist is doubled.
func onesidedPSD(coeffs []complex128, window int, fs, norm float64) []float64 {
	psd := make([]float64, window/2+1)
	for k := range psd {
		mag := cmplx.Abs(coeffs[k])
		psd[k] = mag * mag / (fs * norm)
		if k != 0 && !(window%2 == 0 && k == window/2) {
			psd[k] *= 2
		}
	}
	return psd
}
