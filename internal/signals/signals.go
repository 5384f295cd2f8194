// Package signals computes vibration features over the samples of one sensor.
package signals

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/thiago-r-goveia/bearing-vibration/internal/models"
)

// Resolution is the time between two consecutive samples, in seconds.
func Resolution(samplingFrequency float64) (float64, error) {
	if !(samplingFrequency > 0) || math.IsInf(samplingFrequency, 0) {
		return 0, fmt.Errorf("sampling frequency must be a positive number, got %v: %w", samplingFrequency, models.ErrInvalidInput)
	}
	return 1 / samplingFrequency, nil
}

func checkSamples(y []float64) error {
	if len(y) == 0 {
		return fmt.Errorf("signal has no samples: %w", models.ErrInvalidInput)
	}
	return nil
}

func RootMeanSquare(y []float64) (float64, error) {
	if err := checkSamples(y); err != nil {
		return 0, err
	}
	return floats.Norm(y, 2) / math.Sqrt(float64(len(y))), nil
}

// AbsolutePeak is the largest absolute sample value.
func AbsolutePeak(y []float64) (float64, error) {
	if err := checkSamples(y); err != nil {
		return 0, err
	}
	return floats.Norm(y, math.Inf(1)), nil
}

// AverageRectifiedValue is the mean of the absolute sample values.
func AverageRectifiedValue(y []float64) (float64, error) {
	if err := checkSamples(y); err != nil {
		return 0, err
	}
	return floats.Norm(y, 1) / float64(len(y)), nil
}

// CrestFactor is peak / rms.
func CrestFactor(y []float64) (float64, error) {
	peak, err := AbsolutePeak(y)
	if err != nil {
		return 0, err
	}
	rms, err := RootMeanSquare(y)
	if err != nil {
		return 0, err
	}
	if rms == 0 {
		return 0, fmt.Errorf("crest factor of an all-zero signal: %w", models.ErrInvalidInput)
	}
	return peak / rms, nil
}

// ShapeFactor is rms / average rectified value.
func ShapeFactor(y []float64) (float64, error) {
	rms, err := RootMeanSquare(y)
	if err != nil {
		return 0, err
	}
	arv, err := AverageRectifiedValue(y)
	if err != nil {
		return 0, err
	}
	if arv == 0 {
		return 0, fmt.Errorf("shape factor of an all-zero signal: %w", models.ErrInvalidInput)
	}
	return rms / arv, nil
}

// PowerSpectralDensity returns the one-sided periodogram of y. freqs[k] is in Hz
// and psd[k] in units²/Hz, for k = 0..len(y)/2.
func PowerSpectralDensity(y []float64, samplingFrequency float64) (freqs, psd []float64, err error) {
	if err := checkSamples(y); err != nil {
		return nil, nil, err
	}
	if _, err := Resolution(samplingFrequency); err != nil {
		return nil, nil, err
	}

	n := len(y)
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, y)

	freqs = make([]float64, len(coeffs))
	psd = make([]float64, len(coeffs))
	scale := 1 / (samplingFrequency * float64(n))
	for k, c := range coeffs {
		freqs[k] = fft.Freq(k) * samplingFrequency
		power := cmplx.Abs(c)
		power *= power * scale
		// DC and, for even n, Nyquist appear once in the full spectrum.
		if k != 0 && !(n%2 == 0 && k == n/2) {
			power *= 2
		}
		psd[k] = power
	}

	return freqs, psd, nil
}

// DominantFrequency is the frequency carrying the most power, ignoring DC.
func DominantFrequency(y []float64, samplingFrequency float64) (float64, error) {
	freqs, psd, err := PowerSpectralDensity(y, samplingFrequency)
	if err != nil {
		return 0, err
	}
	if len(psd) < 2 {
		return 0, nil
	}
	return freqs[floats.MaxIdx(psd[1:])+1], nil
}

type Summary struct {
	Samples           int
	Mean              float64
	StdDev            float64
	RMS               float64
	Peak              float64
	CrestFactor       float64
	ShapeFactor       float64
	ARV               float64
	DominantFrequency float64
}

func Summarize(y []float64, samplingFrequency float64) (Summary, error) {
	rms, err := RootMeanSquare(y)
	if err != nil {
		return Summary{}, err
	}
	peak, _ := AbsolutePeak(y)
	arv, _ := AverageRectifiedValue(y)

	crest, err := CrestFactor(y)
	if err != nil {
		return Summary{}, err
	}
	shape, err := ShapeFactor(y)
	if err != nil {
		return Summary{}, err
	}
	dominant, err := DominantFrequency(y, samplingFrequency)
	if err != nil {
		return Summary{}, err
	}

	mean, std := stat.MeanStdDev(y, nil)
	return Summary{
		Samples:           len(y),
		Mean:              mean,
		StdDev:            std,
		RMS:               rms,
		Peak:              peak,
		CrestFactor:       crest,
		ShapeFactor:       shape,
		ARV:               arv,
		DominantFrequency: dominant,
	}, nil
}

// ExtractFeatures summarizes every sensor column of a filtered table. The
// elapsed-time column is not a sensor and is skipped.
func ExtractFeatures(table models.Table, samplingFrequency float64) ([]models.SensorFeatures, error) {
	features := make([]models.SensorFeatures, 0, table.NumColumns())
	for _, col := range table.Columns {
		if col.Name == models.TimeColumn {
			continue
		}
		summary, err := Summarize(col.Values, samplingFrequency)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", col.Name, err)
		}
		features = append(features, models.SensorFeatures{
			Sensor:            col.Name,
			Samples:           summary.Samples,
			RMS:               summary.RMS,
			Peak:              summary.Peak,
			CrestFactor:       summary.CrestFactor,
			ShapeFactor:       summary.ShapeFactor,
			ARV:               summary.ARV,
			DominantFrequency: summary.DominantFrequency,
		})
	}
	return features, nil
}
