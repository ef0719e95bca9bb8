package fingerprint

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	windowSize = 1024
	hopSize    = 256
)

func hammingWindow(n int) []float64 {
	window := make([]float64, n)
	for i := range window {
		window[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return window
}

// stft computes a time-major magnitude spectrogram over Hamming-windowed
// frames: spectrogram[frame][bin], positive frequencies only.
func stft(samples []float64) ([][]float64, error) {
	if len(samples) < windowSize {
		return nil, errors.New("audio shorter than analysis window")
	}

	window := hammingWindow(windowSize)
	frame := make([]float64, windowSize)

	var spectrogram [][]float64
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		for i := 0; i < windowSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}
		spectrum := fft.FFTReal(frame)

		magnitudes := make([]float64, windowSize/2)
		for i := range magnitudes {
			magnitudes[i] = cmplx.Abs(spectrum[i])
		}
		spectrogram = append(spectrogram, magnitudes)
	}
	return spectrogram, nil
}
