package fingerprint

import (
	"math"
	"sort"
)

// peak is a spectral landmark: the strongest survivor of a frequency band
// after an adaptive threshold and a local-maximum check.
type peak struct {
	frameIdx int
	binIdx   int
	timeSec  float64
}

const (
	freqNeighbourhood = 3
	timeNeighbourhood = 1
	minDbAboveAvg     = 3.0
	logFloor          = 1e-10
)

// logBands builds roughly logarithmic frequency bands over nBins: a base band
// up to bin 10, then doubling spans.
func logBands(nBins int) [][2]int {
	bands := [][2]int{{0, min(10, nBins)}}
	for start := 10; start < nBins; start *= 2 {
		end := min(start*2, nBins)
		bands = append(bands, [2]int{start, end})
		if end == nBins {
			break
		}
	}
	return bands
}

// extractPeaks selects constellation points from a magnitude spectrogram.
// Per frame it takes each band's maximum, keeps those at least minDbAboveAvg
// above the frame's band-maxima average, and requires a 2D local maximum.
func extractPeaks(spectrogram [][]float64, sampleRate int) []peak {
	if len(spectrogram) == 0 || len(spectrogram[0]) == 0 {
		return nil
	}

	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	frameTime := float64(hopSize) / float64(sampleRate)
	bands := logBands(nBins)

	var peaks []peak
	for t := 0; t < nFrames; t++ {
		frame := spectrogram[t]

		bandMags := make([]float64, len(bands))
		bandBins := make([]int, len(bands))
		for bi, band := range bands {
			maxMag, maxBin := 0.0, band[0]
			for bin := band[0]; bin < band[1]; bin++ {
				if frame[bin] > maxMag {
					maxMag = frame[bin]
					maxBin = bin
				}
			}
			bandMags[bi] = maxMag
			bandBins[bi] = maxBin
		}

		var sumDb float64
		for _, mag := range bandMags {
			sumDb += 20.0 * math.Log10(mag+logFloor)
		}
		avgDb := sumDb / float64(len(bandMags))

		for bi, mag := range bandMags {
			if mag <= 0 {
				continue
			}
			if 20.0*math.Log10(mag+logFloor) < avgDb+minDbAboveAvg {
				continue
			}
			bin := bandBins[bi]
			if !isLocalMax(spectrogram, t, bin, mag) {
				continue
			}
			peaks = append(peaks, peak{
				frameIdx: t,
				binIdx:   bin,
				timeSec:  float64(t) * frameTime,
			})
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].frameIdx == peaks[j].frameIdx {
			return peaks[i].binIdx < peaks[j].binIdx
		}
		return peaks[i].frameIdx < peaks[j].frameIdx
	})
	return peaks
}

func isLocalMax(spectrogram [][]float64, t, bin int, mag float64) bool {
	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	for dt := -timeNeighbourhood; dt <= timeNeighbourhood; dt++ {
		tIdx := t + dt
		if tIdx < 0 || tIdx >= nFrames {
			continue
		}
		for df := -freqNeighbourhood; df <= freqNeighbourhood; df++ {
			fIdx := bin + df
			if fIdx < 0 || fIdx >= nBins || (dt == 0 && df == 0) {
				continue
			}
			if spectrogram[tIdx][fIdx] > mag {
				return false
			}
		}
	}
	return true
}
