package fingerprint

import "math"

const (
	freqBits  = 9
	deltaBits = 14

	fanOut     = 6
	minDeltaMs = 10
	maxDeltaMs = 15000
)

// pairAddress packs an anchor/target peak pair into a 32-bit hash:
// [ anchorBin (9) | targetBin (9) | deltaMs (14) ]. Returns false when the
// pair is outside representable bounds.
func pairAddress(anchor, target peak) (uint32, bool) {
	deltaMs := uint32(math.Round((target.timeSec - anchor.timeSec) * 1000.0))
	if deltaMs < minDeltaMs || deltaMs > maxDeltaMs {
		return 0, false
	}

	freqMask := uint32(1<<freqBits - 1)
	deltaMask := uint32(1<<deltaBits - 1)

	anchorBin := uint32(anchor.binIdx)
	targetBin := uint32(target.binIdx)
	if anchorBin > freqMask || targetBin > freqMask || deltaMs > deltaMask {
		return 0, false
	}

	return anchorBin<<(deltaBits+freqBits) | targetBin<<deltaBits | deltaMs, true
}

// pairHashes generates fan-out pair hashes from time-ordered peaks. Each
// anchor pairs with up to fanOut later peaks inside the delta window.
func pairHashes(peaks []peak) []uint32 {
	var hashes []uint32
	for i := range peaks {
		paired := 0
		for j := i + 1; j < len(peaks) && paired < fanOut; j++ {
			address, ok := pairAddress(peaks[i], peaks[j])
			if !ok {
				continue
			}
			hashes = append(hashes, address)
			paired++
		}
	}
	return hashes
}
