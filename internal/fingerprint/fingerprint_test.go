package fingerprint

import (
	"math"
	"testing"

	"soundscout/internal/media"
)

func toneMix(t *testing.T, seconds float64, sampleRate int, freqs ...float64) *media.Audio {
	t.Helper()

	count := int(seconds * float64(sampleRate))
	samples := make([]float64, count)
	for i := range samples {
		var value float64
		for _, freq := range freqs {
			value += math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		}
		samples[i] = value / float64(len(freqs))
	}
	return &media.Audio{Samples: samples, SampleRate: sampleRate}
}

func TestComputeIsDeterministic(t *testing.T) {
	audio := toneMix(t, 3, 11025, 440, 1200, 3000)

	first, err := Compute(audio)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := Compute(audio)
	if err != nil {
		t.Fatalf("compute again: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("no hashes produced")
	}
	if len(first) != len(second) {
		t.Fatalf("hash counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("hash %d differs: %x vs %x", i, first[i], second[i])
		}
	}
}

func TestComputeDistinguishesSignals(t *testing.T) {
	a, err := Compute(toneMix(t, 3, 11025, 440, 1200))
	if err != nil {
		t.Fatalf("compute a: %v", err)
	}
	b, err := Compute(toneMix(t, 3, 11025, 880, 2400))
	if err != nil {
		t.Fatalf("compute b: %v", err)
	}

	setA := make(map[uint32]struct{}, len(a))
	for _, hash := range a {
		setA[hash] = struct{}{}
	}
	overlap := 0
	for _, hash := range b {
		if _, ok := setA[hash]; ok {
			overlap++
		}
	}
	if overlap == len(b) {
		t.Fatal("distinct signals produced identical hash sets")
	}
}

func TestComputeRejectsShortAudio(t *testing.T) {
	audio := &media.Audio{Samples: make([]float64, windowSize/2), SampleRate: 11025}
	if _, err := Compute(audio); err == nil {
		t.Fatal("expected error for short audio")
	}
	if _, err := Compute(nil); err == nil {
		t.Fatal("expected error for nil audio")
	}
}

func TestPairAddressBounds(t *testing.T) {
	anchor := peak{binIdx: 100, timeSec: 1.0}

	if _, ok := pairAddress(anchor, peak{binIdx: 100, timeSec: 1.001}); ok {
		t.Fatal("accepted delta below minimum")
	}
	if _, ok := pairAddress(anchor, peak{binIdx: 100, timeSec: 20.0}); ok {
		t.Fatal("accepted delta above maximum")
	}
	if _, ok := pairAddress(peak{binIdx: 1 << freqBits, timeSec: 1.0}, peak{binIdx: 10, timeSec: 1.5}); ok {
		t.Fatal("accepted frequency bin outside packed width")
	}

	address, ok := pairAddress(anchor, peak{binIdx: 200, timeSec: 1.5})
	if !ok {
		t.Fatal("rejected valid pair")
	}
	gotAnchor := address >> (deltaBits + freqBits)
	gotTarget := (address >> deltaBits) & (1<<freqBits - 1)
	gotDelta := address & (1<<deltaBits - 1)
	if gotAnchor != 100 || gotTarget != 200 || gotDelta != 500 {
		t.Fatalf("unpacked %d/%d/%d", gotAnchor, gotTarget, gotDelta)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hashes := []uint32{0, 1, 0xdeadbeef, math.MaxUint32}
	decoded, err := Decode(Encode(hashes))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(hashes) {
		t.Fatalf("length = %d", len(decoded))
	}
	for i := range hashes {
		if decoded[i] != hashes[i] {
			t.Fatalf("hash %d = %x, want %x", i, decoded[i], hashes[i])
		}
	}

	if _, err := Decode("!!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}
