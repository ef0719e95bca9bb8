// Package fingerprint derives compact acoustic fingerprints from normalized
// mono PCM audio using a constellation of spectral peak pairs.
package fingerprint

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"soundscout/internal/media"
)

// ErrTooShort marks audio with too little signal to fingerprint.
var ErrTooShort = errors.New("audio too short to fingerprint")

// Compute derives pair hashes from decoded audio. The result is deterministic
// for identical input.
func Compute(audio *media.Audio) ([]uint32, error) {
	if audio == nil || len(audio.Samples) < windowSize {
		return nil, ErrTooShort
	}

	spectrogram, err := stft(audio.Samples)
	if err != nil {
		return nil, fmt.Errorf("compute spectrogram: %w", err)
	}

	peaks := extractPeaks(spectrogram, audio.SampleRate)
	hashes := pairHashes(peaks)
	if len(hashes) == 0 {
		return nil, ErrTooShort
	}
	return hashes, nil
}

// Encode serializes pair hashes into the URL-safe wire form sent to the
// recognition service.
func Encode(hashes []uint32) string {
	raw := make([]byte, len(hashes)*4)
	for i, hash := range hashes {
		binary.BigEndian.PutUint32(raw[i*4:], hash)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode reverses Encode.
func Decode(encoded string) ([]uint32, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode fingerprint: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, errors.New("decode fingerprint: truncated payload")
	}
	hashes := make([]uint32, len(raw)/4)
	for i := range hashes {
		hashes[i] = binary.BigEndian.Uint32(raw[i*4:])
	}
	return hashes, nil
}
