package media

import "time"

// Audio is decoded mono PCM audio normalized to the range [-1, 1].
type Audio struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the playback length of the decoded audio.
func (a *Audio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(a.Samples)) / float64(a.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Descriptor summarizes a normalized artifact for storage and reporting.
type Descriptor struct {
	Codec           string  `json:"codec"`
	SampleRate      int     `json:"sample_rate"`
	Channels        int     `json:"channels"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
}

// Describe builds a Descriptor for encoded WAV bytes and their decoded form.
func Describe(audio *Audio, sizeBytes int64) Descriptor {
	return Descriptor{
		Codec:           "pcm_s16le",
		SampleRate:      audio.SampleRate,
		Channels:        1,
		DurationSeconds: audio.Duration().Seconds(),
		SizeBytes:       sizeBytes,
	}
}
