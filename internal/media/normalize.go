package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// FFmpegNormalizer converts downloaded audio into mono 16-bit PCM WAV at a
// fixed sample rate so hashing and fingerprinting see canonical bytes.
type FFmpegNormalizer struct {
	Binary     string
	SampleRate int
}

// NewFFmpegNormalizer returns a normalizer using the given ffmpeg binary name.
func NewFFmpegNormalizer(binary string, sampleRate int) *FFmpegNormalizer {
	if binary == "" {
		binary = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 11025
	}
	return &FFmpegNormalizer{Binary: binary, SampleRate: sampleRate}
}

// Normalize transcodes inputPath into a canonical WAV at outputPath. The
// output is written to a temp file first and renamed on success so a killed
// ffmpeg never leaves a partial artifact behind.
func (n *FFmpegNormalizer) Normalize(ctx context.Context, inputPath, outputPath string) error {
	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		n.Binary,
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(n.SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		tmpPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg normalize: %v (%s)", err, output)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return fmt.Errorf("finalize normalized audio: %w", err)
	}
	return nil
}
