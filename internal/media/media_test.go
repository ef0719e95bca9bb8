package media

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestParseSourceClassifiesHosts(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    SourceKind
		wantErr bool
	}{
		{name: "direct http", raw: "http://cdn.example.com/clip.mp3", kind: SourceDirect},
		{name: "direct https", raw: "https://cdn.example.com/clip.ogg", kind: SourceDirect},
		{name: "youtube watch", raw: "https://www.youtube.com/watch?v=abc123", kind: SourceResolved},
		{name: "youtube short link", raw: "https://youtu.be/abc123", kind: SourceResolved},
		{name: "youtube music", raw: "https://music.youtube.com/watch?v=abc123", kind: SourceResolved},
		{name: "ftp scheme", raw: "ftp://example.com/clip.mp3", wantErr: true},
		{name: "file scheme", raw: "file:///etc/passwd", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "no host", raw: "https:///clip.mp3", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source, err := ParseSource(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tc.raw, err)
			}
			if source.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s", source.Kind, tc.kind)
			}
		})
	}
}

func TestWavRoundTrip(t *testing.T) {
	const sampleRate = 11025
	samples := make([]float64, sampleRate) // one second of 440 Hz
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
	}

	encoded := EncodeWAV(samples, sampleRate)
	audio, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if audio.SampleRate != sampleRate {
		t.Fatalf("sample rate = %d", audio.SampleRate)
	}
	if len(audio.Samples) != len(samples) {
		t.Fatalf("sample count = %d, want %d", len(audio.Samples), len(samples))
	}
	for i := 0; i < len(samples); i += 1000 {
		if diff := math.Abs(audio.Samples[i] - samples[i]); diff > 0.001 {
			t.Fatalf("sample %d drifted by %f", i, diff)
		}
	}

	seconds := audio.Duration().Seconds()
	if math.Abs(seconds-1.0) > 0.01 {
		t.Fatalf("duration = %fs, want ~1s", seconds)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("not a wav file at all")); err == nil {
		t.Fatal("expected error for non-RIFF input")
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	encoded := encodeStereoWAV(t, [][2]int16{{16384, -16384}, {8192, 8192}}, 8000)
	audio, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(audio.Samples) != 2 {
		t.Fatalf("sample count = %d", len(audio.Samples))
	}
	if math.Abs(audio.Samples[0]) > 0.001 {
		t.Fatalf("opposed channels should cancel, got %f", audio.Samples[0])
	}
	if math.Abs(audio.Samples[1]-0.25) > 0.001 {
		t.Fatalf("equal channels should average, got %f", audio.Samples[1])
	}
}

func encodeStereoWAV(t *testing.T, frames [][2]int16, sampleRate int) []byte {
	t.Helper()

	dataSize := len(frames) * 4
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*4))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, frame := range frames {
		binary.Write(&buf, binary.LittleEndian, frame[0])
		binary.Write(&buf, binary.LittleEndian, frame[1])
	}
	return buf.Bytes()
}

func TestDescribe(t *testing.T) {
	audio := &Audio{Samples: make([]float64, 22050), SampleRate: 11025}
	desc := Describe(audio, 44144)
	if desc.Codec != "pcm_s16le" || desc.Channels != 1 {
		t.Fatalf("descriptor = %+v", desc)
	}
	if math.Abs(desc.DurationSeconds-2.0) > 0.01 {
		t.Fatalf("duration = %f", desc.DurationSeconds)
	}
	if desc.SizeBytes != 44144 {
		t.Fatalf("size = %d", desc.SizeBytes)
	}
}
