package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// DecodeWAV parses 16-bit PCM WAV bytes into mono samples in [-1, 1]. Stereo
// input is downmixed by channel averaging. Chunk order is not assumed; LIST,
// INFO, and other metadata chunks are skipped.
func DecodeWAV(data []byte) (*Audio, error) {
	r := bytes.NewReader(data)

	var riff [4]byte
	var riffSize uint32
	var wave [4]byte
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &riffSize); err != nil {
		return nil, fmt.Errorf("read riff size: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &wave); err != nil {
		return nil, fmt.Errorf("read wave id: %w", err)
	}
	if string(riff[:]) != "RIFF" || string(wave[:]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE stream")
	}

	var (
		audioFormat   uint16
		channels      uint16
		sampleRate    uint32
		bitsPerSample uint16
		pcm           []byte
		fmtFound      bool
		dataFound     bool
	)

	for !(fmtFound && dataFound) {
		var chunkID [4]byte
		var chunkSize uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkID); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunkSize); err != nil {
			return nil, fmt.Errorf("read chunk size: %w", err)
		}

		switch string(chunkID[:]) {
		case "fmt ":
			var byteRate uint32
			var blockAlign uint16
			fields := []any{&audioFormat, &channels, &sampleRate, &byteRate, &blockAlign, &bitsPerSample}
			for _, field := range fields {
				if err := binary.Read(r, binary.LittleEndian, field); err != nil {
					return nil, fmt.Errorf("read fmt chunk: %w", err)
				}
			}
			if extra := int64(chunkSize) - 16; extra > 0 {
				if _, err := r.Seek(extra, io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("skip fmt extras: %w", err)
				}
			}
			fmtFound = true
		case "data":
			pcm = make([]byte, chunkSize)
			if _, err := io.ReadFull(r, pcm); err != nil {
				return nil, fmt.Errorf("read data chunk: %w", err)
			}
			dataFound = true
		default:
			if _, err := r.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip chunk %q: %w", chunkID, err)
			}
		}

		// Chunks are word aligned; odd sizes carry a pad byte.
		if chunkSize%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip pad byte: %w", err)
			}
		}
	}

	if !fmtFound {
		return nil, errors.New("fmt chunk not found")
	}
	if !dataFound {
		return nil, errors.New("data chunk not found")
	}
	if audioFormat != 1 {
		return nil, fmt.Errorf("unsupported wav format %d, want PCM", audioFormat)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d, want 16", bitsPerSample)
	}
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	samples, err := pcmToMonoFloat64(pcm, channels)
	if err != nil {
		return nil, err
	}
	return &Audio{Samples: samples, SampleRate: int(sampleRate)}, nil
}

// EncodeWAV renders mono samples as a canonical 16-bit PCM WAV file. Samples
// outside [-1, 1] are clipped.
func EncodeWAV(samples []float64, sampleRate int) []byte {
	dataSize := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataSize)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, sample := range samples {
		clipped := math.Max(-1, math.Min(1, sample))
		binary.Write(&buf, binary.LittleEndian, int16(clipped*32767))
	}
	return buf.Bytes()
}

func pcmToMonoFloat64(pcm []byte, channels uint16) ([]float64, error) {
	ints := make([]int16, len(pcm)/2)
	if err := binary.Read(bytes.NewReader(pcm), binary.LittleEndian, ints); err != nil {
		return nil, fmt.Errorf("decode pcm samples: %w", err)
	}

	const scale = 1.0 / 32768.0
	if channels == 1 {
		out := make([]float64, len(ints))
		for i, s := range ints {
			out[i] = float64(s) * scale
		}
		return out, nil
	}

	frames := len(ints) / 2
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left := float64(ints[2*i]) * scale
		right := float64(ints[2*i+1]) * scale
		out[i] = (left + right) * 0.5
	}
	return out, nil
}
