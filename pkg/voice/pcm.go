package voice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ReadPCM reads raw interleaved little-endian float32 samples, the format
// produced by e.g. `ffmpeg -f f32le`, and splits them into channels.
func ReadPCM(r io.Reader, sampleRate, channels int) (PCMBuffer, error) {
	if channels <= 0 {
		return PCMBuffer{}, ErrNoChannels
	}
	if sampleRate <= 0 {
		return PCMBuffer{}, ErrInvalidSampleRate
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return PCMBuffer{}, fmt.Errorf("reading pcm: %w", err)
	}

	frameSize := 4 * channels
	if len(raw)%frameSize != 0 {
		return PCMBuffer{}, fmt.Errorf("pcm length %d is not a multiple of the %d-byte frame size", len(raw), frameSize)
	}
	if len(raw) == 0 {
		return PCMBuffer{}, errors.New("pcm input is empty")
	}

	frames := len(raw) / frameSize
	buf := PCMBuffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, channels),
	}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}

	for i := range frames {
		for c := range channels {
			off := (i*channels + c) * 4
			buf.Channels[c][i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		}
	}

	return buf, nil
}
