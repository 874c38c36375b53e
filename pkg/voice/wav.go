// Package voice encodes recorded audio as WAV and sends it to the backend's
// voice query endpoint.
package voice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// wavHeaderSize is the size of a canonical PCM WAV header.
	wavHeaderSize = 44

	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
	formatPCM      = 1
	fmtChunkSize   = 16
)

var (
	ErrNoChannels        = errors.New("pcm buffer has no channels")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// PCMBuffer is decoded audio: one slice of float samples in [-1, 1] per
// channel, all of the same length.
type PCMBuffer struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of samples per channel.
func (b PCMBuffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// EncodePCMToWav renders buf as a 16-bit PCM RIFF/WAVE file: a 44-byte header
// followed by interleaved little-endian samples.
//
// Each sample is clamped to [-1, 1]; negative values are scaled by 32768 and
// non-negative values by 32767, then truncated toward zero.
func EncodePCMToWav(buf PCMBuffer) ([]byte, error) {
	if len(buf.Channels) == 0 {
		return nil, ErrNoChannels
	}
	if buf.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	frames := buf.Frames()
	for i, ch := range buf.Channels {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d has %d samples, expected %d", i, len(ch), frames)
		}
	}

	numChannels := len(buf.Channels)
	blockAlign := numChannels * bytesPerSample
	dataSize := frames * blockAlign

	out := make([]byte, wavHeaderSize+dataSize)
	le := binary.LittleEndian

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], fmtChunkSize)
	le.PutUint16(out[20:22], formatPCM)
	le.PutUint16(out[22:24], uint16(numChannels))
	le.PutUint32(out[24:28], uint32(buf.SampleRate))
	le.PutUint32(out[28:32], uint32(buf.SampleRate*blockAlign))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(dataSize))

	offset := wavHeaderSize
	for i := range frames {
		for _, ch := range buf.Channels {
			le.PutUint16(out[offset:], uint16(floatToPCM16(ch[i])))
			offset += bytesPerSample
		}
	}

	return out, nil
}

// floatToPCM16 converts one float sample to a signed 16-bit value.
func floatToPCM16(s float32) int16 {
	switch {
	case math.IsNaN(float64(s)):
		return 0
	case s < -1:
		s = -1
	case s > 1:
		s = 1
	}

	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}
