package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SpeechSampleRate is the rate of L16 speech returned by the TTS providers.
	SpeechSampleRate = 24000
	SpeechChannels   = 1
)

var ErrDecode = errors.New("audio: decode failed")

// Buffer holds decoded 16-bit PCM, interleaved when Channels > 1.
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []int16
}

func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Decode turns raw little-endian L16 bytes into a playable buffer.
func Decode(data []byte, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: invalid format %dHz/%dch", ErrDecode, sampleRate, channels)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	frameBytes := 2 * channels
	if len(data)%frameBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte frames", ErrDecode, len(data), frameBytes)
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return &Buffer{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// RateFromMIME reads the rate parameter of e.g. "audio/L16;codec=pcm;rate=24000".
func RateFromMIME(mime string, fallback int) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(k, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			return rate
		}
	}
	return fallback
}
