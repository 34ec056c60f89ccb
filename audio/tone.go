package audio

import (
	"math"
	"sync"
)

const toneRate = 44100

type ToneKind int

const (
	ToneReady ToneKind = iota
	ToneError
)

var (
	tones    map[ToneKind]*Buffer
	toneOnce sync.Once
)

func initTones() {
	ready := generateTick(toneRate, 1200, 0.25, 0.4, 18)
	ready = append(ready, generateTick(toneRate, 1600, 0.35, 0.35, 12)...)
	tones = map[ToneKind]*Buffer{
		ToneReady: {SampleRate: toneRate, Channels: 1, Samples: ready},
		ToneError: {SampleRate: toneRate, Channels: 1, Samples: generateTick(toneRate, 420, 0.3, 0.4, 14)},
	}
}

func generateTick(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

// Tone returns the chime buffer for kind.
func Tone(kind ToneKind) *Buffer {
	toneOnce.Do(initTones)
	return tones[kind]
}

// PlayTone plays a chime on its own context and releases it when done. It
// does not block.
func PlayTone(host Host, device *DeviceInfo, kind ToneKind) error {
	if host == nil {
		return ErrNoOutput
	}
	p := NewPlayer(host, Tone(kind), device)
	done, err := p.Play()
	if err != nil {
		return err
	}
	go func() {
		<-done
		p.Close()
	}()
	return nil
}
