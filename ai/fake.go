package ai

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// Fake is a scripted Client. Zero fields fall back to a canned interpretation
// and a short tone.
type Fake struct {
	Text         string
	Audio        Speech
	Delay        time.Duration
	InterpretErr error
	SpeechErr    error

	mu          sync.Mutex
	interprets  int
	synthesizes int
	lastDream   string
}

const fakeInterpretation = "Your dream drifts like a lantern on dark water.\n\nPerhaps it asks you to notice what glows quietly within you."

func NewFake() *Fake {
	return &Fake{Text: fakeInterpretation, Audio: FakeSpeech(300 * time.Millisecond)}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fake) Interpret(ctx context.Context, dream string) (string, error) {
	f.mu.Lock()
	f.interprets++
	f.lastDream = dream
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInterpretation, err)
	}
	if f.InterpretErr != nil {
		return "", fmt.Errorf("%w: %w", ErrInterpretation, f.InterpretErr)
	}
	if f.Text == "" {
		return "", fmt.Errorf("%w: empty response", ErrInterpretation)
	}
	return f.Text, nil
}

func (f *Fake) Synthesize(ctx context.Context, _ string) (Speech, error) {
	f.mu.Lock()
	f.synthesizes++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return Speech{}, fmt.Errorf("%w: %w", ErrSpeech, err)
	}
	if f.SpeechErr != nil {
		return Speech{}, fmt.Errorf("%w: %w", ErrSpeech, f.SpeechErr)
	}
	if len(f.Audio.Data) == 0 {
		return Speech{}, fmt.Errorf("%w: no audio data returned", ErrSpeech)
	}
	return f.Audio, nil
}

// Calls reports how many times each method ran.
func (f *Fake) Calls() (interprets, synthesizes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interprets, f.synthesizes
}

func (f *Fake) LastDream() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastDream
}

// FakeSpeech renders a quiet 24kHz sine of length d as L16 speech.
func FakeSpeech(d time.Duration) Speech {
	const rate = 24000
	n := int(d.Seconds() * rate)
	data := make([]byte, n*2)
	for i := range n {
		s := int16(math.Sin(2*math.Pi*330*float64(i)/rate) * 3000)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return Speech{Data: data, MIMEType: "audio/L16;codec=pcm;rate=24000"}
}
