package audio

import (
	"errors"
	"fmt"
	"sync"
)

type PlaybackState int

const (
	StateIdle PlaybackState = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s PlaybackState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Player drives one decoded buffer through short-lived playback contexts.
// Each Play from idle or stopped opens a fresh context; stopping, a natural
// end and Close all release it.
type Player struct {
	host   Host
	device *DeviceInfo

	mu     sync.Mutex
	buf    *Buffer
	state  PlaybackState
	ctx    Context
	src    Source
	done   chan struct{}
	closed bool
}

func NewPlayer(host Host, buf *Buffer, device *DeviceInfo) *Player {
	return &Player{host: host, buf: buf, device: device}
}

func (p *Player) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Active reports whether a playback context is currently held.
func (p *Player) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx != nil
}

// Play starts playback from the beginning, or resumes when paused. The
// returned channel is closed once this playback settles, either because the
// buffer ran out or because it was stopped.
func (p *Player) Play() (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	switch p.state {
	case StatePlaying:
		return p.done, nil
	case StatePaused:
		if err := p.ctx.Resume(); err != nil {
			return nil, fmt.Errorf("resume: %w", err)
		}
		p.state = StatePlaying
		return p.done, nil
	}

	if p.host == nil {
		return nil, ErrNoOutput
	}
	if p.buf == nil || len(p.buf.Samples) == 0 {
		return nil, ErrNoAudio
	}

	ctx, err := p.host.NewContext(OutputConfig{
		SampleRate: uint32(p.buf.SampleRate),
		Channels:   uint32(p.buf.Channels),
		Device:     p.device,
	})
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	src, err := ctx.Play(p.buf)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("play: %w", err)
	}

	done := make(chan struct{})
	p.ctx, p.src, p.done = ctx, src, done
	p.state = StatePlaying

	go p.watch(src, done)
	return done, nil
}

// watch releases the context when src reaches its end on its own.
func (p *Player) watch(src Source, done chan struct{}) {
	<-src.Ended()

	p.mu.Lock()
	var ctx Context
	if p.src == src {
		ctx = p.ctx
		p.ctx, p.src, p.done = nil, nil, nil
		p.state = StateStopped
	}
	p.mu.Unlock()

	if ctx != nil {
		ctx.Close()
		close(done)
	}
}

func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePlaying {
		return nil
	}
	if err := p.ctx.Suspend(); err != nil {
		return fmt.Errorf("suspend: %w", err)
	}
	p.state = StatePaused
	return nil
}

func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePaused {
		return nil
	}
	if err := p.ctx.Resume(); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	p.state = StatePlaying
	return nil
}

func (p *Player) TogglePause() error {
	switch p.State() {
	case StatePlaying:
		return p.Pause()
	case StatePaused:
		return p.Resume()
	}
	return nil
}

// Stop tears playback down completely. Teardown always finishes; the
// returned error only reports what the backend complained about on the way.
func (p *Player) Stop() error {
	p.mu.Lock()
	ctx, src, done := p.ctx, p.src, p.done
	p.ctx, p.src, p.done = nil, nil, nil
	if ctx != nil || p.state != StateIdle {
		p.state = StateStopped
	}
	p.mu.Unlock()

	if ctx == nil {
		return nil
	}
	var errs []error
	if err := src.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop source: %w", err))
	}
	if err := ctx.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	close(done)
	return errors.Join(errs...)
}

// Close stops playback and drops the buffer. The player cannot be reused.
func (p *Player) Close() error {
	err := p.Stop()
	p.mu.Lock()
	p.closed = true
	p.buf = nil
	p.mu.Unlock()
	return err
}
