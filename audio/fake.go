package audio

import (
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
	fakeTick          = 5 * time.Millisecond
)

// FakeHost is an in-memory Host. Playback advances in real time (scaled by
// Speed) and the host keeps count of contexts so tests can check teardown.
type FakeHost struct {
	// Speed multiplies playback rate; zero means 1.
	Speed float64
	// ContextErr, when set, is returned by NewContext.
	ContextErr error
	// PCM is fed to captures, as little-endian S16 mono.
	PCM        []byte
	Realtime   bool
	DeviceList []DeviceInfo

	mu      sync.Mutex
	created int
	open    int
	last    *FakeContext
}

func (h *FakeHost) Devices(DeviceKind) ([]DeviceInfo, error) { return h.DeviceList, nil }
func (h *FakeHost) Close()                                   {}

func (h *FakeHost) NewCapture(_ *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return NewFakeCapture(h.PCM, config.SampleRate, h.Realtime), nil
}

func (h *FakeHost) NewContext(config OutputConfig) (Context, error) {
	if h.ContextErr != nil {
		return nil, h.ContextErr
	}
	speed := h.Speed
	if speed <= 0 {
		speed = 1
	}
	c := &FakeContext{host: h, config: config, speed: speed}
	h.mu.Lock()
	h.created++
	h.open++
	h.last = c
	h.mu.Unlock()
	return c, nil
}

// Created is the number of contexts ever opened.
func (h *FakeHost) Created() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created
}

// Open is the number of contexts not yet closed.
func (h *FakeHost) Open() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

func (h *FakeHost) Last() *FakeContext {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

type FakeContext struct {
	output
	host   *FakeHost
	config OutputConfig
	speed  float64

	playMu sync.Mutex
	played []*stream
}

func (c *FakeContext) Play(buf *Buffer) (Source, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, ErrNoAudio
	}
	s := newStream(buf)
	if err := c.add(s); err != nil {
		return nil, err
	}
	c.playMu.Lock()
	c.played = append(c.played, s)
	c.playMu.Unlock()

	per := int(float64(buf.SampleRate*buf.Channels) * fakeTick.Seconds() * c.speed)
	scratch := make([]int16, max(per, 1))
	go func() {
		defer s.finish()
		ticker := time.NewTicker(fakeTick)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopReq:
				return
			case <-ticker.C:
			}
			if _, ok := s.fill(scratch); !ok {
				return
			}
		}
	}()
	return s, nil
}

// Position reports how many samples the most recent source has consumed.
func (c *FakeContext) Position() int {
	c.playMu.Lock()
	defer c.playMu.Unlock()
	if len(c.played) == 0 {
		return 0
	}
	return c.played[len(c.played)-1].position()
}

func (c *FakeContext) Close() error {
	if c.shutdown() {
		c.host.mu.Lock()
		c.host.open--
		c.host.mu.Unlock()
	}
	return nil
}

type FakeCapture struct {
	pcm        []byte
	sampleRate uint32
	realtime   bool
	audioDone  chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

func NewFakeCapture(pcm []byte, sampleRate uint32, realtime bool) *FakeCapture {
	if sampleRate == 0 {
		sampleRate = 16000
	}
	return &FakeCapture{pcm: pcm, sampleRate: sampleRate, realtime: realtime, audioDone: make(chan struct{})}
}

// AudioDone is closed after the whole PCM has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) feedChunk(cb DataCallback, pos, chunkBytes int) int {
	end := min(pos+chunkBytes, len(f.pcm))
	chunk := make([]byte, end-pos)
	copy(chunk, f.pcm[pos:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
	return end
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)
	}

	go func() {
		defer close(f.feedDone)
		pos := 0
		finished := false
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
			cb := f.callback()
			if cb == nil {
				continue
			}
			if pos < len(f.pcm) {
				pos = f.feedChunk(cb, pos, chunkBytes)
				continue
			}
			if !finished {
				finished = true
				close(f.audioDone)
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}
