package audio

import (
	"encoding/binary"
	"sync"
	"time"
)

// stream is the read cursor a backend pulls samples from. A paused stream
// yields silence without advancing; a stopped or exhausted stream yields
// nothing further.
type stream struct {
	samples []int16

	mu      sync.Mutex
	pos     int
	paused  bool
	stopped bool

	exhausted chan struct{}
	stopReq   chan struct{}
	ended     chan struct{}

	exOnce   sync.Once
	stopOnce sync.Once
	endOnce  sync.Once
}

func newStream(buf *Buffer) *stream {
	return &stream{
		samples:   buf.Samples,
		exhausted: make(chan struct{}),
		stopReq:   make(chan struct{}),
		ended:     make(chan struct{}),
	}
}

// fill copies the next samples into dst. ok is false once nothing remains.
func (s *stream) fill(dst []int16) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, false
	}
	if s.paused {
		clear(dst)
		return len(dst), true
	}
	if s.pos >= len(s.samples) {
		s.exOnce.Do(func() { close(s.exhausted) })
		return 0, false
	}
	n = copy(dst, s.samples[s.pos:])
	s.pos += n
	return n, true
}

// fillBytes is fill for backends that want little-endian S16 bytes. Unused
// space is zeroed.
func (s *stream) fillBytes(dst []byte) bool {
	tmp := make([]int16, len(dst)/2)
	n, ok := s.fill(tmp)
	for i := range tmp {
		v := int16(0)
		if i < n {
			v = tmp[i]
		}
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
	}
	return ok
}

func (s *stream) setPaused(p bool) {
	s.mu.Lock()
	s.paused = p
	s.mu.Unlock()
}

func (s *stream) position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *stream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.stopOnce.Do(func() { close(s.stopReq) })
	return nil
}

func (s *stream) Ended() <-chan struct{} { return s.ended }

func (s *stream) finish() {
	s.endOnce.Do(func() { close(s.ended) })
}

// wait blocks until the stream runs out or is stopped. It reports whether
// the end was natural.
func (s *stream) wait() bool {
	select {
	case <-s.exhausted:
		return true
	case <-s.stopReq:
		return false
	}
}

const closeTimeout = time.Second

// output holds the bookkeeping every backend context shares: lifecycle state
// and the streams started on it.
type output struct {
	mu      sync.Mutex
	state   ContextState
	streams []*stream
}

func (o *output) add(s *stream) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == ContextClosed {
		return ErrClosed
	}
	if o.state == ContextSuspended {
		s.setPaused(true)
	}
	o.streams = append(o.streams, s)
	return nil
}

func (o *output) Suspend() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == ContextClosed {
		return ErrClosed
	}
	o.state = ContextSuspended
	for _, s := range o.streams {
		s.setPaused(true)
	}
	return nil
}

func (o *output) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == ContextClosed {
		return ErrClosed
	}
	o.state = ContextRunning
	for _, s := range o.streams {
		s.setPaused(false)
	}
	return nil
}

func (o *output) State() ContextState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// shutdown stops every stream and waits briefly for the backend to release
// them. It returns false if the output was already closed.
func (o *output) shutdown() bool {
	o.mu.Lock()
	if o.state == ContextClosed {
		o.mu.Unlock()
		return false
	}
	o.state = ContextClosed
	streams := o.streams
	o.streams = nil
	o.mu.Unlock()

	for _, s := range streams {
		s.Stop()
	}
	deadline := time.After(closeTimeout)
	for _, s := range streams {
		select {
		case <-s.Ended():
		case <-deadline:
			return true
		}
	}
	return true
}
