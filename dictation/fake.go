package dictation

import (
	"context"
	"sync"
	"time"
)

// FakeRecognizer replays scripted transcripts, one per Interval.
type FakeRecognizer struct {
	Transcripts []string
	Interval    time.Duration
	// Err ends each session with this error after the transcripts.
	Err      error
	StartErr error

	mu     sync.Mutex
	starts int
}

func NewFake(transcripts ...string) *FakeRecognizer {
	return &FakeRecognizer{Transcripts: transcripts, Interval: 10 * time.Millisecond}
}

func (f *FakeRecognizer) Name() string { return "fake" }

func (f *FakeRecognizer) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeRecognizer) Start(ctx context.Context) (Session, error) {
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()

	s := &fakeSession{
		updates: make(chan string, len(f.Transcripts)),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	go s.run(ctx, f.Transcripts, f.Interval, f.Err)
	return s, nil
}

type fakeSession struct {
	updates chan string
	done    chan struct{}
	stop    chan struct{}

	stopOnce sync.Once
	mu       sync.Mutex
	err      error
}

func (s *fakeSession) run(ctx context.Context, transcripts []string, interval time.Duration, endErr error) {
	defer close(s.done)
	defer close(s.updates)
	for _, t := range transcripts {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
		s.updates <- t
	}
	if endErr != nil {
		s.mu.Lock()
		s.err = endErr
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stop:
	case <-ctx.Done():
	}
}

func (s *fakeSession) Updates() <-chan string { return s.updates }
func (s *fakeSession) Done() <-chan struct{}  { return s.done }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
