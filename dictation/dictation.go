// Package dictation turns microphone speech into dream text through a
// streaming recognition provider.
package dictation

import (
	"context"
	"os"
	"strings"

	"dreamy/audio"
)

// Recognizer starts continuous, interim-result dictation sessions.
type Recognizer interface {
	Name() string
	Start(ctx context.Context) (Session, error)
}

// Session is one listening run. Updates carries the whole transcript so far
// and is closed when the session ends, whether through Stop or a failure.
type Session interface {
	Updates() <-chan string
	Stop()
	Done() <-chan struct{}
	Err() error
}

// Capability says whether dictation can be offered at all.
type Capability struct {
	recognizer Recognizer
	reason     string
}

func Available(r Recognizer) Capability { return Capability{recognizer: r} }

func Unavailable(reason string) Capability { return Capability{reason: reason} }

func (c Capability) Recognizer() (Recognizer, bool) { return c.recognizer, c.recognizer != nil }

func (c Capability) Supported() bool { return c.recognizer != nil }

// Reason explains an Unavailable capability.
func (c Capability) Reason() string { return c.reason }

// Detect reports dictation as available when it is enabled, a Deepgram key is
// configured and the host can capture audio.
func Detect(enabled bool, host audio.Host, device *audio.DeviceInfo) Capability {
	if !enabled {
		return Unavailable("dictation disabled")
	}
	if host == nil {
		return Unavailable("no audio host")
	}
	key := os.Getenv("DEEPGRAM_API_KEY")
	if key == "" {
		return Unavailable("DEEPGRAM_API_KEY not set")
	}
	return Available(NewDeepgram(key, host, device))
}

// Transcript accumulates recognition results. Final segments are kept; the
// latest interim segment is shown after them until it is finalized.
type Transcript struct {
	finals  []string
	interim string
}

// Apply records one result and returns the full transcript.
func (t *Transcript) Apply(text string, final bool) string {
	text = strings.TrimSpace(text)
	if final {
		if text != "" {
			t.finals = append(t.finals, text)
		}
		t.interim = ""
	} else {
		t.interim = text
	}
	return t.String()
}

func (t *Transcript) String() string {
	parts := t.finals
	if t.interim != "" {
		parts = append(parts[:len(parts):len(parts)], t.interim)
	}
	return strings.Join(parts, " ")
}
