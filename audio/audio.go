package audio

import (
	"errors"
	"strings"
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether output goes over bluetooth.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var (
	ErrNoOutput = errors.New("audio: no output host")
	ErrNoAudio  = errors.New("audio: no buffer to play")
	ErrClosed   = errors.New("audio: context closed")
)

type DeviceKind int

const (
	Playback DeviceKind = iota
	Capture
)

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type OutputConfig struct {
	SampleRate uint32
	Channels   uint32
	Device     *DeviceInfo // nil = system default
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Host is the platform audio backend. A Host lives for the whole process;
// playback contexts created from it are short-lived.
type Host interface {
	Devices(kind DeviceKind) ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	NewContext(config OutputConfig) (Context, error)
	Close()
}

type ContextState int

const (
	ContextRunning ContextState = iota
	ContextSuspended
	ContextClosed
)

func (s ContextState) String() string {
	switch s {
	case ContextRunning:
		return "running"
	case ContextSuspended:
		return "suspended"
	case ContextClosed:
		return "closed"
	}
	return "unknown"
}

// Context is one live output pipeline. It is created for a single playback
// session and must be closed when that session ends.
type Context interface {
	Play(buf *Buffer) (Source, error)
	Suspend() error
	Resume() error
	Close() error
	State() ContextState
}

// Source is a buffer being played through a Context. Ended is closed once the
// source stops producing audio, either at the end of the buffer or after Stop.
type Source interface {
	Ended() <-chan struct{}
	Stop() error
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
