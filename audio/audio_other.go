//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// drainTail lets the device flush its last period before it is torn down.
const drainTail = 100 * time.Millisecond

type malgoHost struct {
	ctx *malgo.AllocatedContext
}

func NewHost() (Host, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo init: %w", err)
	}
	return &malgoHost{ctx: ctx}, nil
}

func (m *malgoHost) Devices(kind DeviceKind) ([]DeviceInfo, error) {
	dt := malgo.Playback
	if kind == Capture {
		dt = malgo.Capture
	}
	devices, err := m.ctx.Devices(dt)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func deviceID(device *DeviceInfo) (*malgo.DeviceID, error) {
	idBytes, err := hex.DecodeString(device.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid device ID: %w", err)
	}
	var devID malgo.DeviceID
	copy(devID[:], idBytes)
	return &devID, nil
}

func (m *malgoHost) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate

	if device != nil {
		devID, err := deviceID(device)
		if err != nil {
			return nil, err
		}
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	c := &malgoCapture{device: device}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			if cb := c.callback.Load(); cb != nil {
				(*cb)(data, frameCount)
			}
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("malgo capture: %w", err)
	}
	c.dev = dev
	return c, nil
}

// NewContext allocates a fresh miniaudio context for one playback session.
func (m *malgoHost) NewContext(config OutputConfig) (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo init: %w", err)
	}
	return &malgoOutput{ctx: ctx, config: config}, nil
}

func (m *malgoHost) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoOutput struct {
	output
	ctx    *malgo.AllocatedContext
	config OutputConfig
}

func (o *malgoOutput) Play(buf *Buffer) (Source, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, ErrNoAudio
	}
	s := newStream(buf)
	if err := o.add(s); err != nil {
		return nil, err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(buf.Channels)
	cfg.SampleRate = uint32(buf.SampleRate)
	if o.config.Device != nil {
		devID, err := deviceID(o.config.Device)
		if err != nil {
			s.Stop()
			s.finish()
			return nil, err
		}
		cfg.Playback.DeviceID = devID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			s.fillBytes(out)
		},
	}
	dev, err := malgo.InitDevice(o.ctx.Context, cfg, callbacks)
	if err != nil {
		s.Stop()
		s.finish()
		return nil, fmt.Errorf("malgo playback: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		s.Stop()
		s.finish()
		return nil, fmt.Errorf("malgo start: %w", err)
	}

	go func() {
		defer s.finish()
		if s.wait() {
			time.Sleep(drainTail)
		}
		dev.Stop()
		dev.Uninit()
	}()
	return s, nil
}

func (o *malgoOutput) Close() error {
	if o.shutdown() {
		o.ctx.Uninit()
		o.ctx.Free()
	}
	return nil
}

type malgoCapture struct {
	dev      *malgo.Device
	device   *DeviceInfo
	callback atomic.Pointer[DataCallback]
}

func (c *malgoCapture) Start() error {
	return c.dev.Start()
}

func (c *malgoCapture) Stop() {
	c.dev.Stop()
}

func (c *malgoCapture) Close() {
	c.dev.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *malgoCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}
