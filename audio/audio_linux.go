//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulseHost struct {
	client *pulse.Client
}

func NewHost() (Host, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseHost{client: c}, nil
}

func (p *pulseHost) Devices(kind DeviceKind) ([]DeviceInfo, error) {
	var devices []DeviceInfo
	if kind == Capture {
		sources, err := p.client.ListSources()
		if err != nil {
			return nil, fmt.Errorf("pulse list sources: %w", err)
		}
		for _, s := range sources {
			devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
		}
		return devices, nil
	}
	sinks, err := p.client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("pulse list sinks: %w", err)
	}
	for _, s := range sinks {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseHost) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &pulseCapture{
		client: p.client,
		device: device,
		config: config,
	}, nil
}

// NewContext opens a dedicated pulse connection for one playback session.
func (p *pulseHost) NewContext(config OutputConfig) (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	out := &pulseOutput{client: c, config: config}
	if config.Device != nil {
		if sink, err := c.SinkByID(config.Device.ID); err == nil && sink != nil {
			out.sink = sink
		}
	}
	return out, nil
}

func (p *pulseHost) Close() {
	p.client.Close()
}

type pulseOutput struct {
	output
	client *pulse.Client
	config OutputConfig
	sink   *pulse.Sink
}

func (o *pulseOutput) Play(buf *Buffer) (Source, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, ErrNoAudio
	}
	s := newStream(buf)
	if err := o.add(s); err != nil {
		return nil, err
	}

	reader := pulse.Int16Reader(func(dst []int16) (int, error) {
		n, ok := s.fill(dst)
		if !ok {
			return 0, pulse.EndOfData
		}
		return n, nil
	})

	layout := pulse.PlaybackMono
	volumes := proto.ChannelVolumes{uint32(proto.VolumeNorm)}
	if buf.Channels == 2 {
		layout = pulse.PlaybackStereo
		volumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
	}
	opts := []pulse.PlaybackOption{
		layout,
		pulse.PlaybackSampleRate(buf.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = volumes
		}),
	}
	if o.sink != nil {
		opts = append(opts, pulse.PlaybackSink(o.sink))
	}

	pb, err := o.client.NewPlayback(reader, opts...)
	if err != nil {
		s.Stop()
		s.finish()
		return nil, fmt.Errorf("pulse playback: %w", err)
	}

	go func() {
		defer s.finish()
		pb.Start()
		if s.wait() {
			pb.Drain()
		}
		pb.Stop()
		pb.Close()
	}()
	return s, nil
}

func (o *pulseOutput) Close() error {
	if o.shutdown() {
		o.client.Close()
	}
	return nil
}

type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	stream *pulse.RecordStream
	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	const gain = 4

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		cb := c.callback.Load()
		if cb == nil {
			return len(buf), nil
		}
		data := make([]byte, len(buf)*2)
		for i, s := range buf {
			v := max(min(int32(s)*gain, 32767), -32768)
			binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
		}
		(*cb)(data, uint32(len(buf)))
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(0.05),
	}
	if c.device != nil {
		source, err := c.client.SourceByID(c.device.ID)
		if err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
		}
	}

	rec, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	c.stream = rec
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		rec.Start()
		<-c.stop
		rec.Stop()
		rec.Close()
	}()

	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		select {
		case <-c.stop:
		default:
			close(c.stop)
		}
		<-c.done
	}
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *pulseCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}
