package dictation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dreamy/audio"
	"dreamy/log"
)

const (
	DeepgramEndpoint = "wss://api.deepgram.com/v1/listen"

	captureRate     = 16000
	captureChannels = 1
	chunkMs         = 100
	chunkBytes      = captureRate * captureChannels * 2 * chunkMs / 1000

	drainTimeout = 2 * time.Second
)

type Deepgram struct {
	apiKey string
	host   audio.Host
	device *audio.DeviceInfo

	Endpoint string
	Model    string
	Language string
	Dialer   *websocket.Dialer
}

func NewDeepgram(apiKey string, host audio.Host, device *audio.DeviceInfo) *Deepgram {
	return &Deepgram{
		apiKey:   apiKey,
		host:     host,
		device:   device,
		Endpoint: DeepgramEndpoint,
		Model:    "nova-3",
		Language: "en-US",
		Dialer:   websocket.DefaultDialer,
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) url() (string, error) {
	endpoint, err := url.Parse(d.Endpoint)
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("model", d.Model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(captureRate))
	q.Set("channels", strconv.Itoa(captureChannels))
	q.Set("language", d.Language)
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

func (d *Deepgram) Start(ctx context.Context) (Session, error) {
	u, err := d.url()
	if err != nil {
		return nil, fmt.Errorf("deepgram url: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)
	conn, resp, err := d.Dialer.DialContext(ctx, u, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram dial: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("deepgram dial: %w", err)
	}

	capture, err := d.host.NewCapture(d.device, audio.CaptureConfig{SampleRate: captureRate, Channels: captureChannels})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("capture: %w", err)
	}

	s := &deepgramSession{
		conn:     conn,
		capture:  capture,
		audioCh:  make(chan []byte, 64),
		updates:  make(chan string, 1),
		done:     make(chan struct{}),
		sendDone: make(chan struct{}),
		recvDone: make(chan struct{}),
	}
	capture.SetCallback(s.feed)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		conn.Close()
		return nil, fmt.Errorf("capture start: %w", err)
	}

	log.DictationStart(d.Name(), capture.DeviceName())
	go s.runSender()
	go s.runReceiver()
	return s, nil
}

type deepgramResponse struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramSession struct {
	conn    *websocket.Conn
	capture audio.CaptureDevice

	audioCh chan []byte
	updates chan string
	done    chan struct{}

	sendDone chan struct{}
	recvDone chan struct{}

	feedMu  sync.Mutex
	feedBuf []byte
	fed     bool

	mu       sync.Mutex
	err      error
	closing  bool
	stopOnce sync.Once

	transcript Transcript
	results    int
}

func (s *deepgramSession) Updates() <-chan string { return s.updates }
func (s *deepgramSession) Done() <-chan struct{}  { return s.done }

func (s *deepgramSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *deepgramSession) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// feed runs on the capture thread. Audio is regrouped into fixed chunks and
// dropped while the sender is backed up.
func (s *deepgramSession) feed(pcm []byte, _ uint32) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.fed {
		return
	}
	s.feedBuf = append(s.feedBuf, pcm...)
	for len(s.feedBuf) >= chunkBytes {
		chunk := make([]byte, chunkBytes)
		copy(chunk, s.feedBuf[:chunkBytes])
		s.feedBuf = s.feedBuf[chunkBytes:]
		select {
		case s.audioCh <- chunk:
		default:
		}
	}
}

// finishFeed flushes buffered audio and closes the audio channel.
func (s *deepgramSession) finishFeed() {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	if s.fed {
		return
	}
	s.fed = true
	if len(s.feedBuf) > 0 {
		select {
		case s.audioCh <- s.feedBuf:
		default:
		}
		s.feedBuf = nil
	}
	close(s.audioCh)
}

func (s *deepgramSession) runSender() {
	defer close(s.sendDone)
	for chunk := range s.audioCh {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.setErr(fmt.Errorf("deepgram send: %w", err))
			go s.Stop()
			for range s.audioCh {
			}
			return
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(fmt.Errorf("deepgram close stream: %w", err))
	}
}

func (s *deepgramSession) runReceiver() {
	defer close(s.recvDone)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.setErr(fmt.Errorf("deepgram recv: %w", err))
			}
			go s.Stop()
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		if resp.Type != "" && resp.Type != "Results" {
			continue
		}
		text := ""
		if len(resp.Channel.Alternatives) > 0 {
			text = resp.Channel.Alternatives[0].Transcript
		}
		s.results++
		full := s.transcript.Apply(text, resp.IsFinal || resp.SpeechFinal)
		s.publish(full)
	}
}

// publish keeps only the newest transcript in the channel.
func (s *deepgramSession) publish(text string) {
	select {
	case s.updates <- text:
		return
	default:
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- text
}

// Stop ends capture, lets the provider flush its final results and closes
// the connection. It is safe to call more than once and from any goroutine.
func (s *deepgramSession) Stop() {
	s.stopOnce.Do(func() {
		s.capture.ClearCallback()
		s.capture.Stop()
		s.capture.Close()
		s.finishFeed()
		<-s.sendDone

		select {
		case <-s.recvDone:
		case <-time.After(drainTimeout):
			log.Warn("deepgram receiver drain timeout")
		}
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.conn.Close()
		<-s.recvDone

		close(s.updates)
		err := s.Err()
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			log.DictationError(err)
		}
		log.DictationStop(s.results, len(s.transcript.String()))
		close(s.done)
	})
}
