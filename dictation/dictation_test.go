package dictation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dreamy/audio"
)

func TestTranscript(t *testing.T) {
	var tr Transcript
	steps := []struct {
		text  string
		final bool
		want  string
	}{
		{"i was", false, "i was"},
		{"I was flying", true, "I was flying"},
		{"over", false, "I was flying over"},
		{"over the sea", false, "I was flying over the sea"},
		{" over the sea. ", true, "I was flying over the sea."},
		{"", true, "I was flying over the sea."},
		{"", false, "I was flying over the sea."},
	}
	for i, s := range steps {
		if got := tr.Apply(s.text, s.final); got != s.want {
			t.Errorf("step %d: got %q, want %q", i, got, s.want)
		}
	}
}

func TestCapability(t *testing.T) {
	un := Unavailable("no mic")
	if un.Supported() {
		t.Error("Unavailable reports supported")
	}
	if _, ok := un.Recognizer(); ok {
		t.Error("Unavailable returned a recognizer")
	}
	if un.Reason() != "no mic" {
		t.Errorf("reason = %q", un.Reason())
	}

	av := Available(NewFake())
	if r, ok := av.Recognizer(); !ok || r.Name() != "fake" {
		t.Errorf("Available recognizer = %v, %v", r, ok)
	}
}

func TestDetect(t *testing.T) {
	host := &audio.FakeHost{}

	t.Setenv("DEEPGRAM_API_KEY", "")
	if Detect(true, host, nil).Supported() {
		t.Error("supported without key")
	}

	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	if Detect(false, host, nil).Supported() {
		t.Error("supported while disabled")
	}
	if Detect(true, nil, nil).Supported() {
		t.Error("supported without audio host")
	}
	c := Detect(true, host, nil)
	r, ok := c.Recognizer()
	if !ok || r.Name() != "deepgram" {
		t.Errorf("Detect = %v, %v", r, ok)
	}
}

func TestFakeRecognizer(t *testing.T) {
	f := NewFake("I", "I dreamt", "I dreamt of rain")
	s, err := f.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for i := 0; i < 3; i++ {
		got = append(got, <-s.Updates())
	}
	s.Stop()
	if got[2] != "I dreamt of rain" {
		t.Errorf("last update = %q", got[2])
	}
	if s.Err() != nil {
		t.Errorf("err = %v", s.Err())
	}

	f.Err = errors.New("mic unplugged")
	s, _ = f.Start(context.Background())
	for range s.Updates() {
	}
	<-s.Done()
	if !errors.Is(s.Err(), f.Err) {
		t.Errorf("err = %v, want %v", s.Err(), f.Err)
	}
}

type deepgramStub struct {
	mu          sync.Mutex
	auth        string
	query       string
	audioBytes  int
	closeStream bool
}

func (d *deepgramStub) serve(t *testing.T, results []map[string]any) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		d.auth = r.Header.Get("Authorization")
		d.query = r.URL.RawQuery
		d.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, res := range results {
			data, _ := json.Marshal(res)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			d.mu.Lock()
			if mt == websocket.BinaryMessage {
				d.audioBytes += len(data)
			} else if strings.Contains(string(data), "CloseStream") {
				d.closeStream = true
				d.mu.Unlock()
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			d.mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func result(text string, final bool) map[string]any {
	return map[string]any{
		"type":     "Results",
		"is_final": final,
		"channel":  map[string]any{"alternatives": []map[string]any{{"transcript": text}}},
	}
}

func TestDeepgramSession(t *testing.T) {
	stub := &deepgramStub{}
	srv := stub.serve(t, []map[string]any{
		{"type": "Metadata"},
		result("a tall", false),
		result("A tall tower", true),
		result("made of", false),
	})

	host := &audio.FakeHost{PCM: make([]byte, chunkBytes*3)}
	d := NewDeepgram("dg-key", host, nil)
	d.Endpoint = "ws" + strings.TrimPrefix(srv.URL, "http")

	s, err := d.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var last string
	deadline := time.After(2 * time.Second)
	for last != "A tall tower made of" {
		select {
		case u := <-s.Updates():
			last = u
		case <-deadline:
			t.Fatalf("did not see full transcript, last %q", last)
		}
	}

	time.Sleep(50 * time.Millisecond)
	s.Stop()
	<-s.Done()
	if err := s.Err(); err != nil {
		t.Errorf("err = %v", err)
	}
	if _, ok := <-s.Updates(); ok {
		t.Error("updates not closed after Stop")
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.auth != "Token dg-key" {
		t.Errorf("auth header = %q", stub.auth)
	}
	for _, p := range []string{"interim_results=true", "sample_rate=16000", "language=en-US", "encoding=linear16"} {
		if !strings.Contains(stub.query, p) {
			t.Errorf("query %q missing %s", stub.query, p)
		}
	}
	if stub.audioBytes == 0 {
		t.Error("no audio reached the server")
	}
	if !stub.closeStream {
		t.Error("CloseStream was not sent")
	}
}

func TestDeepgramDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	host := &audio.FakeHost{}
	d := NewDeepgram("bad", host, nil)
	d.Endpoint = "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, err := d.Start(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestDeepgramServerDropEndsSession(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		data, _ := json.Marshal(result("hello", true))
		conn.WriteMessage(websocket.TextMessage, data)
		conn.Close()
	}))
	defer srv.Close()

	d := NewDeepgram("k", &audio.FakeHost{}, nil)
	d.Endpoint = "ws" + strings.TrimPrefix(srv.URL, "http")
	s, err := d.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("session did not end after the server dropped")
	}
	if s.Err() == nil {
		t.Error("expected an error after abrupt close")
	}
}
