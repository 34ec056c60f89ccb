package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
)

func openAIServer(t *testing.T, chatContent string, speech []byte, status int) (*httptest.Server, *map[string]any) {
	t.Helper()
	var lastChat map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		switch r.URL.Path {
		case "/chat/completions":
			json.NewDecoder(r.Body).Decode(&lastChat)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion",
				"created": 1,
				"model":   "gpt-4o-mini",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": chatContent},
				}},
			})
		case "/audio/speech":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(speech)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &lastChat
}

func TestOpenAIInterpret(t *testing.T) {
	srv, lastChat := openAIServer(t, "A quiet river of meaning.", nil, http.StatusOK)
	o := NewOpenAI("sk-test", srv.Client(), option.WithBaseURL(srv.URL+"/"))

	got, err := o.Interpret(context.Background(), "I flew over hills")
	if err != nil {
		t.Fatal(err)
	}
	if got != "A quiet river of meaning." {
		t.Errorf("got %q", got)
	}
	body := *lastChat
	if body["temperature"] != 0.7 || body["top_p"] != 0.9 {
		t.Errorf("sampling = %v/%v, want 0.7/0.9", body["temperature"], body["top_p"])
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if role := msgs[0].(map[string]any)["role"]; role != "system" {
		t.Errorf("first message role = %v, want system", role)
	}
}

func TestOpenAIInterpretEmpty(t *testing.T) {
	srv, _ := openAIServer(t, "", nil, http.StatusOK)
	o := NewOpenAI("sk-test", srv.Client(), option.WithBaseURL(srv.URL+"/"))
	if _, err := o.Interpret(context.Background(), "x"); !errors.Is(err, ErrInterpretation) {
		t.Errorf("err = %v, want ErrInterpretation", err)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	pcm := []byte{0, 1, 0, 2, 0, 3}
	srv, _ := openAIServer(t, "", pcm, http.StatusOK)
	o := NewOpenAI("sk-test", srv.Client(), option.WithBaseURL(srv.URL+"/"))

	sp, err := o.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if string(sp.Data) != string(pcm) {
		t.Errorf("data = %v, want %v", sp.Data, pcm)
	}
	if sp.MIMEType != openAIPCMMime {
		t.Errorf("mime = %q", sp.MIMEType)
	}
}

func TestOpenAIServerError(t *testing.T) {
	srv, _ := openAIServer(t, "", nil, http.StatusInternalServerError)
	o := NewOpenAI("sk-test", srv.Client(), option.WithBaseURL(srv.URL+"/"))

	_, err := o.Interpret(context.Background(), "x")
	if !errors.Is(err, ErrInterpretation) {
		t.Errorf("interpret err = %v, want ErrInterpretation", err)
	}
	if code, status, ok := HTTPStatus(err); !ok || code != http.StatusInternalServerError || status != "Internal Server Error" {
		t.Errorf("status = %d %q (%v), want 500", code, status, ok)
	}
	if _, err := o.Synthesize(context.Background(), "x"); !errors.Is(err, ErrSpeech) {
		t.Errorf("synthesize err = %v, want ErrSpeech", err)
	}
}
