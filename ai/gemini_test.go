package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	model  string
	config *genai.GenerateContentConfig
	input  string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.input = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	var ps []*genai.Part
	for _, p := range parts {
		ps = append(ps, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: ps}, FinishReason: genai.FinishReasonStop}},
	}
}

func TestGeminiInterpret(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("The ocean ", "is your feeling.")}
	g := &Gemini{models: gen}

	got, err := g.Interpret(context.Background(), "I was swimming")
	if err != nil {
		t.Fatal(err)
	}
	if got != "The ocean is your feeling." {
		t.Errorf("got %q", got)
	}
	if gen.model != GeminiTextModel {
		t.Errorf("model = %q, want %q", gen.model, GeminiTextModel)
	}
	if gen.input != "I was swimming" {
		t.Errorf("input = %q", gen.input)
	}
	cfg := gen.config
	if cfg.Temperature == nil || *cfg.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", cfg.Temperature)
	}
	if cfg.TopP == nil || *cfg.TopP != 0.9 {
		t.Errorf("topP = %v, want 0.9", cfg.TopP)
	}
	if cfg.SystemInstruction == nil || !strings.Contains(cfg.SystemInstruction.Parts[0].Text, "named Dreamy") {
		t.Error("system instruction missing the persona")
	}
}

func TestGeminiInterpretFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"call error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"no candidates", &fakeGenerator{resp: &genai.GenerateContentResponse{}}},
		{"empty text", &fakeGenerator{resp: textResponse("  ")}},
		{"nil response", &fakeGenerator{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Gemini{models: tt.gen}).Interpret(context.Background(), "dream")
			if !errors.Is(err, ErrInterpretation) {
				t.Errorf("err = %v, want ErrInterpretation", err)
			}
		})
	}
}

func TestGeminiSynthesize(t *testing.T) {
	audio := []byte{1, 0, 2, 0}
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: audio, MIMEType: "audio/L16;codec=pcm;rate=24000"}},
		}}}},
	}}
	g := &Gemini{models: gen}

	sp, err := g.Synthesize(context.Background(), "Read this aloud")
	if err != nil {
		t.Fatal(err)
	}
	if string(sp.Data) != string(audio) {
		t.Errorf("data = %v, want %v", sp.Data, audio)
	}
	if sp.MIMEType != "audio/L16;codec=pcm;rate=24000" {
		t.Errorf("mime = %q", sp.MIMEType)
	}
	if gen.model != GeminiSpeechModel {
		t.Errorf("model = %q, want %q", gen.model, GeminiSpeechModel)
	}
	if len(gen.config.ResponseModalities) != 1 || gen.config.ResponseModalities[0] != string(genai.ModalityAudio) {
		t.Errorf("modalities = %v, want [AUDIO]", gen.config.ResponseModalities)
	}
	if v := gen.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; v != "Kore" {
		t.Errorf("voice = %q, want Kore", v)
	}
}

func TestGeminiSynthesizeMissingAudio(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"no candidates", &genai.GenerateContentResponse{}},
		{"no parts", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}},
		{"text only", textResponse("sorry")},
		{"audio not in first part", &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "preamble"},
				{InlineData: &genai.Blob{Data: []byte{1, 2}}},
			}}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Gemini{models: &fakeGenerator{resp: tt.resp}}).Synthesize(context.Background(), "x")
			if !errors.Is(err, ErrSpeech) {
				t.Errorf("err = %v, want ErrSpeech", err)
			}
		})
	}
}

func TestGeminiSynthesizeCallError(t *testing.T) {
	boom := errors.New("unavailable")
	_, err := (&Gemini{models: &fakeGenerator{err: boom}}).Synthesize(context.Background(), "x")
	if !errors.Is(err, ErrSpeech) || !errors.Is(err, boom) {
		t.Errorf("err = %v, want ErrSpeech wrapping %v", err, boom)
	}
}

func TestGeminiQuotaStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  srv.Client(),
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	})
	if err != nil {
		t.Fatal(err)
	}
	g := &Gemini{models: client.Models}

	_, err = g.Interpret(context.Background(), "a locked door")
	if !errors.Is(err, ErrInterpretation) {
		t.Fatalf("err = %v, want ErrInterpretation", err)
	}
	code, status, ok := HTTPStatus(err)
	if !ok || code != http.StatusTooManyRequests || status != "RESOURCE_EXHAUSTED" {
		t.Errorf("status = %d %q (%v), want 429 RESOURCE_EXHAUSTED", code, status, ok)
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("SDK error not preserved in chain: %v", err)
	}

	_, err = g.Synthesize(context.Background(), "narrate")
	if code, _, _ := HTTPStatus(err); !errors.Is(err, ErrSpeech) || code != http.StatusTooManyRequests {
		t.Errorf("synthesize err = %v, status %d", err, code)
	}
}

func TestGeminiTransportErrorHasNoStatus(t *testing.T) {
	_, err := (&Gemini{models: &fakeGenerator{err: errors.New("dial tcp: refused")}}).Interpret(context.Background(), "x")
	if _, _, ok := HTTPStatus(err); ok {
		t.Errorf("transport error reported an HTTP status: %v", err)
	}
}
