package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	GeminiTextModel   = "gemini-2.5-flash"
	GeminiSpeechModel = "gemini-2.5-flash-preview-tts"
	GeminiVoice       = "Kore"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Gemini struct {
	models contentGenerator
}

func NewGemini(ctx context.Context, apiKey string, hc *http.Client) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Gemini{models: client.Models}, nil
}

func (g *Gemini) Name() string { return ProviderGemini }

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Status: apiErr.Status, Err: err}
	}
	return err
}

func (g *Gemini) Interpret(ctx context.Context, dream string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, GeminiTextModel, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: dream}}},
	}, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemPrompt}}},
		Temperature:       genai.Ptr[float32](Temperature),
		TopP:              genai.Ptr[float32](TopP),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInterpretation, geminiError(err))
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates", ErrInterpretation)
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty response (finish reason %s)", ErrInterpretation, resp.Candidates[0].FinishReason)
	}
	return text, nil
}

func (g *Gemini) Synthesize(ctx context.Context, text string) (Speech, error) {
	resp, err := g.models.GenerateContent(ctx, GeminiSpeechModel, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: text}}},
	}, &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: GeminiVoice},
			},
		},
	})
	if err != nil {
		return Speech{}, fmt.Errorf("%w: %w", ErrSpeech, geminiError(err))
	}

	// Audio is expected in the first part of the first candidate.
	if resp == nil || len(resp.Candidates) == 0 {
		return Speech{}, fmt.Errorf("%w: no candidates", ErrSpeech)
	}
	c := resp.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 || c.Parts[0] == nil {
		return Speech{}, fmt.Errorf("%w: no audio data returned", ErrSpeech)
	}
	blob := c.Parts[0].InlineData
	if blob == nil || len(blob.Data) == 0 {
		return Speech{}, fmt.Errorf("%w: no audio data returned", ErrSpeech)
	}
	return Speech{Data: blob.Data, MIMEType: blob.MIMEType}, nil
}
