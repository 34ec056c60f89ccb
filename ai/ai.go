// Package ai talks to the hosted models that interpret a dream and narrate
// the interpretation.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	ErrInterpretation = errors.New("failed to get interpretation")
	ErrSpeech         = errors.New("failed to generate speech")
)

// SystemPrompt is the persona every provider is instructed with.
const SystemPrompt = `You are a dream interpreter named Dreamy.
Your purpose is to guide users to a deeper understanding of their inner world.
Analyze the user's dream with insight, empathy, and a touch of mystique.
Your tone should be calming, wise, and slightly poetic.

When interpreting, explore possible symbolic meanings and psychological connections.
Where the content of the dream suggests it, gently introduce potential spiritual or archetypal themes. Connect the dream's symbols to broader human experiences, universal myths, or pathways for personal growth. Frame these insights as possibilities for reflection, not as definitive facts.

Maintain a gentle, non-dogmatic, and universally respectful approach to spirituality.
Structure your response in well-formed paragraphs. Start with a gentle opening, delve into the analysis, and conclude with a reflective summary that leaves the user with a sense of clarity, peace, or empowerment.`

const (
	Temperature = 0.7
	TopP        = 0.9
)

// Speech is a synthesized narration. Data is raw 16-bit little-endian PCM;
// MIMEType carries the sample rate, e.g. "audio/L16;codec=pcm;rate=24000".
type Speech struct {
	Data     []byte
	MIMEType string
}

// StatusError is an upstream HTTP failure as reported by a provider SDK.
type StatusError struct {
	Code   int
	Status string
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s: %v", e.Code, e.Status, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus returns the upstream status code and status carried by err.
func HTTPStatus(err error) (int, string, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, se.Status, true
	}
	return 0, "", false
}

type Client interface {
	Name() string
	Interpret(ctx context.Context, dream string) (string, error)
	Synthesize(ctx context.Context, text string) (Speech, error)
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// GeminiKey returns the Gemini credential, accepting the legacy API_KEY name.
func GeminiKey() string {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("API_KEY")
}

// New picks a provider from the environment. provider forces one; empty
// means Gemini when its key is set, otherwise OpenAI.
func New(provider string, hc *http.Client) (Client, error) {
	geminiKey := GeminiKey()
	openaiKey := os.Getenv("OPENAI_API_KEY")

	switch strings.ToLower(provider) {
	case "":
	case ProviderGemini:
		if geminiKey == "" {
			return nil, fmt.Errorf("provider gemini requires GEMINI_API_KEY")
		}
		return NewGemini(context.Background(), geminiKey, hc)
	case ProviderOpenAI:
		if openaiKey == "" {
			return nil, fmt.Errorf("provider openai requires OPENAI_API_KEY")
		}
		return NewOpenAI(openaiKey, hc), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini or openai)", provider)
	}

	if geminiKey != "" {
		return NewGemini(context.Background(), geminiKey, hc)
	}
	if openaiKey != "" {
		return NewOpenAI(openaiKey, hc), nil
	}
	return nil, fmt.Errorf("set GEMINI_API_KEY or OPENAI_API_KEY environment variable")
}

// NewHTTPClient returns the client every provider shares, routed through a
// TracedTransport reporting to onMetrics.
func NewHTTPClient(onMetrics func(*NetworkMetrics)) *http.Client {
	return &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &TracedTransport{
			Base: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			OnMetrics: onMetrics,
		},
	}
}
