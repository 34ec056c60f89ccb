package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	OpenAITextModel   = openai.ChatModelGPT4oMini
	OpenAISpeechModel = openai.SpeechModelGPT4oMiniTTS
	OpenAIVoice       = openai.AudioSpeechNewParamsVoiceAlloy

	// openAIPCMMime describes the speech endpoint's pcm format.
	openAIPCMMime = "audio/L16;codec=pcm;rate=24000"
)

type OpenAI struct {
	client openai.Client
}

func NewOpenAI(apiKey string, hc *http.Client, opts ...option.RequestOption) *OpenAI {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if hc != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(hc))
	}
	return &OpenAI{client: openai.NewClient(append(reqOpts, opts...)...)}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status := apiErr.Code
		if status == "" {
			status = http.StatusText(apiErr.StatusCode)
		}
		return &StatusError{Code: apiErr.StatusCode, Status: status, Err: err}
	}
	return err
}

func (o *OpenAI) Interpret(ctx context.Context, dream string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: OpenAITextModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(dream),
		},
		Temperature: openai.Float(Temperature),
		TopP:        openai.Float(TopP),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInterpretation, openAIError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrInterpretation)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty response (finish reason %s)", ErrInterpretation, resp.Choices[0].FinishReason)
	}
	return text, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (Speech, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          OpenAISpeechModel,
		Voice:          OpenAIVoice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return Speech{}, fmt.Errorf("%w: %w", ErrSpeech, openAIError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Speech{}, fmt.Errorf("%w: read body: %w", ErrSpeech, err)
	}
	if len(data) == 0 {
		return Speech{}, fmt.Errorf("%w: no audio data returned", ErrSpeech)
	}
	return Speech{Data: data, MIMEType: openAIPCMMime}, nil
}
