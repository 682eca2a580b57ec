package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"ocrscan/internal/logger"
)

// OpenAIConfig configures transcription with an OpenAI vision model.
type OpenAIConfig struct {
	APIKey  string
	Model   string // defaults to gpt-4o
	BaseURL string // optional, for compatible endpoints
}

const transcribePrompt = `Transcribe all text visible in this document image exactly as printed.
Keep the original line breaks and digits. Do not translate, summarize, or add commentary.
If the image contains no text, reply with an empty message.`

// OpenAIRecognizer implements Recognizer by asking a vision-capable chat
// model to transcribe the image. Each non-empty reply line becomes one
// segment without confidence.
type OpenAIRecognizer struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIRecognizer creates a recognizer for the configured model.
func NewOpenAIRecognizer(cfg OpenAIConfig) (*OpenAIRecognizer, error) {
	const op = "NewOpenAIRecognizer"

	if cfg.APIKey == "" {
		return nil, WrapOCRError(op, ErrMissingCredentials, "OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return NewOpenAIRecognizerWithClient(openai.NewClientWithConfig(clientConfig), cfg.Model), nil
}

// NewOpenAIRecognizerWithClient wraps an existing client (for testing).
func NewOpenAIRecognizerWithClient(client *openai.Client, model string) *OpenAIRecognizer {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIRecognizer{
		client: client,
		model:  model,
		log:    logger.WithComponent("ocr-openai"),
	}
}

// Name implements Recognizer.
func (o *OpenAIRecognizer) Name() string { return EngineOpenAI }

// Recognize implements Recognizer.
func (o *OpenAIRecognizer) Recognize(ctx context.Context, image []byte) ([]Segment, error) {
	const op = "OpenAIRecognize"

	format, err := checkInput(op, image, false)
	if err != nil {
		return nil, err
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", format, base64.StdEncoding.EncodeToString(image))
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: transcribePrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("chat completion failed: %v", err))
	}
	if len(resp.Choices) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response choices from model")
	}

	segments := lineSegments(resp.Choices[0].Message.Content)
	o.log.Debug().
		Str("model", o.model).
		Int("segments", len(segments)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("OpenAI transcription completed")

	return segments, nil
}

func lineSegments(content string) []Segment {
	var segments []Segment
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			segments = append(segments, Segment{Text: line})
		}
	}
	return segments
}

// Close implements Recognizer.
func (o *OpenAIRecognizer) Close() error { return nil }
