package transcription

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient transcribes through an OpenAI-compatible
// /audio/transcriptions endpoint.
type OpenAIClient struct {
	client    openai.Client
	model     string
	semaphore chan struct{}
}

// NewOpenAIClient creates a client for model. An empty Endpoint uses the
// public OpenAI API; otherwise it is treated as the base URL of a
// compatible server.
func NewOpenAIClient(config Config, model string) (*OpenAIClient, error) {
	if config.APIKey == "" && config.Endpoint == "" {
		return nil, fmt.Errorf("api key is required for the OpenAI API")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
		option.WithMaxRetries(max(config.MaxRetries, 0)),
	}
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(config.Endpoint))
	}

	return &OpenAIClient{
		client:    openai.NewClient(opts...),
		model:     model,
		semaphore: make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Name identifies the backend in logs.
func (c *OpenAIClient) Name() string {
	return "openai:" + c.model
}

// Transcribe requests a verbose_json transcription so segment
// probabilities are available.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, language string) (*Transcript, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
		Model:          openai.AudioModel(c.model),
		Language:       openai.String(language),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription failed: %w", err)
	}

	return parseVerboseJSON([]byte(resp.RawJSON()))
}
