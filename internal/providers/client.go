// Package providers wraps the external speech-to-text, text-to-speech
// and reasoning services behind narrow request/response contracts.
// Results are cached on disk keyed by job id so repeat calls never pay
// the provider twice.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const chatModel = "gpt-4o"

// Client talks to the external providers. The zero API key case is
// detected before any network call.
type Client struct {
	openaiKey     string
	elevenLabsKey string
	processingDir string
	tmpDir        string
	timeout       time.Duration
	prober        AudioProber
	logger        *slog.Logger
}

// AudioProber measures the duration of an audio file. Satisfied by
// media.Tool.
type AudioProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

type Options struct {
	OpenAIKey     string
	ElevenLabsKey string
	ProcessingDir string
	TmpDir        string
	Timeout       time.Duration
	Prober        AudioProber
	Logger        *slog.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Client{
		openaiKey:     opts.OpenAIKey,
		elevenLabsKey: opts.ElevenLabsKey,
		processingDir: opts.ProcessingDir,
		tmpDir:        opts.TmpDir,
		timeout:       opts.Timeout,
		prober:        opts.Prober,
		logger:        opts.Logger,
	}
}

func (c *Client) api() (openai.Client, error) {
	if strings.TrimSpace(c.openaiKey) == "" {
		return openai.Client{}, fmt.Errorf("%w: OPENAI_API_KEY not set", ErrMissingCredential)
	}
	return openai.NewClient(option.WithAPIKey(c.openaiKey)), nil
}

// Complete runs one chat completion and returns the raw assistant
// message content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := c.api()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       chatModel,
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", ErrProvider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", ErrProvider)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: chat completion returned empty content", ErrProvider)
	}
	return content, nil
}
