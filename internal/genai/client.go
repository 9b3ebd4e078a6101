// Package genai wraps the Gemini generative-language API behind the
// answer-generation contract used by the RAG pipeline.
package genai

import (
	"context"
	"errors"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/safecampus/sentra/internal/domain"
)

const (
	// DefaultModel is the Gemini model used for answer generation.
	DefaultModel = "gemini-2.0-flash"
	// DefaultTimeout bounds a single generation call.
	DefaultTimeout = 30 * time.Second
	// DefaultTemperature keeps answers factual and low-variance.
	DefaultTemperature float32 = 0.3
	// DefaultMaxOutputTokens bounds answer length.
	DefaultMaxOutputTokens int32 = 1024
)

// ErrEmptyPrompt is returned when the prompt is empty.
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// GenerateAPI defines the provider call for answer generation.
type GenerateAPI interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
}

// Client wraps the Gemini API with a timeout and converts provider
// failures (errors, timeouts, blocked or empty completions) into domain
// errors so the orchestrator can degrade instead of surfacing them.
type Client struct {
	api     GenerateAPI
	timeout time.Duration
}

// GeminiAdapter issues GenerateContent calls against the real API.
type GeminiAdapter struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
}

type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Timeout         time.Duration
}

func NewGeminiAdapter(ctx context.Context, cfg Config) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}

	return &GeminiAdapter{
		client:          client,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxTokens,
	}, nil
}

// GenerateContent calls the Gemini API with a system instruction and a
// user prompt, returning the completion text.
func (a *GeminiAdapter) GenerateContent(ctx context.Context, system, prompt string) (string, error) {
	temperature := a.temperature
	generateCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
		Temperature:     &temperature,
		MaxOutputTokens: a.maxOutputTokens,
	}

	result, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), generateCfg)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errors.New("no completion returned")
	}

	return result.Text(), nil
}

// NewClient creates a generation client backed by the Gemini API.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	adapter, err := NewGeminiAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{api: adapter, timeout: timeout}, nil
}

// NewClientWithAPI creates a client around an explicit GenerateAPI.
func NewClientWithAPI(api GenerateAPI, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{api: api, timeout: timeout}
}

// Generate produces a completion for the given system instruction and
// prompt. A blocked or empty completion is a provider failure, not a
// valid answer.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.api.GenerateContent(callCtx, system, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeProviderTimeout, "generation call timed out", err)
		}
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeProviderUnavailable, "failed to generate completion", err)
	}

	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyCompletion
	}

	return text, nil
}
