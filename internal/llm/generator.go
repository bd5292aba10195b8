// Package llm wraps the hosted generative model used to phrase recommendations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	retry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel       = "gemini-2.0-flash"
	defaultTemperature = 0.3
	defaultRetryDelay  = 2 * time.Second
)

// ErrRateLimited is returned when the model rejects a request for quota reasons.
var ErrRateLimited = errors.New("generative model rate limited")

// Generator turns a prompt into model text.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator calls Gemini through the Google GenAI client.
type GeminiGenerator struct {
	models      contentGenerator
	model       string
	temperature float32
	maxRetries  uint64
	retryDelay  time.Duration
	logger      *zap.Logger
}

// Option configures a GeminiGenerator.
type Option func(*GeminiGenerator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *GeminiGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(g *GeminiGenerator) { g.temperature = t }
}

// WithRetries sets how many times a temporary failure is retried and the fixed delay between tries.
func WithRetries(max int, delay time.Duration) Option {
	return func(g *GeminiGenerator) {
		if max >= 0 {
			g.maxRetries = uint64(max)
		}
		if delay > 0 {
			g.retryDelay = delay
		}
	}
}

// NewGeminiGenerator creates a generator for the Gemini API backend.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, opts ...Option) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGenerator(client.Models, model, opts...), nil
}

func newGenerator(models contentGenerator, model string, opts ...Option) *GeminiGenerator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	g := &GeminiGenerator{
		models:      models,
		model:       model,
		temperature: defaultTemperature,
		maxRetries:  2,
		retryDelay:  defaultRetryDelay,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateContent sends prompt to the model and returns the joined text parts of the
// response. Server errors are retried; rate limiting is returned as ErrRateLimited
// without retrying.
func (g *GeminiGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(g.temperature)}
	var output string
	attempt := 0
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewConstant(g.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			if isRateLimit(err) {
				return fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
			if isTemporary(err) {
				g.logger.Warn("gemini request failed, retrying",
					zap.Int("attempt", attempt),
					zap.Error(err))
				return retry.RetryableError(err)
			}
			return fmt.Errorf("generate content: %w", err)
		}
		text, err := responseText(resp)
		if err != nil {
			return err
		}
		output = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return output, nil
}

// Model returns the model name.
func (g *GeminiGenerator) Model() string {
	return g.model
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned no response")
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

func isRateLimit(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
