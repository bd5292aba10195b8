package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"
)

type fakeModels struct {
	mu        sync.Mutex
	responses []fakeResponse
	prompts   []string
	configs   []*genai.GenerateContentConfig
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(text string, err error) {
	var resp *genai.GenerateContentResponse
	if err == nil {
		resp = &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
			}},
		}
	}
	f.responses = append(f.responses, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompts = append(f.prompts, contents[0].Parts[0].Text)
	}
	f.configs = append(f.configs, config)
	if len(f.responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.resp, r.err
}

func TestGenerateContent_Success(t *testing.T) {
	models := &fakeModels{}
	models.enqueue("  1. Numerical Reasoning Test  ", nil)
	g := newGenerator(models, "")

	out, err := g.GenerateContent(context.Background(), "recommend something")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "1. Numerical Reasoning Test" {
		t.Errorf("output = %q", out)
	}
	if g.Model() != defaultModel {
		t.Errorf("model = %q", g.Model())
	}
	if models.prompts[0] != "recommend something" {
		t.Errorf("prompt = %q", models.prompts[0])
	}
	if c := models.configs[0]; c == nil || c.Temperature == nil || *c.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %+v", c)
	}
}

func TestGenerateContent_RetriesServerErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue("", genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"})
	models.enqueue("recovered", nil)
	g := newGenerator(models, "gemini-test", WithRetries(2, time.Millisecond))

	out, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "recovered" || len(models.prompts) != 2 {
		t.Errorf("out=%q calls=%d", out, len(models.prompts))
	}
}

func TestGenerateContent_GivesUp(t *testing.T) {
	models := &fakeModels{}
	for i := 0; i < 3; i++ {
		models.enqueue("", genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	}
	g := newGenerator(models, "gemini-test", WithRetries(2, time.Millisecond))
	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error after retries are exhausted")
	}
	if len(models.prompts) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(models.prompts))
	}
}

func TestGenerateContent_RateLimitNotRetried(t *testing.T) {
	models := &fakeModels{}
	models.enqueue("", genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"})
	g := newGenerator(models, "gemini-test", WithRetries(3, time.Millisecond))

	_, err := g.GenerateContent(context.Background(), "prompt")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(models.prompts) != 1 {
		t.Errorf("rate limit should not be retried, got %d calls", len(models.prompts))
	}
}

func TestGenerateContent_EmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue("   ", nil)
	g := newGenerator(models, "gemini-test")
	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Error("expected error for empty response")
	}
	if _, err := g.GenerateContent(context.Background(), "  "); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestNewGeminiGenerator_RequiresKey(t *testing.T) {
	if _, err := NewGeminiGenerator(context.Background(), " ", "m"); err == nil {
		t.Error("expected error without api key")
	}
}
