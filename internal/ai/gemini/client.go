// Package gemini implements the AI gateway on top of the Google GenAI API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spigell/cv-shortlister/internal/ai"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	// Model used when discovery fails or yields nothing.
	defaultModel = "gemini-1.5-flash"

	// Capability a model must advertise to be selectable.
	generateAction = "generateContent"

	defaultMaxAttempts = 3

	minBackoff = 4 * time.Second
	maxBackoff = 10 * time.Second
)

// Stubbed in tests to avoid real backoff delays.
var sleep = time.Sleep

// modelAPI is the slice of the GenAI SDK the generator needs. *genai.Models
// satisfies it; tests plug in fakes.
type modelAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	All(ctx context.Context) iter.Seq2[*genai.Model, error]
}

// Generator wraps the Google GenAI client with credential validation, model
// discovery and quota-aware retry.
type Generator struct {
	models      modelAPI
	configured  string
	maxAttempts int
	logger      *zap.Logger

	mu       sync.Mutex
	resolved string
}

// NewGenerator creates a Generator for the Gemini API backend. When model is
// empty the first discovered model supporting content generation is used,
// falling back to gemini-1.5-flash. maxAttempts <= 0 selects the default of 3.
func NewGenerator(ctx context.Context, apiKey, model string, maxAttempts int, logger *zap.Logger) (*Generator, error) {
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

	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:      client.Models,
		configured:  strings.TrimSpace(model),
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// ValidateKey reports whether the configured key can list models. Performed
// before any generation call; a false result short-circuits extraction.
func (g *Generator) ValidateKey(ctx context.Context) bool {
	available := make([]string, 0)
	for model, err := range g.models.All(ctx) {
		if err != nil {
			g.logger.Warn("invalid gemini api key or connectivity issue", zap.Error(err))
			return false
		}
		if model != nil && slices.Contains(model.SupportedActions, generateAction) {
			available = append(available, model.Name)
		}
	}

	g.logger.Debug("available models", zap.Strings("models", available))
	return true
}

// ResolveModel returns the model used for generation: the configured one, or
// the first discovered model advertising content generation. The discovery
// result is cached for the lifetime of the generator, so concurrent
// extractions share a single lookup.
func (g *Generator) ResolveModel(ctx context.Context) string {
	if g.configured != "" {
		return g.configured
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved != "" {
		return g.resolved
	}

	for model, err := range g.models.All(ctx) {
		if err != nil {
			g.logger.Warn("listing models", zap.Error(err))
			break
		}
		if model == nil || !slices.Contains(model.SupportedActions, generateAction) {
			continue
		}

		// The API reports fully qualified names like "models/gemini-1.5-flash".
		name := model.Name
		if idx := strings.LastIndex(name, "/"); idx != -1 {
			name = name[idx+1:]
		}
		if name != "" {
			g.resolved = name
			break
		}
	}

	if g.resolved == "" {
		g.logger.Warn("no model supporting content generation discovered",
			zap.String("fallback", defaultModel),
		)
		g.resolved = defaultModel
	}

	g.logger.Debug("resolved gemini model", zap.String("model", g.resolved))
	return g.resolved
}

// GenerateContent sends the prompt to Gemini and returns the first textual
// response. Quota errors (HTTP 429) are retried with exponential backoff up
// to the attempt budget; any other error propagates immediately.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	model := g.ResolveModel(ctx)

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		output, err := g.generate(ctx, model, prompt)
		if err == nil {
			return output, nil
		}
		if !isQuotaError(err) {
			return "", err
		}

		lastErr = err
		if attempt == g.maxAttempts-1 {
			break
		}

		delay := backoff(attempt)
		g.logger.Warn("gemini quota exceeded, backing off",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", g.maxAttempts),
		)

		if err := wait(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %d attempts: %v", ai.ErrQuotaExceeded, g.maxAttempts, lastErr)
}

func (g *Generator) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
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

// isQuotaError classifies provider rate-limiting. The SDK surfaces it as an
// APIError with code 429; wrapped transports may only carry it in the message.
func isQuotaError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}

	return strings.Contains(err.Error(), "429")
}

// backoff doubles per attempt, clamped to the [4s, 10s] window.
func backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * time.Second
	if d < minBackoff {
		d = minBackoff
	}
	if d > maxBackoff {
		d = maxBackoff
	}

	return d
}

// wait blocks for d or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
