package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"keep_up_backend/internal/config"
	"keep_up_backend/internal/model"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const (
	defaultGeminiModel = "gemini-2.5-flash"
	defaultTimeout     = 60 * time.Second
	defaultRatePerSec  = 1.0
	defaultBurst       = 2
)

// GeminiGenerator calls the Gemini API. One client is shared by all calls.
type GeminiGenerator struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	call       func(ctx context.Context, prompt string) (string, error)
	logger     *slog.Logger
}

// NewGeminiGenerator creates the client. The caller owns Close.
func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig, logger *slog.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	m := client.GenerativeModel(name)
	m.SetTemperature(cfg.Temperature)
	m.ResponseMIMEType = "application/json"

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = defaultRatePerSec
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	g := &GeminiGenerator{
		client:     client,
		model:      m,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		timeout:    timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger,
	}
	g.call = g.generateOnce
	return g, nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Generate makes one call unless gemini.max_retries opts into more. A failure
// fails only this request; callers decide whether to try again later.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", model.ErrGenerationFailed, ctx.Err())
			case <-time.After(backoff):
			}
			g.logger.Warn("Retrying Gemini request", "attempt", attempt, "error", lastErr)
		}

		text, err := g.call(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %v", model.ErrGenerationFailed, lastErr)
}

func (g *GeminiGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	g.logger.Debug("Gemini response received", "elapsed", time.Since(start))

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := StripCodeFences(b.String())
	if text == "" {
		return "", errors.New("gemini response has no text parts")
	}
	return text, nil
}
