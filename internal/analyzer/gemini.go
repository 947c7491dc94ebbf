package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"stage-scanner/internal/model"
)

// GeminiOptions parameterise the Gemini vision classifier.
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Gemini implements Classifier against the Gemini API.
type Gemini struct {
	opts   GeminiOptions
	client *genai.Client
	logger zerolog.Logger
}

// NewGemini builds the classifier client.
func NewGemini(ctx context.Context, opts GeminiOptions, logger zerolog.Logger) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("analyzer: gemini api key required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: init genai client: %w", err)
	}

	return &Gemini{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "gemini_analyzer").Logger(),
	}, nil
}

// Classify sends the chart images plus technical context and parses the JSON
// verdict. The verdict is validated before it is returned; anything that
// fails validation surfaces as ErrInvalidResponse.
func (g *Gemini) Classify(ctx context.Context, req Request) (*model.ExternalVerdict, error) {
	if len(req.Charts) == 0 {
		return nil, fmt.Errorf("analyzer: at least one chart artifact required")
	}

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	parts := make([]*genai.Part, 0, len(req.Charts)+1)
	for _, png := range req.Charts {
		parts = append(parts, genai.NewPartFromBytes(png, "image/png"))
	}
	parts = append(parts, genai.NewPartFromText(buildPrompt(req.Ticker, req.Context)))

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.opts.Temperature),
		ResponseMIMEType: "application/json",
	}

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.opts.Model, contents, config)
	if err != nil {
		return nil, g.classifyError(req.Ticker, err)
	}

	text := strings.TrimSpace(resp.Text())
	verdict, err := ParseVerdict(text)
	if err != nil {
		g.logger.Warn().Err(err).Str("ticker", req.Ticker).Msg("verdict rejected")
		return nil, err
	}

	g.logger.Info().
		Str("ticker", req.Ticker).
		Int("confidence", int(verdict.ConfidenceScore)).
		Bool("raw_bullish", verdict.RawBullishSignal).
		Dur("duration", time.Since(started)).
		Msg("analysis complete")

	return verdict, nil
}

// ParseVerdict decodes and validates the raw JSON verdict text.
func ParseVerdict(text string) (*model.ExternalVerdict, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty response body", ErrInvalidResponse)
	}
	var verdict model.ExternalVerdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := verdict.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return &verdict, nil
}

// classifyError maps transport errors onto the analyzer taxonomy so the
// orchestrator can pick the right retry policy.
func (g *Gemini) classifyError(ticker string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			g.logger.Warn().Str("ticker", ticker).Msg("gemini rate limit hit")
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
		return fmt.Errorf("analyzer: gemini api error (%d): %s", apiErr.Code, apiErr.Message)
	}
	if strings.Contains(err.Error(), "429") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("analyzer: generate content for %s: %w", ticker, err)
}

var _ Classifier = (*Gemini)(nil)
