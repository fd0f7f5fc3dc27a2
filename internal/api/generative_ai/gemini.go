package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	ProviderGemini     = "gemini"
)

var _ Provider = (*GeminiProvider)(nil)

type GeminiProvider struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, temperature float32) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_GEMINI_API_KEY is not set", types.ErrConfiguration)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiProvider{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](temperature)},
	}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Gemini.Generate", trace.WithAttributes(
		attribute.String("llm.model", p.model),
		attribute.Int("llm.prompt_length", len(prompt)),
	))
	defer span.End()

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), p.config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return "", fmt.Errorf("%w: gemini: %v", types.ErrProviderUnavailable, err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		err := errors.New("empty response")
		span.RecordError(err)
		span.SetStatus(codes.Error, "empty response")
		return "", fmt.Errorf("%w: gemini: %v", types.ErrProviderUnavailable, err)
	}
	span.SetAttributes(attribute.Int("llm.response_length", len(text)))
	span.SetStatus(codes.Ok, "content generated")
	return text, nil
}
