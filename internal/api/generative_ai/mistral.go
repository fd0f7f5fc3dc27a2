package generativeAI

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const (
	DefaultMistralBaseURL = "https://api.mistral.ai"
	DefaultMistralModel   = "mistral-small-latest"
	ProviderMistral       = "mistral"

	mistralMaxTokens   = 1000
	mistralTemperature = 0.3
)

var _ Provider = (*MistralProvider)(nil)

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralRequest struct {
	Model       string           `json:"model"`
	Messages    []mistralMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

type mistralResponse struct {
	Choices []struct {
		Message mistralMessage `json:"message"`
	} `json:"choices"`
}

type mistralError struct {
	Message string `json:"message"`
	Object  string `json:"object"`
}

// MistralProvider calls the Mistral chat completions endpoint.
type MistralProvider struct {
	client *resty.Client
	model  string
}

func NewMistralProvider(baseURL, apiKey, model string, timeout time.Duration) *MistralProvider {
	if baseURL == "" {
		baseURL = DefaultMistralBaseURL
	}
	if model == "" {
		model = DefaultMistralModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(apiKey)
	return &MistralProvider{client: client, model: model}
}

func (p *MistralProvider) Name() string { return ProviderMistral }

func (p *MistralProvider) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Mistral.Generate", trace.WithAttributes(
		attribute.String("llm.model", p.model),
		attribute.Int("llm.prompt_length", len(prompt)),
	))
	defer span.End()

	var out mistralResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(mistralRequest{
			Model:       p.model,
			Messages:    []mistralMessage{{Role: "user", Content: prompt}},
			MaxTokens:   mistralMaxTokens,
			Temperature: mistralTemperature,
		}).
		SetResult(&out).
		SetError(&mistralError{}).
		Post("/v1/chat/completions")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", fmt.Errorf("%w: mistral: %v", types.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		msg := resp.String()
		if apiErr, ok := resp.Error().(*mistralError); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		span.SetStatus(codes.Error, "api error")
		return "", fmt.Errorf("%w: mistral: status %d: %s", types.ErrProviderUnavailable, resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		span.SetStatus(codes.Error, "empty response")
		return "", fmt.Errorf("%w: mistral: empty response", types.ErrProviderUnavailable)
	}
	span.SetStatus(codes.Ok, "content generated")
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
