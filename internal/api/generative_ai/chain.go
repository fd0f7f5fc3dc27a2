package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/alpine-guide/app/observability/metrics"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const DefaultCallTimeout = 20 * time.Second

// AcceptFunc validates a raw answer. A non-nil error makes the chain treat
// the answer like a provider failure.
type AcceptFunc func(text string) error

// Generator is what dialogue components depend on; Chain implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, accept AcceptFunc) (Answer, error)
}

var _ Generator = (*Chain)(nil)

type Answer struct {
	Text     string
	Provider string
	FellBack bool
}

// Chain sends a prompt to the primary provider and, on failure or timeout,
// once to the secondary with the identical prompt.
type Chain struct {
	primary   Provider
	secondary Provider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewChain builds a chain. secondary may be nil.
func NewChain(primary, secondary Provider, timeout time.Duration, logger *slog.Logger) *Chain {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{primary: primary, secondary: secondary, timeout: timeout, logger: logger}
}

func (c *Chain) Generate(ctx context.Context, prompt string, accept AcceptFunc) (Answer, error) {
	var errs []error
	for i, p := range []Provider{c.primary, c.secondary} {
		if p == nil {
			continue
		}
		text, err := c.call(ctx, p, prompt, accept)
		if err == nil {
			if i > 0 {
				metrics.Get().ProviderFallbacksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", p.Name())))
			}
			return Answer{Text: text, Provider: p.Name(), FellBack: i > 0}, nil
		}
		errs = append(errs, err)
		c.logger.WarnContext(ctx, "NLU provider call failed",
			slog.String("provider", p.Name()),
			slog.Bool("secondary", i > 0),
			slog.Any("error", err))
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return Answer{}, fmt.Errorf("%w: no provider configured", types.ErrProviderUnavailable)
	}
	return Answer{}, errors.Join(errs...)
}

func (c *Chain) call(ctx context.Context, p Provider, prompt string, accept AcceptFunc) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := p.Generate(callCtx, prompt)
	outcome := "ok"
	defer func() {
		metrics.Get().ProviderCallsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", p.Name()),
			attribute.String("outcome", outcome),
		))
	}()

	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if err != nil {
		outcome = "error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		if !errors.Is(err, types.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %s: %v", types.ErrProviderUnavailable, p.Name(), err)
		}
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		outcome = "empty"
		return "", fmt.Errorf("%w: %s: empty response", types.ErrProviderUnavailable, p.Name())
	}
	if accept != nil {
		if err := accept(text); err != nil {
			outcome = "rejected"
			return "", fmt.Errorf("%s: answer rejected: %w", p.Name(), err)
		}
	}
	return text, nil
}
