// Package intent resolves an utterance to one intent of the catalog.
package intent

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	generativeAI "github.com/FACorreiaa/alpine-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

type Classifier struct {
	nlu    generativeAI.Generator
	cache  *cache.Manager
	logger *slog.Logger
}

// NewClassifier builds a classifier. cacheManager may be nil.
func NewClassifier(nlu generativeAI.Generator, cacheManager *cache.Manager, logger *slog.Logger) *Classifier {
	return &Classifier{nlu: nlu, cache: cacheManager, logger: logger}
}

// Classify never fails: unknown answers and provider outages resolve to the
// catalog's fallback intent. It returns nil only when the catalog offers
// nothing to fall back on.
func (c *Classifier) Classify(ctx context.Context, utterance string, catalog *types.IntentCatalog, turnCtx types.TurnContext) *types.Intent {
	ctx, span := otel.Tracer("IntentClassifier").Start(ctx, "Classify", trace.WithAttributes(
		attribute.Int("catalog.size", catalog.Len()),
	))
	defer span.End()

	if catalog.Len() == 0 {
		c.logger.WarnContext(ctx, "Intent catalog is empty")
		return nil
	}
	fallback := catalog.Fallback()

	var key string
	if c.cache != nil {
		key = c.cache.IntentKey(utterance, turnCtx.Territory)
		var cached string
		if c.cache.GetJSON(ctx, key, &cached) {
			if in, ok := catalog.Lookup(cached); ok {
				span.SetAttributes(attribute.Bool("cache.hit", true), attribute.String("intent", in.Name))
				return in
			}
		}
	}

	ans, err := c.nlu.Generate(ctx, buildClassificationPrompt(utterance, catalog, turnCtx), nil)
	if err != nil {
		c.logger.WarnContext(ctx, "Intent detection failed on every provider, using fallback intent", slog.Any("error", err))
		span.SetAttributes(attribute.Bool("intent.fallback", true))
		return fallback
	}

	name := NormalizeIntentName(ans.Text)
	in, ok := catalog.Lookup(name)
	if !ok {
		c.logger.WarnContext(ctx, "Unknown intent returned by provider, using fallback intent",
			slog.String("answer", ans.Text), slog.String("provider", ans.Provider))
		span.SetAttributes(attribute.Bool("intent.fallback", true))
		return fallback
	}

	c.logger.InfoContext(ctx, "Intent detected", slog.String("intent", in.Name), slog.String("provider", ans.Provider))
	span.SetAttributes(attribute.String("intent", in.Name), attribute.String("llm.provider", ans.Provider))
	if c.cache != nil {
		c.cache.SetJSON(ctx, key, in.Name, c.cache.TTL(cache.CategoryIntentDetection))
	}
	return in
}

var nameTrimmer = strings.NewReplacer(`"`, "", "'", "", "`", "", "*", "")

// NormalizeIntentName case-folds and trims a provider answer, dropping
// quotes, markdown emphasis, an "intent:" label and trailing punctuation.
func NormalizeIntentName(answer string) string {
	s := strings.TrimSpace(answer)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(nameTrimmer.Replace(s))
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "intent:"))
	return strings.TrimRight(s, " .!?;:,")
}
