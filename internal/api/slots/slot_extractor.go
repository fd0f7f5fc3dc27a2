// Package slots extracts slot values from utterances and derives the ones
// implied by the conversation context.
package slots

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	"github.com/FACorreiaa/alpine-guide/internal/api/decoder"
	generativeAI "github.com/FACorreiaa/alpine-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

type Extractor struct {
	nlu    generativeAI.Generator
	cache  *cache.Manager
	logger *slog.Logger
}

// NewExtractor builds an extractor. cacheManager may be nil.
func NewExtractor(nlu generativeAI.Generator, cacheManager *cache.Manager, logger *slog.Logger) *Extractor {
	return &Extractor{nlu: nlu, cache: cacheManager, logger: logger}
}

// Extract returns the slots explicitly present in the utterance. Provider
// and parse failures fall through to the keyword matcher; the result is
// never nil and never contains slots the intent does not declare.
func (e *Extractor) Extract(ctx context.Context, utterance string, intent *types.Intent, history []types.HistoryEntry, turnCtx types.TurnContext) map[string]string {
	if intent == nil || len(intent.Slots) == 0 {
		return map[string]string{}
	}
	ctx, span := otel.Tracer("SlotExtractor").Start(ctx, "Extract", trace.WithAttributes(
		attribute.String("intent", intent.Name),
	))
	defer span.End()

	var key string
	if e.cache != nil {
		key = e.cache.SlotsKey(utterance, intent.Name, history)
		var cached map[string]string
		if e.cache.GetJSON(ctx, key, &cached) {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return restrictToIntent(cached, intent)
		}
	}

	accept := func(text string) error { return decoder.Decode(text).Err() }
	ans, err := e.nlu.Generate(ctx, buildExtractionPrompt(utterance, intent, history, turnCtx), accept)
	if err != nil {
		found := KeywordSlots(utterance, intent)
		e.logger.WarnContext(ctx, "Slot extraction failed on every provider, using keyword matcher",
			slog.String("intent", intent.Name), slog.Int("found", len(found)), slog.Any("error", err))
		span.SetAttributes(attribute.Bool("slots.keyword_fallback", true))
		return found
	}

	found := restrictToIntent(decoder.Decode(ans.Text).Values(), intent)
	e.logger.InfoContext(ctx, "Slots extracted",
		slog.String("intent", intent.Name), slog.String("provider", ans.Provider), slog.Any("slots", found))
	span.SetAttributes(attribute.Int("slots.count", len(found)))
	if e.cache != nil {
		e.cache.SetJSON(ctx, key, found, e.cache.TTL(cache.CategorySlotExtraction))
	}
	return found
}

func restrictToIntent(values map[string]string, intent *types.Intent) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if intent.HasSlot(k) && v != "" {
			out[k] = v
		}
	}
	return out
}
