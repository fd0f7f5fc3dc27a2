package dialogue

import (
	"context"
	"log/slog"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/alpine-guide/internal/api/poi"
	"github.com/FACorreiaa/alpine-guide/internal/api/poicontext"
	"github.com/FACorreiaa/alpine-guide/internal/api/slots"
	"github.com/FACorreiaa/alpine-guide/internal/api/synthesis"
	"github.com/FACorreiaa/alpine-guide/internal/api/weather"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

// cachedAnswer is the value stored under a response key.
type cachedAnswer struct {
	Message  string          `json:"message"`
	Cards    []types.POICard `json:"pois,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Cached   bool            `json:"-"`
}

type enrichment struct {
	pois    []types.POI
	weather *types.WeatherPayload
	water   *types.WaterTemperature
}

// answer returns the final message for a fully slotted intent, from the
// response cache when possible.
func (o *Orchestrator) answer(ctx context.Context, intent *types.Intent, filled map[string]string, territory string) cachedAnswer {
	var key string
	if o.deps.Cache != nil {
		key = o.deps.Cache.ResponseKey(intent.Name, responseKeySlots(intent.Name, filled), territory)
		var hit cachedAnswer
		if o.deps.Cache.GetJSON(ctx, key, &hit) {
			hit.Cached = true
			return hit
		}
	}

	data := o.enrich(ctx, intent, filled, territory)
	analysis := poicontext.Classify(intent.Name, data.pois, o.opts.Now())
	resp := o.deps.Synthesizer.Compose(ctx, synthesis.Request{
		Intent:    intent,
		Slots:     filled,
		Analysis:  analysis,
		Weather:   data.weather,
		Water:     data.water,
		Territory: territory,
	})

	out := cachedAnswer{Message: resp.Message, Cards: resp.Cards, Warnings: analysis.Warnings}
	if o.deps.Cache != nil && !resp.Degraded {
		o.deps.Cache.SetJSON(ctx, key, out, o.deps.Cache.TTL(intent.TTLCategory()))
	}
	return out
}

// responseKeySlots adds what the date slots decide upstream, so current
// conditions and forecasts never share a response key.
func responseKeySlots(intentName string, filled map[string]string) map[string]string {
	kind := weather.FetchKind(intentName, filled)
	if kind == "" {
		return filled
	}
	out := maps.Clone(filled)
	if out == nil {
		out = map[string]string{}
	}
	out["weather_kind"] = kind
	return out
}

// enrich gathers POIs, weather and water temperature concurrently. Each
// source is optional; a failing source is logged and left empty.
func (o *Orchestrator) enrich(ctx context.Context, intent *types.Intent, filled map[string]string, territory string) enrichment {
	ctx, span := otel.Tracer("Dialogue").Start(ctx, "Enrich")
	defer span.End()

	var out enrichment
	g, gctx := errgroup.WithContext(ctx)

	if o.deps.POIs != nil && poi.NeedsPOIs(intent.Name) {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, o.opts.FetchTimeout)
			defer cancel()
			pois, err := o.deps.POIs.ForIntent(fctx, territory, intent.Name, filled)
			if err != nil {
				o.logger.WarnContext(ctx, "POI lookup failed, answering without POIs",
					slog.String("intent", intent.Name), slog.String("territory", territory), slog.Any("error", err))
				return nil
			}
			out.pois = pois
			return nil
		})
	}

	if o.deps.Weather != nil {
		name := slots.TerritoryDisplayName(territory)
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, o.opts.FetchTimeout)
			defer cancel()
			w, err := o.deps.Weather.WeatherFor(fctx, intent.Name, filled, name)
			if err != nil {
				o.logger.WarnContext(ctx, "Weather lookup failed", slog.String("intent", intent.Name), slog.Any("error", err))
				return nil
			}
			out.weather = w
			return nil
		})
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, o.opts.FetchTimeout)
			defer cancel()
			w, err := o.deps.Weather.WaterFor(fctx, intent.Name, filled, territory)
			if err != nil {
				o.logger.WarnContext(ctx, "Water temperature lookup failed", slog.String("intent", intent.Name), slog.Any("error", err))
				return nil
			}
			out.water = w
			return nil
		})
	}

	_ = g.Wait()
	span.SetAttributes(
		attribute.Int("pois.count", len(out.pois)),
		attribute.Bool("weather", out.weather != nil),
		attribute.Bool("water", out.water != nil),
	)
	return out
}
