// Package synthesis writes clarification questions and final answers.
package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/alpine-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/alpine-guide/internal/api/poicontext"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const (
	ApologyMessage       = "Désolé, je rencontre un problème pour générer la réponse. Pouvez-vous reformuler votre demande ?"
	NotUnderstoodMessage = "Je ne suis pas sûr de comprendre. Pouvez-vous reformuler votre demande ?"
	MapLinksPlaceholder  = "Liens cartographiques non disponibles"

	maxClarificationExamples = 3
)

type Request struct {
	Intent    *types.Intent
	Slots     map[string]string
	Analysis  poicontext.Analysis
	Weather   *types.WeatherPayload
	Water     *types.WaterTemperature
	Territory string
}

type Response struct {
	Message  string
	Cards    []types.POICard
	Provider string
	// Degraded is set when no provider answered and Message is the apology.
	Degraded bool
}

type Synthesizer struct {
	nlu    generativeAI.Generator
	logger *slog.Logger
}

func NewSynthesizer(nlu generativeAI.Generator, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{nlu: nlu, logger: logger}
}

// Clarify asks for a single missing slot. The slot examples, if any, are
// appended to the provider's question; a static question is used when no
// provider answers.
func (s *Synthesizer) Clarify(ctx context.Context, intent *types.Intent, slot types.Slot, filled map[string]string) string {
	ctx, span := otel.Tracer("Synthesizer").Start(ctx, "Clarify", trace.WithAttributes(
		attribute.String("intent", intent.Name),
		attribute.String("slot", slot.Name),
	))
	defer span.End()

	ans, err := s.nlu.Generate(ctx, buildClarificationPrompt(intent, slot, filled), nil)
	if err != nil {
		s.logger.WarnContext(ctx, "Clarification generation failed, using static question",
			slog.String("slot", slot.Name), slog.Any("error", err))
		span.RecordError(err)
		return FallbackQuestion(slot)
	}

	question := ans.Text
	if len(slot.Examples) > 0 {
		examples := slot.Examples
		if len(examples) > maxClarificationExamples {
			examples = examples[:maxClarificationExamples]
		}
		question += "\n\nPar exemple : " + strings.Join(examples, ", ")
	}
	return question
}

// FallbackQuestion is the provider-free clarification for slot.
func FallbackQuestion(slot types.Slot) string {
	desc := strings.TrimSpace(slot.Description)
	if desc == "" {
		desc = strings.ReplaceAll(slot.Name, "_", " ")
	}
	return fmt.Sprintf("Pouvez-vous préciser %s ?", strings.ToLower(desc))
}

// Compose renders the final answer. It always returns a message; when every
// provider fails the message is the apology and Degraded is set.
func (s *Synthesizer) Compose(ctx context.Context, req Request) Response {
	ctx, span := otel.Tracer("Synthesizer").Start(ctx, "Compose", trace.WithAttributes(
		attribute.String("intent", req.Intent.Name),
		attribute.String("template", string(req.Analysis.Template)),
		attribute.Int("pois.count", len(req.Analysis.POIs)),
	))
	defer span.End()

	cards := BuildCards(req.Analysis)
	ans, err := s.nlu.Generate(ctx, buildResponsePrompt(req, cards), nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Response generation failed on every provider",
			slog.String("intent", req.Intent.Name), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return Response{Message: ApologyMessage, Cards: cards, Degraded: true}
	}

	message := ans.Text
	if len(req.Analysis.Warnings) > 0 && !containsAll(message, req.Analysis.Warnings) {
		message += "\n\n" + strings.Join(req.Analysis.Warnings, "\n")
	}
	s.logger.InfoContext(ctx, "Response generated",
		slog.String("intent", req.Intent.Name),
		slog.String("provider", ans.Provider),
		slog.Bool("fell_back", ans.FellBack),
		slog.Int("length", len(message)))
	return Response{Message: message, Cards: cards, Provider: ans.Provider}
}

// BuildCards turns classified POIs into render-ready cards. Links are
// copied from the record as is, dropped for events, and replaced by the
// placeholder when the record has none.
func BuildCards(a poicontext.Analysis) []types.POICard {
	cards := make([]types.POICard, 0, len(a.POIs))
	for _, c := range a.POIs {
		card := types.POICard{
			ID:          c.POI.ID,
			Name:        c.POI.Name,
			Type:        c.POI.Type,
			Description: c.POI.Description,
			Address:     c.POI.Address,
			Category:    c.Category,
			Warning:     c.Warning,
		}
		switch {
		case c.Category == types.CategoryEvent:
		case c.POI.MapLinks.HasLinks():
			links := *c.POI.MapLinks
			card.MapLinks = &links
		default:
			card.MapLinksPlaceholder = MapLinksPlaceholder
		}
		cards = append(cards, card)
	}
	return cards
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
