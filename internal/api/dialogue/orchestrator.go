// Package dialogue runs the per-turn conversation state machine.
package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/app/observability/metrics"
	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	"github.com/FACorreiaa/alpine-guide/internal/api/session"
	"github.com/FACorreiaa/alpine-guide/internal/api/slots"
	"github.com/FACorreiaa/alpine-guide/internal/api/synthesis"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const (
	TechnicalErrorMessage = "Désolé, je rencontre un problème technique. Pouvez-vous reformuler votre demande ?"
	InvalidContextMessage = "Le contexte de la requête est invalide."

	// DefaultFetchTimeout bounds each repository and weather call.
	DefaultFetchTimeout = 20 * time.Second
	defaultTerritory    = "annecy"
)

type IntentClassifier interface {
	Classify(ctx context.Context, utterance string, catalog *types.IntentCatalog, turnCtx types.TurnContext) *types.Intent
}

type SlotExtractor interface {
	Extract(ctx context.Context, utterance string, intent *types.Intent, history []types.HistoryEntry, turnCtx types.TurnContext) map[string]string
}

type ResponseSynthesizer interface {
	Clarify(ctx context.Context, intent *types.Intent, slot types.Slot, filled map[string]string) string
	Compose(ctx context.Context, req synthesis.Request) synthesis.Response
}

type POISource interface {
	ForIntent(ctx context.Context, territorySlug, intentName string, slots map[string]string) ([]types.POI, error)
}

type WeatherSource interface {
	WeatherFor(ctx context.Context, intentName string, slots map[string]string, territoryName string) (*types.WeatherPayload, error)
	WaterFor(ctx context.Context, intentName string, slots map[string]string, territory string) (*types.WaterTemperature, error)
}

// Dependencies wires the orchestrator. Cache, POIs and Weather may be nil.
type Dependencies struct {
	Catalog     *types.IntentCatalog
	Sessions    session.Store
	Classifier  IntentClassifier
	Extractor   SlotExtractor
	Synthesizer ResponseSynthesizer
	Cache       *cache.Manager
	POIs        POISource
	Weather     WeatherSource
}

type Options struct {
	HistoryCap   int
	FetchTimeout time.Duration
	Now          func() time.Time
}

type Orchestrator struct {
	deps   Dependencies
	opts   Options
	locks  *sessionLocks
	logger *slog.Logger
}

func NewOrchestrator(deps Dependencies, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = types.DefaultHistoryCap
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{deps: deps, opts: opts, locks: newSessionLocks(), logger: logger}
}

// ProcessTurn advances the conversation of sessionID by one user message.
// It never returns nil and never fails: every error surfaces as a result
// with status error, in which case the stored state is left untouched.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, utterance string, turnCtx types.TurnContext) *types.TurnResult {
	start := o.opts.Now()
	ctx, span := otel.Tracer("Dialogue").Start(ctx, "ProcessTurn", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("territory", turnCtx.Territory),
	))
	defer span.End()

	result := o.process(ctx, sessionID, utterance, turnCtx)
	result.ResponseTimeMs = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.String("turn.status", string(result.Status)),
		attribute.String("intent", result.Intent),
		attribute.Bool("turn.cached", result.Cached),
	)
	if result.Status == types.StatusError {
		span.SetStatus(codes.Error, result.Message)
	}
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("status", string(result.Status)), attribute.String("intent", result.Intent))
	m.TurnsTotal.Add(ctx, 1, attrs)
	m.TurnDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	return result
}

func (o *Orchestrator) process(ctx context.Context, sessionID, utterance string, turnCtx types.TurnContext) (result *types.TurnResult) {
	turnID := uuid.New()
	if sessionID == "" {
		return errorResult(turnID, sessionID, InvalidContextMessage)
	}
	if err := turnCtx.Validate(); err != nil {
		o.logger.WarnContext(ctx, "Rejected turn with invalid context", slog.String("session_id", sessionID), slog.Any("error", err))
		return errorResult(turnID, sessionID, InvalidContextMessage)
	}

	unlock := o.locks.lock(sessionID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			o.logger.ErrorContext(ctx, "Recovered from panic while processing turn",
				slog.String("session_id", sessionID), slog.Any("panic", r))
			result = errorResult(turnID, sessionID, TechnicalErrorMessage)
		}
	}()

	state, writable := o.loadState(ctx, sessionID, turnCtx)
	result = o.advance(ctx, state, utterance)
	result.TurnID = turnID
	if !writable {
		// Stored state was unreadable; leave it as it is.
		return result
	}
	if err := o.deps.Sessions.Put(ctx, state); err != nil {
		o.logger.ErrorContext(ctx, "Failed to store session state", slog.String("session_id", sessionID), slog.Any("error", err))
	}
	return result
}

// loadState returns a scratch copy of the stored state, or a fresh one.
// writable is false when the store failed to answer, in which case the turn
// must not be persisted.
func (o *Orchestrator) loadState(ctx context.Context, sessionID string, turnCtx types.TurnContext) (state *types.ConversationState, writable bool) {
	stored, err := o.deps.Sessions.Get(ctx, sessionID)
	switch {
	case err == nil:
		state = stored.Clone()
		state.Context = state.Context.Merge(turnCtx)
		return state, true
	case errors.Is(err, types.ErrSessionNotFound):
		writable = true
	default:
		o.logger.WarnContext(ctx, "Session store unavailable, answering without stored state",
			slog.String("session_id", sessionID), slog.Any("error", err))
	}
	if turnCtx.Territory == "" {
		turnCtx.Territory = defaultTerritory
	}
	return types.NewConversationState(sessionID, turnCtx), writable
}

func (o *Orchestrator) advance(ctx context.Context, state *types.ConversationState, utterance string) *types.TurnResult {
	prior := state.RecentHistory(o.opts.HistoryCap)
	o.appendHistory(state, types.RoleUser, utterance)

	intent := o.activeIntent(ctx, state)
	if intent == nil {
		intent = o.deps.Classifier.Classify(ctx, utterance, o.deps.Catalog, state.Context)
		if intent == nil {
			o.logger.WarnContext(ctx, "No intent available for utterance", slog.String("session_id", state.SessionID))
			o.appendHistory(state, types.RoleAssistant, synthesis.NotUnderstoodMessage)
			state.Phase = types.PhaseAwaitingIntent
			return &types.TurnResult{
				SessionID: state.SessionID,
				Status:    types.StatusResponse,
				Message:   synthesis.NotUnderstoodMessage,
				Complete:  true,
				State:     state,
			}
		}
		state.IntentName = intent.Name
		state.FilledSlots = map[string]string{}
	}
	state.Phase = types.PhaseAwaitingSlots

	for k, v := range o.deps.Extractor.Extract(ctx, utterance, intent, prior, state.Context) {
		if v != "" {
			state.FilledSlots[k] = v
		}
	}
	state.FilledSlots = slots.AutoFill(intent, state.FilledSlots, state.Context)

	if missing := intent.MissingRequired(state.FilledSlots); len(missing) > 0 {
		question := o.deps.Synthesizer.Clarify(ctx, intent, intent.Slots[missing[0]], state.FilledSlots)
		o.appendHistory(state, types.RoleAssistant, question)
		o.logger.InfoContext(ctx, "Asking for missing slot",
			slog.String("session_id", state.SessionID),
			slog.String("intent", intent.Name),
			slog.String("slot", missing[0]))
		return &types.TurnResult{
			SessionID:    state.SessionID,
			Status:       types.StatusClarification,
			Message:      question,
			Complete:     false,
			Intent:       intent.Name,
			Slots:        maps.Clone(state.FilledSlots),
			MissingSlots: missing,
			State:        state,
		}
	}

	state.Phase = types.PhaseReady
	filled := maps.Clone(state.FilledSlots)
	answer := o.answer(ctx, intent, filled, state.Context.Territory)
	o.appendHistory(state, types.RoleAssistant, answer.Message)

	state.Phase = types.PhaseComplete
	state.ResetForNextTopic(intent.Name, o.opts.HistoryCap)
	o.logger.InfoContext(ctx, "Turn completed",
		slog.String("session_id", state.SessionID),
		slog.String("intent", intent.Name),
		slog.Bool("cached", answer.Cached))

	return &types.TurnResult{
		SessionID:   state.SessionID,
		Status:      types.StatusResponse,
		Message:     answer.Message,
		Complete:    true,
		Intent:      intent.Name,
		Slots:       filled,
		POIs:        answer.Cards,
		Warnings:    answer.Warnings,
		Suggestions: suggestionsFor(intent.Name),
		Cached:      answer.Cached,
		State:       state,
	}
}

// activeIntent returns the intent bound to the session, dropping a binding
// the catalog no longer knows.
func (o *Orchestrator) activeIntent(ctx context.Context, state *types.ConversationState) *types.Intent {
	if state.IntentName == "" {
		return nil
	}
	if in, ok := o.deps.Catalog.Lookup(state.IntentName); ok {
		return in
	}
	o.logger.WarnContext(ctx, "Session bound to an unknown intent, classifying again",
		slog.String("session_id", state.SessionID), slog.String("intent", state.IntentName))
	state.IntentName = ""
	state.FilledSlots = map[string]string{}
	return nil
}

func (o *Orchestrator) appendHistory(state *types.ConversationState, role types.MessageRole, content string) {
	state.AppendHistory(types.NewHistoryEntry(role, content, o.opts.Now().UTC()), o.opts.HistoryCap)
	state.UpdatedAt = o.opts.Now().UTC()
}

func errorResult(turnID uuid.UUID, sessionID, message string) *types.TurnResult {
	return &types.TurnResult{
		TurnID:    turnID,
		SessionID: sessionID,
		Status:    types.StatusError,
		Message:   message,
		Complete:  false,
	}
}

// Catalog exposes the loaded intents for health reporting.
func (o *Orchestrator) Catalog() *types.IntentCatalog { return o.deps.Catalog }
