// Package chat exposes the dialogue engine over HTTP.
package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/internal/api"
	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	"github.com/FACorreiaa/alpine-guide/internal/api/session"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Chat(w http.ResponseWriter, r *http.Request)
	ResetSession(w http.ResponseWriter, r *http.Request)
	ClearCache(w http.ResponseWriter, r *http.Request)
	CacheStats(w http.ResponseWriter, r *http.Request)
	Health(w http.ResponseWriter, r *http.Request)
	TerritoryConfig(w http.ResponseWriter, r *http.Request)
}

type TurnProcessor interface {
	ProcessTurn(ctx context.Context, sessionID, utterance string, turnCtx types.TurnContext) *types.TurnResult
}

type HandlerImpl struct {
	turns    TurnProcessor
	cache    *cache.Manager
	sessions session.Store
	intents  int
	logger   *slog.Logger
}

// NewHandlerImpl builds the handler. cacheManager may be nil when the
// cache is disabled; intents is the size of the loaded catalog.
func NewHandlerImpl(turns TurnProcessor, cacheManager *cache.Manager, sessions session.Store, intents int, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{turns: turns, cache: cacheManager, sessions: sessions, intents: intents, logger: logger}
}

func (h *HandlerImpl) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "Chat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/chat"),
	))
	defer span.End()
	l := h.logger.With(slog.String("HandlerImpl", "Chat"))

	var req Request
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid chat request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	req.applyDefaults()
	if err := validate.Struct(req); err != nil {
		l.WarnContext(ctx, "Chat request failed validation", slog.Any("error", err))
		span.SetStatus(codes.Error, "validation failed")
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, api.ValidationMessage(err))
		return
	}
	span.SetAttributes(attribute.String("session.id", req.SessionID), attribute.String("territory", req.Territory))

	res := h.turns.ProcessTurn(ctx, req.SessionID, req.Message, req.turnContext())
	l.InfoContext(ctx, "Chat turn processed",
		slog.String("session_id", req.SessionID),
		slog.String("status", string(res.Status)),
		slog.String("intent", res.Intent),
		slog.Int64("response_time_ms", res.ResponseTimeMs))

	// Turn failures are reported in the body, like every other outcome.
	api.WriteJSONResponse(w, r, http.StatusOK, newResponse(res))
}

func (h *HandlerImpl) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "session id is required")
		return
	}
	if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to delete session", slog.String("session_id", sessionID), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *HandlerImpl) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "cache disabled")
		return
	}
	prefix := r.URL.Query().Get("prefix")
	n, err := h.cache.Clear(r.Context(), prefix)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "cache unavailable")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"cleared_keys": n, "prefix": prefix})
}

func (h *HandlerImpl) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "cache disabled")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, h.cache.Stats(r.Context()))
}

// Health reports "healthy" only when every dependency is; a memory cache
// fallback or a missing catalog gives "degraded".
func (h *HandlerImpl) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Services: map[string]ServiceHealth{}, Timestamp: time.Now().UTC().Format(time.RFC3339)}

	orch := ServiceHealth{Status: "healthy", Intents: h.intents}
	if h.turns == nil || h.intents == 0 {
		orch.Status = "down"
	}
	resp.Services["orchestrator"] = orch

	if h.cache != nil {
		ch := h.cache.Health(ctx)
		resp.Services["cache"] = ServiceHealth{Status: ch.Status, Backend: ch.Backend, Error: ch.Error}
		resp.CacheStats = h.cache.Stats(ctx)
	} else {
		resp.Services["cache"] = ServiceHealth{Status: "disabled"}
	}
	if h.sessions != nil {
		resp.Services["sessions"] = ServiceHealth{Status: "healthy", Backend: h.sessions.Backend()}
	}

	for _, s := range resp.Services {
		if s.Status != "healthy" && s.Status != "disabled" {
			resp.Status = "degraded"
		}
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

func (h *HandlerImpl) TerritoryConfig(w http.ResponseWriter, r *http.Request) {
	territory := strings.ToLower(chi.URLParam(r, "territory"))
	cfg, ok := territoryConfigs[territory]
	if !ok {
		api.ErrorResponse(w, r, http.StatusNotFound, "Territoire non trouvé")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, cfg)
}
