package chat

import (
	"github.com/go-playground/validator/v10"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	defaultTerritory = "annecy"
	defaultLanguage  = "fr"
)

type Request struct {
	Message   string `json:"message" validate:"required,min=1,max=1000"`
	SessionID string `json:"session_id" validate:"required,min=1,max=100"`
	Territory string `json:"territory,omitempty" validate:"omitempty,max=50"`
	Language  string `json:"language,omitempty" validate:"omitempty,len=2"`
}

func (r *Request) applyDefaults() {
	if r.Territory == "" {
		r.Territory = defaultTerritory
	}
	if r.Language == "" {
		r.Language = defaultLanguage
	}
}

func (r Request) turnContext() types.TurnContext {
	return types.TurnContext{Territory: r.Territory, Language: r.Language}
}

// Response is the widget-facing view of a turn; the stored state stays
// server side.
type Response struct {
	TurnID         string            `json:"turn_id"`
	Type           types.TurnStatus  `json:"type"`
	Message        string            `json:"message"`
	Complete       bool              `json:"complete"`
	Intent         string            `json:"intent,omitempty"`
	Slots          map[string]string `json:"slots,omitempty"`
	MissingSlots   []string          `json:"missing_slots,omitempty"`
	POIs           []types.POICard   `json:"pois,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Suggestions    []string          `json:"suggestions"`
	Cached         bool              `json:"cached"`
	ResponseTimeMs int64             `json:"response_time_ms"`
}

func newResponse(res *types.TurnResult) Response {
	suggestions := res.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return Response{
		TurnID:         res.TurnID.String(),
		Type:           res.Status,
		Message:        res.Message,
		Complete:       res.Complete,
		Intent:         res.Intent,
		Slots:          res.Slots,
		MissingSlots:   res.MissingSlots,
		POIs:           res.POIs,
		Warnings:       res.Warnings,
		Suggestions:    suggestions,
		Cached:         res.Cached,
		ResponseTimeMs: res.ResponseTimeMs,
	}
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Intents int    `json:"intents,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status     string                   `json:"status"`
	Services   map[string]ServiceHealth `json:"services"`
	CacheStats any                      `json:"cache_stats,omitempty"`
	Timestamp  string                   `json:"timestamp"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type TerritoryConfig struct {
	Name         string      `json:"name"`
	Center       Coordinates `json:"center"`
	Zoom         int         `json:"zoom"`
	PrimaryColor string      `json:"primaryColor"`
	Features     []string    `json:"features"`
}

var territoryConfigs = map[string]TerritoryConfig{
	"annecy": {
		Name:         "Annecy - Lac et Montagnes",
		Center:       Coordinates{Lat: 45.8992, Lng: 6.1294},
		Zoom:         11,
		PrimaryColor: "#0066CC",
		Features:     []string{"chat", "weather", "activities"},
	},
	"chamonix": {
		Name:         "Chamonix Mont-Blanc",
		Center:       Coordinates{Lat: 45.9237, Lng: 6.8694},
		Zoom:         12,
		PrimaryColor: "#FF6B35",
		Features:     []string{"chat", "weather", "skiing"},
	},
}
