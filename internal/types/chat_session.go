package types

import (
	"fmt"
	"maps"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultHistoryCap is the number of history entries a session keeps.
const DefaultHistoryCap = 10

type DialoguePhase string

const (
	PhaseAwaitingIntent DialoguePhase = "AWAITING_INTENT"
	PhaseAwaitingSlots  DialoguePhase = "AWAITING_SLOTS"
	PhaseReady          DialoguePhase = "READY"
	PhaseComplete       DialoguePhase = "COMPLETE"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type HistoryEntry struct {
	ID        uuid.UUID   `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewHistoryEntry(role MessageRole, content string, at time.Time) HistoryEntry {
	return HistoryEntry{ID: uuid.New(), Role: role, Content: content, Timestamp: at}
}

// TurnContext carries the caller-supplied context of a turn.
type TurnContext struct {
	Territory      string `json:"territory,omitempty" validate:"omitempty,max=50"`
	PreviousIntent string `json:"previous_intent,omitempty" validate:"omitempty,max=100"`
	Language       string `json:"language,omitempty" validate:"omitempty,len=2"`
}

func (c TurnContext) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	return nil
}

// Merge overlays the non-empty fields of other onto c.
func (c TurnContext) Merge(other TurnContext) TurnContext {
	if other.Territory != "" {
		c.Territory = other.Territory
	}
	if other.PreviousIntent != "" {
		c.PreviousIntent = other.PreviousIntent
	}
	if other.Language != "" {
		c.Language = other.Language
	}
	return c
}

type ConversationState struct {
	SessionID   string            `json:"session_id"`
	Phase       DialoguePhase     `json:"phase"`
	IntentName  string            `json:"intent,omitempty"`
	FilledSlots map[string]string `json:"filled_slots"`
	Context     TurnContext       `json:"context"`
	History     []HistoryEntry    `json:"history"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func NewConversationState(sessionID string, ctx TurnContext) *ConversationState {
	return &ConversationState{
		SessionID:   sessionID,
		Phase:       PhaseAwaitingIntent,
		FilledSlots: map[string]string{},
		Context:     ctx,
		History:     []HistoryEntry{},
	}
}

// Clone returns a deep copy so a turn can work on a scratch state.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.FilledSlots = maps.Clone(s.FilledSlots)
	if out.FilledSlots == nil {
		out.FilledSlots = map[string]string{}
	}
	out.History = append([]HistoryEntry(nil), s.History...)
	return &out
}

// AppendHistory adds an entry and drops the oldest ones beyond limit.
// Existing entries are never rewritten.
func (s *ConversationState) AppendHistory(entry HistoryEntry, limit int) {
	if limit <= 0 {
		limit = DefaultHistoryCap
	}
	next := make([]HistoryEntry, 0, len(s.History)+1)
	next = append(next, s.History...)
	next = append(next, entry)
	if len(next) > limit {
		next = next[len(next)-limit:]
	}
	s.History = next
}

// RecentHistory returns up to n of the newest entries, oldest first.
func (s *ConversationState) RecentHistory(n int) []HistoryEntry {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return append([]HistoryEntry(nil), s.History...)
	}
	return append([]HistoryEntry(nil), s.History[len(s.History)-n:]...)
}

// ResetForNextTopic keeps only the territory, the name of the intent just
// completed and the newest keep history entries.
func (s *ConversationState) ResetForNextTopic(completedIntent string, keep int) {
	s.Phase = PhaseAwaitingIntent
	s.IntentName = ""
	s.FilledSlots = map[string]string{}
	s.Context = TurnContext{Territory: s.Context.Territory, PreviousIntent: completedIntent}
	s.History = s.RecentHistory(keep)
	if s.History == nil {
		s.History = []HistoryEntry{}
	}
}

type TurnStatus string

const (
	StatusResponse      TurnStatus = "response"
	StatusClarification TurnStatus = "clarification"
	StatusError         TurnStatus = "error"
)

// TurnResult is what a single processed turn hands back to the transport.
type TurnResult struct {
	TurnID         uuid.UUID          `json:"turn_id"`
	SessionID      string             `json:"session_id"`
	Status         TurnStatus         `json:"status"`
	Message        string             `json:"message"`
	Complete       bool               `json:"complete"`
	Intent         string             `json:"intent,omitempty"`
	Slots          map[string]string  `json:"slots,omitempty"`
	MissingSlots   []string           `json:"missing_slots,omitempty"`
	POIs           []POICard          `json:"pois,omitempty"`
	Warnings       []string           `json:"warnings,omitempty"`
	Suggestions    []string           `json:"suggestions,omitempty"`
	Cached         bool               `json:"cached"`
	ResponseTimeMs int64              `json:"response_time_ms"`
	State          *ConversationState `json:"updated_state,omitempty"`
}
