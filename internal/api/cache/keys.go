package cache

import (
	"strconv"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

func (m *Manager) IntentKey(utterance, territory string) string {
	return m.Key(PrefixIntent, map[string]any{
		"message":   utterance,
		"territory": territory,
	})
}

// SlotsKey covers the utterance, the active intent and the two newest
// history messages.
func (m *Manager) SlotsKey(utterance, intent string, history []types.HistoryEntry) string {
	recent := make([]string, 0, 2)
	start := len(history) - 2
	if start < 0 {
		start = 0
	}
	for _, h := range history[start:] {
		recent = append(recent, string(h.Role)+":"+h.Content)
	}
	return m.Key(PrefixSlots, map[string]any{
		"message": utterance,
		"intent":  intent,
		"history": recent,
	})
}

// ResponseKey fingerprints a final answer. Volatile slots are left out so
// requests differing only in date or time share an entry.
func (m *Manager) ResponseKey(intent string, slots map[string]string, territory string) string {
	return m.Key(PrefixResponse, map[string]any{
		"intent":    intent,
		"slots":     StableSlots(slots),
		"territory": territory,
	})
}

func (m *Manager) POIKey(territory string, filters types.POIFilters, limit int) string {
	return m.Key(PrefixPOI, map[string]any{
		"territory": territory,
		"types":     append([]string(nil), filters.Types...),
		"keywords":  append([]string(nil), filters.Keywords...),
		"limit":     strconv.Itoa(limit),
	})
}

func (m *Manager) WeatherKey(kind, location string, days int) string {
	return m.Key(PrefixWeather, map[string]any{
		"kind":     kind,
		"location": location,
		"days":     strconv.Itoa(days),
	})
}
