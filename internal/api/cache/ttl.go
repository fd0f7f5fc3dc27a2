package cache

import "time"

// Categories for cached intermediate results. Intent names double as
// categories for final responses.
const (
	CategoryIntentDetection = "intent_detection"
	CategorySlotExtraction  = "slot_extraction"
	CategoryPOIResults      = "rag_results"
	CategoryWeatherData     = "weather_data"
	CategoryDefault         = "default"
)

var defaultTTLs = map[string]time.Duration{
	"restaurant":            24 * time.Hour,
	"randonnee":             7 * 24 * time.Hour,
	"meteo":                 time.Hour,
	"activite_sportive":     12 * time.Hour,
	"ski":                   6 * time.Hour,
	"general_chat":          5 * time.Minute,
	CategoryIntentDetection: 24 * time.Hour,
	CategorySlotExtraction:  time.Hour,
	CategoryPOIResults:      time.Hour,
	CategoryWeatherData:     30 * time.Minute,
}

const defaultTTL = 30 * time.Minute

// TTLPolicy maps a category to an entry lifetime. Categories without an
// entry get the fallback; that is the documented behaviour for intents
// added to the catalog without a TTL of their own.
type TTLPolicy struct {
	byCategory map[string]time.Duration
	fallback   time.Duration
}

func DefaultTTLPolicy() TTLPolicy {
	return NewTTLPolicy(nil, 0)
}

// NewTTLPolicy layers overrides on top of the built-in table. A
// "default" key in overrides replaces the fallback as well.
func NewTTLPolicy(overrides map[string]time.Duration, fallback time.Duration) TTLPolicy {
	p := TTLPolicy{byCategory: make(map[string]time.Duration, len(defaultTTLs)+len(overrides)), fallback: defaultTTL}
	for k, v := range defaultTTLs {
		p.byCategory[k] = v
	}
	for k, v := range overrides {
		if v <= 0 {
			continue
		}
		if k == CategoryDefault {
			p.fallback = v
			continue
		}
		p.byCategory[k] = v
	}
	if fallback > 0 {
		p.fallback = fallback
	}
	return p
}

func (p TTLPolicy) For(category string) time.Duration {
	if d, ok := p.byCategory[category]; ok {
		return d
	}
	return p.fallback
}

func (p TTLPolicy) IsMapped(category string) bool {
	_, ok := p.byCategory[category]
	return ok
}

func (p TTLPolicy) Fallback() time.Duration { return p.fallback }
