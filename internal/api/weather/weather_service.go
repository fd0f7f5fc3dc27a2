package weather

import (
	"context"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const (
	kindCurrent  = "current"
	kindForecast = "forecast"
)

var (
	weatherIntents = map[string]bool{"meteo": true}
	waterIntents   = map[string]bool{"baignade": true, "water_temperature": true}

	// nowWords select current conditions instead of a forecast.
	nowWords = map[string]bool{"aujourd'hui": true, "maintenant": true, "actuellement": true}
)

func NeedsWeather(intentName string) bool { return weatherIntents[intentName] }

func NeedsWaterTemperature(intentName string) bool { return waterIntents[intentName] }

// FetchKind reports which lookup WeatherFor runs for the slots: "current"
// for today or now, "forecast" otherwise. It is empty for intents that need
// no weather.
func FetchKind(intentName string, slots map[string]string) string {
	if !NeedsWeather(intentName) {
		return ""
	}
	date := strings.ToLower(firstNonEmpty(slots["date"], slots["date_heure"], "aujourd'hui"))
	if nowWords[strings.ReplaceAll(date, "’", "'")] {
		return kindCurrent
	}
	return kindForecast
}

// Service picks the right lookup for an intent and caches the results.
type Service struct {
	weather Provider
	water   WaterTemperatureProvider
	cache   *cache.Manager
	logger  *slog.Logger
}

// NewService builds the service. Any of weather, water and cacheManager
// may be nil; the matching lookups then return nothing.
func NewService(weather Provider, water WaterTemperatureProvider, cacheManager *cache.Manager, logger *slog.Logger) *Service {
	return &Service{weather: weather, water: water, cache: cacheManager, logger: logger}
}

// WeatherFor returns current conditions or a five-day forecast depending
// on the requested date. Date slots are read here even though they are
// left out of response fingerprints.
func (s *Service) WeatherFor(ctx context.Context, intentName string, slots map[string]string, territoryName string) (*types.WeatherPayload, error) {
	if !NeedsWeather(intentName) || s.weather == nil {
		return nil, nil
	}
	location := firstNonEmpty(slots["localisation"], slots["location"], territoryName, "Annecy")

	kind, days := FetchKind(intentName, slots), DefaultForecastDays
	if kind == kindCurrent {
		days = 0
	}

	var key string
	if s.cache != nil {
		key = s.cache.WeatherKey(kind, location, days)
		var cached types.WeatherPayload
		if s.cache.GetJSON(ctx, key, &cached) {
			return &cached, nil
		}
	}

	var payload *types.WeatherPayload
	var err error
	if kind == kindCurrent {
		payload, err = s.weather.Current(ctx, location)
	} else {
		payload, err = s.weather.Forecast(ctx, location, days)
	}
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Weather retrieved",
		slog.String("location", payload.Location), slog.String("kind", kind))
	if s.cache != nil {
		s.cache.SetJSON(ctx, key, payload, s.cache.TTL(cache.CategoryWeatherData))
	}
	return payload, nil
}

// WaterFor estimates the water temperature of the requested water body.
func (s *Service) WaterFor(ctx context.Context, intentName string, slots map[string]string, territory string) (*types.WaterTemperature, error) {
	if !NeedsWaterTemperature(intentName) || s.water == nil {
		return nil, nil
	}
	location := firstNonEmpty(slots["location"], slots["plan_eau"], slots["localisation"], "lac d'Annecy")
	return s.water.Estimate(ctx, location, firstNonEmpty(territory, "annecy"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
