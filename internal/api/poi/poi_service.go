// Package poi reads points of interest and routes each intent to the
// right search.
package poi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const DefaultLimit = 5

type route struct {
	types []string
	// cuisine enables the cuisine-preference search with a plain fallback.
	cuisine bool
}

var routes = map[string]route{
	"restaurant":        {types: []string{"restaurant"}, cuisine: true},
	"hebergement":       {types: []string{"hotel", "accommodation"}},
	"randonnee":         {types: []string{"activity", "sport", "nature", "outdoor"}},
	"activite_sportive": {types: []string{"activity", "sport", "nature", "outdoor"}},
	"evenement":         {types: []string{"event", "festival", "concert"}},
}

var localCuisineHints = []string{"local", "traditionnel", "savoyard"}

// NeedsPOIs reports whether answers to the intent are built on POI data.
func NeedsPOIs(intentName string) bool {
	_, ok := routes[intentName]
	return ok
}

type Service struct {
	repo   Repository
	cache  *cache.Manager
	logger *slog.Logger
	limit  int
}

// NewService builds the POI service. cacheManager may be nil.
func NewService(repo Repository, cacheManager *cache.Manager, limit int, logger *slog.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{repo: repo, cache: cacheManager, logger: logger, limit: limit}
}

// ForIntent returns the POIs backing an answer to intentName in the given
// territory. Intents that need no POIs yield nil without touching the
// repository.
func (s *Service) ForIntent(ctx context.Context, territorySlug, intentName string, slots map[string]string) ([]types.POI, error) {
	r, ok := routes[intentName]
	if !ok {
		return nil, nil
	}
	ctx, span := otel.Tracer("POIService").Start(ctx, "ForIntent", trace.WithAttributes(
		attribute.String("intent", intentName),
		attribute.String("territory", territorySlug),
	))
	defer span.End()

	territory, err := s.repo.TerritoryBySlug(ctx, territorySlug)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolve territory: %w", err)
	}

	filters := types.POIFilters{Types: r.types}
	if r.cuisine {
		if pref := CuisinePreference(slots); pref != "" {
			filters.Keywords = []string{pref}
		}
	}

	pois, err := s.search(ctx, territory, filters)
	if err != nil {
		return nil, err
	}
	if len(pois) == 0 && len(filters.Keywords) > 0 {
		s.logger.InfoContext(ctx, "No POI matched the preference, widening search",
			slog.String("intent", intentName), slog.Any("keywords", filters.Keywords))
		filters.Keywords = nil
		pois, err = s.search(ctx, territory, filters)
		if err != nil {
			return nil, err
		}
	}
	span.SetAttributes(attribute.Int("pois.count", len(pois)))
	return pois, nil
}

func (s *Service) search(ctx context.Context, territory *types.Territory, filters types.POIFilters) ([]types.POI, error) {
	var key string
	if s.cache != nil {
		key = s.cache.POIKey(territory.Slug, filters, s.limit)
		var cached []types.POI
		if s.cache.GetJSON(ctx, key, &cached) {
			return cached, nil
		}
	}
	pois, err := s.repo.Search(ctx, territory.ID, filters, s.limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(pois) > 0 {
		s.cache.SetJSON(ctx, key, pois, s.cache.TTL(cache.CategoryPOIResults))
	}
	return pois, nil
}

// CuisinePreference picks the cuisine keyword for a restaurant search:
// the type_cuisine slot, else "local" when any slot hints at local food.
func CuisinePreference(slots map[string]string) string {
	if c := strings.TrimSpace(slots["type_cuisine"]); c != "" {
		return c
	}
	for _, v := range slots {
		lv := strings.ToLower(v)
		for _, hint := range localCuisineHints {
			if strings.Contains(lv, hint) {
				return "local"
			}
		}
	}
	return ""
}

// IsTerritoryMissing reports whether err comes from an unknown territory.
func IsTerritoryMissing(err error) bool {
	return errors.Is(err, ErrTerritoryNotFound)
}
