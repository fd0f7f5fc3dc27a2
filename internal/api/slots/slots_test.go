package slots

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	generativeAI "github.com/FACorreiaa/alpine-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

func restaurantIntent() *types.Intent {
	return &types.Intent{
		Name: "restaurant",
		Slots: map[string]types.Slot{
			"type_cuisine": {Name: "type_cuisine", Required: true, Description: "Type de cuisine"},
			"date_heure":   {Name: "date_heure", Description: "Date et heure"},
			"terrasse":     {Name: "terrasse", Description: "Terrasse souhaitée"},
			"localisation": {Name: "localisation", Description: "Lieu"},
		},
		SlotOrder: []string{"type_cuisine", "date_heure", "terrasse", "localisation"},
	}
}

type countingProvider struct {
	name    string
	answers []string
	errs    []error
	prompts []string
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Generate(_ context.Context, prompt string) (string, error) {
	i := len(p.prompts)
	p.prompts = append(p.prompts, prompt)
	var ans string
	var err error
	if i < len(p.answers) {
		ans = p.answers[i]
	}
	if i < len(p.errs) {
		err = p.errs[i]
	}
	return ans, err
}

func setupExtractorTest(primary, secondary generativeAI.Provider, withCache bool) *Extractor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var mgr *cache.Manager
	if withCache {
		store, _ := cache.NewMemoryStore(10)
		mgr = cache.NewManager(store, cache.DefaultTTLPolicy(), "", logger)
	}
	return NewExtractor(generativeAI.NewChain(primary, secondary, time.Second, logger), mgr, logger)
}

func TestExtractor_Extract(t *testing.T) {
	ctx := context.Background()
	history := []types.HistoryEntry{
		types.NewHistoryEntry(types.RoleUser, "h1", time.Now()),
		types.NewHistoryEntry(types.RoleAssistant, "h2", time.Now()),
		types.NewHistoryEntry(types.RoleUser, "h3", time.Now()),
		types.NewHistoryEntry(types.RoleAssistant, "h4", time.Now()),
	}

	t.Run("primary json with fences", func(t *testing.T) {
		p := &countingProvider{name: "p", answers: []string{"```json\n{\"type_cuisine\":\"italienne\",\"budget\":\"20\",\"terrasse\":null}\n```"}}
		got := setupExtractorTest(p, nil, false).Extract(ctx, "un italien", restaurantIntent(), history, types.TurnContext{Territory: "annecy"})

		assert.Equal(t, map[string]string{"type_cuisine": "italienne"}, got)
		require.Len(t, p.prompts, 1)
		assert.NotContains(t, p.prompts[0], "h1")
		assert.Contains(t, p.prompts[0], "h2")
		assert.Contains(t, p.prompts[0], "h4")
		assert.Contains(t, p.prompts[0], "annecy")
	})

	t.Run("unparseable primary goes to secondary", func(t *testing.T) {
		p := &countingProvider{name: "p", answers: []string{"Je pense que c'est italien"}}
		s := &countingProvider{name: "s", answers: []string{`{"type_cuisine":"savoyarde"}`}}
		got := setupExtractorTest(p, s, false).Extract(ctx, "fondue", restaurantIntent(), nil, types.TurnContext{})

		assert.Equal(t, map[string]string{"type_cuisine": "savoyarde"}, got)
		assert.Equal(t, p.prompts[0], s.prompts[0])
	})

	t.Run("keyword fallback when every provider fails", func(t *testing.T) {
		p := &countingProvider{name: "p", errs: []error{errors.New("down")}}
		s := &countingProvider{name: "s", answers: []string{"pas de json"}}
		got := setupExtractorTest(p, s, false).Extract(ctx, "Restaurant avec terrasse ce soir", restaurantIntent(), nil, types.TurnContext{})

		assert.Equal(t, map[string]string{"date_heure": "ce soir", "terrasse": "avec terrasse"}, got)
	})

	t.Run("total failure yields empty mapping", func(t *testing.T) {
		p := &countingProvider{name: "p", errs: []error{errors.New("down")}}
		got := setupExtractorTest(p, nil, false).Extract(ctx, "bonjour", restaurantIntent(), nil, types.TurnContext{})

		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("intent without slots skips providers", func(t *testing.T) {
		p := &countingProvider{name: "p"}
		got := setupExtractorTest(p, nil, false).Extract(ctx, "bonjour", &types.Intent{Name: "general_chat"}, nil, types.TurnContext{})

		assert.Empty(t, got)
		assert.Empty(t, p.prompts)
	})

	t.Run("cached extraction", func(t *testing.T) {
		p := &countingProvider{name: "p", answers: []string{`{"type_cuisine":"chinoise"}`, `{"type_cuisine":"other"}`}}
		e := setupExtractorTest(p, nil, true)
		first := e.Extract(ctx, "chinois", restaurantIntent(), history, types.TurnContext{})
		second := e.Extract(ctx, "chinois", restaurantIntent(), history, types.TurnContext{})

		assert.Equal(t, first, second)
		assert.Len(t, p.prompts, 1)
	})
}

func TestKeywordSlots(t *testing.T) {
	in := restaurantIntent()
	tests := []struct {
		utterance string
		want      map[string]string
	}{
		{"Restaurant avec terrasse ce soir", map[string]string{"date_heure": "ce soir", "terrasse": "avec terrasse"}},
		{"demain midi, cuisine savoyarde", map[string]string{"date_heure": "demain", "type_cuisine": "savoyarde"}},
		{"dîner vers 20h", map[string]string{"date_heure": "20h"}},
		{"Aujourd’hui, un chinois", map[string]string{"date_heure": "aujourd'hui", "type_cuisine": "chinoise"}},
		{"un resto italien", map[string]string{"type_cuisine": "italienne"}},
		{"cuisine française traditionnelle", map[string]string{"type_cuisine": "française"}},
		{"francais svp", map[string]string{"type_cuisine": "française"}},
		{"produits locaux", map[string]string{}},
		{"une spécialité locale", map[string]string{"type_cuisine": "local"}},
		{"repas gastronomique", map[string]string{"type_cuisine": "gastronomique"}},
		{"localisation précise", map[string]string{}},
		{"bonjour", map[string]string{}},
		{"restaurant with terrace tonight", map[string]string{"date_heure": "ce soir", "terrasse": "avec terrasse"}},
		{"Italian food tomorrow evening", map[string]string{"date_heure": "demain", "type_cuisine": "italienne"}},
		{"lunch with outdoor seating", map[string]string{"date_heure": "midi", "terrasse": "avec terrasse"}},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			assert.Equal(t, tt.want, KeywordSlots(tt.utterance, in))
		})
	}

	t.Run("only declared slots", func(t *testing.T) {
		meteo := &types.Intent{Name: "meteo", Slots: map[string]types.Slot{"date": {Name: "date"}}, SlotOrder: []string{"date"}}
		assert.Empty(t, KeywordSlots("terrasse ce soir", meteo))
		assert.Empty(t, KeywordSlots("terrasse", nil))
	})
}

func TestAutoFill(t *testing.T) {
	in := restaurantIntent()

	t.Run("fills location from territory", func(t *testing.T) {
		got := AutoFill(in, map[string]string{"type_cuisine": "savoyarde"}, types.TurnContext{Territory: "chambery"})
		assert.Equal(t, "Chambéry", got["localisation"])
		assert.Equal(t, "savoyarde", got["type_cuisine"])
	})

	t.Run("never overwrites", func(t *testing.T) {
		filled := map[string]string{"localisation": "Talloires"}
		got := AutoFill(in, filled, types.TurnContext{Territory: "annecy"})
		assert.Equal(t, "Talloires", got["localisation"])
	})

	t.Run("unknown territory uses raw value", func(t *testing.T) {
		got := AutoFill(in, nil, types.TurnContext{Territory: "megeve"})
		assert.Equal(t, "megeve", got["localisation"])
	})

	t.Run("idempotent and pure", func(t *testing.T) {
		filled := map[string]string{"type_cuisine": "local"}
		ctx := types.TurnContext{Territory: "annecy"}
		once := AutoFill(in, filled, ctx)
		twice := AutoFill(in, once, ctx)
		assert.Equal(t, once, twice)
		assert.NotContains(t, filled, "localisation")
	})

	t.Run("intent without location slot", func(t *testing.T) {
		meteo := &types.Intent{Name: "ski", Slots: map[string]types.Slot{"station": {Name: "station"}}, SlotOrder: []string{"station"}}
		got := AutoFill(meteo, nil, types.TurnContext{Territory: "annecy"})
		assert.Empty(t, got)
	})

	t.Run("no territory", func(t *testing.T) {
		got := AutoFill(in, nil, types.TurnContext{})
		assert.Empty(t, got)
	})
}
