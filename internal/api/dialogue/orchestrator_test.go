package dialogue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	"github.com/FACorreiaa/alpine-guide/internal/api/catalog"
	generativeAI "github.com/FACorreiaa/alpine-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/alpine-guide/internal/api/intent"
	"github.com/FACorreiaa/alpine-guide/internal/api/session"
	"github.com/FACorreiaa/alpine-guide/internal/api/slots"
	"github.com/FACorreiaa/alpine-guide/internal/api/synthesis"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

const (
	kindIntent  = "intent"
	kindSlots   = "slots"
	kindClarify = "clarify"
	kindCompose = "compose"
)

var (
	annecy      = types.TurnContext{Territory: "annecy", Language: "fr"}
	googleLink  = "https://maps.google.com/?cid=1001"
	appleLink   = "https://maps.apple.com/?ll=45.899,6.129"
	errScripted = errors.New("scripted outage")
)

// scriptedNLU answers prompts by kind and counts calls per kind.
type scriptedNLU struct {
	mu    sync.Mutex
	calls map[string]int

	intentFor  func(message string) string
	extract    func(prompt string) (string, error)
	compose    func(prompt string) (string, error)
	intentWait time.Duration
}

func newScriptedNLU() *scriptedNLU {
	return &scriptedNLU{
		calls: map[string]int{},
		intentFor: func(message string) string {
			m := strings.ToLower(message)
			switch {
			case strings.Contains(m, "restaurant"):
				return "restaurant"
			case strings.Contains(m, "météo"):
				return "meteo"
			default:
				return types.FallbackIntentName
			}
		},
		extract: func(string) (string, error) { return "", errScripted },
		compose: func(string) (string, error) {
			return `<div class="poi-item"><h3>La Ciboulette</h3></div>`, nil
		},
	}
}

func promptKind(prompt string) string {
	switch {
	case strings.Contains(prompt, "détection d'intentions"):
		return kindIntent
	case strings.Contains(prompt, "extraction d'informations"):
		return kindSlots
	case strings.Contains(prompt, "Génère une question"):
		return kindClarify
	case strings.Contains(prompt, "assistant touristique expert"):
		return kindCompose
	default:
		return "unknown"
	}
}

func userMessage(prompt string) string {
	const marker = "Message utilisateur : "
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	line := prompt[i+len(marker):]
	if j := strings.IndexByte(line, '\n'); j >= 0 {
		line = line[:j]
	}
	return strings.Trim(line, `"`)
}

func (s *scriptedNLU) provider() generativeAI.Provider {
	return generativeAI.ProviderFunc{ProviderName: "scripted", Fn: func(ctx context.Context, prompt string) (string, error) {
		kind := promptKind(prompt)
		s.mu.Lock()
		s.calls[kind]++
		s.mu.Unlock()

		switch kind {
		case kindIntent:
			if s.intentWait > 0 {
				time.Sleep(s.intentWait)
			}
			return s.intentFor(userMessage(prompt)), nil
		case kindSlots:
			return s.extract(prompt)
		case kindClarify:
			return "Quel type de cuisine souhaitez-vous ?", nil
		case kindCompose:
			return s.compose(prompt)
		}
		return "", errScripted
	}}
}

func (s *scriptedNLU) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

type fakePOIs struct {
	mu    sync.Mutex
	calls int
	pois  []types.POI
	err   error
}

func (f *fakePOIs) ForIntent(_ context.Context, _, intentName string, _ map[string]string) ([]types.POI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if intentName != "restaurant" {
		return nil, nil
	}
	return f.pois, f.err
}

func restaurantPOIs() []types.POI {
	return []types.POI{
		{ID: uuid.New(), Name: "La Ciboulette", Type: "restaurant", MapLinks: &types.MapLinks{GoogleMaps: googleLink, AppleMaps: appleLink}},
		{ID: uuid.New(), Name: "Le Freti", Type: "restaurant"},
	}
}

type harness struct {
	orch     *Orchestrator
	nlu      *scriptedNLU
	sessions *session.MemoryStore
	pois     *fakePOIs
}

type harnessOption func(*Dependencies, *Options)

func withHistoryCap(n int) harnessOption {
	return func(_ *Dependencies, o *Options) { o.HistoryCap = n }
}

func withSynthesizer(s ResponseSynthesizer) harnessOption {
	return func(d *Dependencies, _ *Options) { d.Synthesizer = s }
}

func withCatalog(c *types.IntentCatalog) harnessOption {
	return func(d *Dependencies, _ *Options) { d.Catalog = c }
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	logger := testLogger()

	cat, err := catalog.Default()
	require.NoError(t, err)
	store, err := cache.NewMemoryStore(1000)
	require.NoError(t, err)
	cm := cache.NewManager(store, cache.DefaultTTLPolicy(), "", logger)

	nlu := newScriptedNLU()
	chain := generativeAI.NewChain(nlu.provider(), nil, time.Second, logger)
	sessions := session.NewMemoryStore(time.Minute)
	pois := &fakePOIs{pois: restaurantPOIs()}

	deps := Dependencies{
		Catalog:     cat,
		Sessions:    sessions,
		Classifier:  intent.NewClassifier(chain, cm, logger),
		Extractor:   slots.NewExtractor(chain, cm, logger),
		Synthesizer: synthesis.NewSynthesizer(chain, logger),
		Cache:       cm,
		POIs:        pois,
	}
	options := Options{Now: func() time.Time { return time.Date(2025, 7, 14, 18, 0, 0, 0, time.UTC) }}
	for _, opt := range opts {
		opt(&deps, &options)
	}
	return &harness{
		orch:     NewOrchestrator(deps, options, logger),
		nlu:      nlu,
		sessions: sessions,
		pois:     pois,
	}
}

func (h *harness) stored(t *testing.T, id string) *types.ConversationState {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestProcessTurn_RestaurantScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.orch.ProcessTurn(ctx, "s1", "Restaurant avec terrasse ce soir", annecy)

	require.Equal(t, types.StatusClarification, first.Status)
	assert.False(t, first.Complete)
	assert.Equal(t, "restaurant", first.Intent)
	assert.Equal(t, []string{"type_cuisine"}, first.MissingSlots)
	assert.Equal(t, "ce soir", first.Slots["date_heure"])
	assert.Equal(t, "avec terrasse", first.Slots["terrasse"])
	assert.Equal(t, "Annecy", first.Slots["localisation"])
	assert.Contains(t, first.Message, "Quel type de cuisine souhaitez-vous ?")
	assert.Contains(t, first.Message, "Par exemple : savoyarde")
	assert.NotEqual(t, uuid.Nil, first.TurnID)

	stored := h.stored(t, "s1")
	assert.Equal(t, types.PhaseAwaitingSlots, stored.Phase)
	assert.Equal(t, "restaurant", stored.IntentName)
	assert.Len(t, stored.History, 2)

	second := h.orch.ProcessTurn(ctx, "s1", "savoyarde", annecy)

	require.Equal(t, types.StatusResponse, second.Status)
	assert.True(t, second.Complete)
	assert.Equal(t, "restaurant", second.Intent)
	assert.Equal(t, "savoyarde", second.Slots["type_cuisine"])
	assert.Equal(t, "avec terrasse", second.Slots["terrasse"])
	assert.False(t, second.Cached)
	assert.NotEmpty(t, second.Suggestions)
	assert.Equal(t, 1, h.nlu.count(kindIntent), "bound intent must not be classified again")

	require.Len(t, second.POIs, 2)
	require.NotNil(t, second.POIs[0].MapLinks)
	assert.Equal(t, googleLink, second.POIs[0].MapLinks.GoogleMaps)
	assert.Equal(t, appleLink, second.POIs[0].MapLinks.AppleMaps)
	assert.Nil(t, second.POIs[1].MapLinks)
	assert.Equal(t, synthesis.MapLinksPlaceholder, second.POIs[1].MapLinksPlaceholder)

	stored = h.stored(t, "s1")
	assert.Equal(t, types.PhaseAwaitingIntent, stored.Phase)
	assert.Empty(t, stored.IntentName)
	assert.Empty(t, stored.FilledSlots)
	assert.Equal(t, "restaurant", stored.Context.PreviousIntent)
	assert.Equal(t, "annecy", stored.Context.Territory)
	assert.Len(t, stored.History, 4)
}

func TestProcessTurn_NoSlotCarryOverBetweenIntents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	done := h.orch.ProcessTurn(ctx, "s1", "Restaurant savoyard avec terrasse", annecy)
	require.True(t, done.Complete)

	next := h.orch.ProcessTurn(ctx, "s1", "Quelle météo demain ?", annecy)

	require.Equal(t, types.StatusResponse, next.Status)
	assert.Equal(t, "meteo", next.Intent)
	assert.NotContains(t, next.Slots, "type_cuisine")
	assert.NotContains(t, next.Slots, "terrasse")
	assert.Equal(t, "Annecy", next.Slots["localisation"])
}

func TestProcessTurn_IdenticalRequestsServedFromCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.orch.ProcessTurn(ctx, "a", "Restaurant savoyard avec terrasse ce soir", annecy)
	b := h.orch.ProcessTurn(ctx, "b", "Restaurant savoyard avec terrasse demain", annecy)

	require.True(t, a.Complete)
	require.True(t, b.Complete)
	assert.False(t, a.Cached)
	assert.True(t, b.Cached, "date slots are left out of response keys")
	assert.Equal(t, a.Message, b.Message)
	assert.Len(t, b.POIs, 2)
	assert.Equal(t, 1, h.nlu.count(kindCompose))
	assert.Equal(t, 1, h.pois.calls)
}

func TestProcessTurn_ApologyIsNotCached(t *testing.T) {
	h := newHarness(t)
	h.nlu.compose = func(string) (string, error) { return "", errScripted }
	ctx := context.Background()

	first := h.orch.ProcessTurn(ctx, "a", "Restaurant savoyard", annecy)
	second := h.orch.ProcessTurn(ctx, "b", "Restaurant savoyard", annecy)

	assert.Equal(t, synthesis.ApologyMessage, first.Message)
	assert.Equal(t, types.StatusResponse, first.Status)
	assert.False(t, second.Cached)
	assert.Equal(t, 2, h.nlu.count(kindCompose))
}

func TestProcessTurn_HistoryIsCapped(t *testing.T) {
	h := newHarness(t, withHistoryCap(4))
	ctx := context.Background()

	var last *types.TurnResult
	for _, msg := range []string{"Un restaurant", "je ne sais pas", "aucune idée", "peu importe", "dernier essai"} {
		last = h.orch.ProcessTurn(ctx, "s1", msg, annecy)
		require.Equal(t, types.StatusClarification, last.Status)
	}

	stored := h.stored(t, "s1")
	require.Len(t, stored.History, 4)
	assert.Equal(t, "peu importe", stored.History[0].Content)
	assert.Equal(t, "dernier essai", stored.History[2].Content)
	assert.Equal(t, types.RoleAssistant, stored.History[3].Role)
}

func TestProcessTurn_AutoFillKeepsExtractedLocation(t *testing.T) {
	h := newHarness(t)
	h.nlu.extract = func(string) (string, error) {
		return `{"type_cuisine": "italienne", "localisation": "Talloires", "inconnu": "x"}`, nil
	}

	res := h.orch.ProcessTurn(context.Background(), "s1", "Un restaurant italien à Talloires", annecy)

	require.True(t, res.Complete)
	assert.Equal(t, "Talloires", res.Slots["localisation"])
	assert.Equal(t, "italienne", res.Slots["type_cuisine"])
	assert.NotContains(t, res.Slots, "inconnu")
}

func TestProcessTurn_ConcurrentTurnsAreSerialized(t *testing.T) {
	h := newHarness(t)
	h.nlu.intentWait = 20 * time.Millisecond
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*types.TurnResult, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = h.orch.ProcessTurn(ctx, "s1", "Restaurant avec terrasse", annecy)
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, types.StatusClarification, r.Status)
	}
	stored := h.stored(t, "s1")
	assert.Len(t, stored.History, 4, "no turn may overwrite another's history")
	assert.Equal(t, 1, h.nlu.count(kindIntent), "second turn must see the bound intent")
	assert.Equal(t, 0, h.orch.locks.len())
}

type panickingSynthesizer struct{}

func (panickingSynthesizer) Clarify(context.Context, *types.Intent, types.Slot, map[string]string) string {
	panic("clarify exploded")
}

func (panickingSynthesizer) Compose(context.Context, synthesis.Request) synthesis.Response {
	panic("compose exploded")
}

func TestProcessTurn_PanicLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, withSynthesizer(panickingSynthesizer{}))
	ctx := context.Background()

	seed := types.NewConversationState("s1", annecy)
	seed.Phase = types.PhaseAwaitingSlots
	seed.IntentName = "restaurant"
	seed.FilledSlots["terrasse"] = "avec terrasse"
	require.NoError(t, h.sessions.Put(ctx, seed))

	res := h.orch.ProcessTurn(ctx, "s1", "savoyarde", annecy)

	assert.Equal(t, types.StatusError, res.Status)
	assert.Equal(t, TechnicalErrorMessage, res.Message)
	assert.False(t, res.Complete)

	stored := h.stored(t, "s1")
	assert.Equal(t, types.PhaseAwaitingSlots, stored.Phase)
	assert.Equal(t, map[string]string{"terrasse": "avec terrasse"}, stored.FilledSlots)
	assert.Empty(t, stored.History)
	assert.Equal(t, 0, h.orch.locks.len(), "lock must be released after a panic")
}

func TestProcessTurn_InvalidContext(t *testing.T) {
	h := newHarness(t)

	res := h.orch.ProcessTurn(context.Background(), "s1", "Bonjour", types.TurnContext{Language: "fra"})

	assert.Equal(t, types.StatusError, res.Status)
	assert.Equal(t, InvalidContextMessage, res.Message)
	assert.Equal(t, 0, h.sessions.Len())
	assert.Equal(t, 0, h.nlu.count(kindIntent))
}

func TestProcessTurn_EmptyCatalog(t *testing.T) {
	h := newHarness(t, withCatalog(types.NewIntentCatalog()))

	res := h.orch.ProcessTurn(context.Background(), "s1", "Bonjour", annecy)

	assert.Equal(t, types.StatusResponse, res.Status)
	assert.True(t, res.Complete)
	assert.Equal(t, synthesis.NotUnderstoodMessage, res.Message)
	assert.Equal(t, types.PhaseAwaitingIntent, h.stored(t, "s1").Phase)
}

func TestProcessTurn_DefaultsTerritoryForNewSession(t *testing.T) {
	h := newHarness(t)

	res := h.orch.ProcessTurn(context.Background(), "s1", "Restaurant", types.TurnContext{})

	assert.Equal(t, "Annecy", res.Slots["localisation"])
	assert.Equal(t, "annecy", h.stored(t, "s1").Context.Territory)
}

func TestProcessTurn_POIFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.pois.err = types.ErrRepositoryUnavailable

	res := h.orch.ProcessTurn(context.Background(), "s1", "Restaurant savoyard", annecy)

	assert.Equal(t, types.StatusResponse, res.Status)
	assert.True(t, res.Complete)
	assert.Empty(t, res.POIs)
}

type failingSessions struct{ session.Store }

func (failingSessions) Get(context.Context, string) (*types.ConversationState, error) {
	return nil, types.ErrCacheUnavailable
}

func (failingSessions) Put(context.Context, *types.ConversationState) error {
	return types.ErrCacheUnavailable
}

func TestProcessTurn_SessionStoreOutage(t *testing.T) {
	h := newHarness(t, func(d *Dependencies, _ *Options) { d.Sessions = failingSessions{} })

	res := h.orch.ProcessTurn(context.Background(), "s1", "Restaurant savoyard", annecy)

	assert.Equal(t, types.StatusResponse, res.Status)
	assert.True(t, res.Complete)
}

type fakeWeather struct {
	mu    sync.Mutex
	dates []string
}

func (f *fakeWeather) WeatherFor(_ context.Context, intentName string, slots map[string]string, territoryName string) (*types.WeatherPayload, error) {
	if intentName != "meteo" {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dates = append(f.dates, slots["date"])
	return &types.WeatherPayload{Location: territoryName}, nil
}

func (f *fakeWeather) WaterFor(context.Context, string, map[string]string, string) (*types.WaterTemperature, error) {
	return nil, nil
}

func (f *fakeWeather) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dates...)
}

func TestProcessTurn_WeatherDateSelectsCachedAnswer(t *testing.T) {
	fw := &fakeWeather{}
	h := newHarness(t, func(d *Dependencies, _ *Options) { d.Weather = fw })
	h.nlu.extract = func(prompt string) (string, error) {
		if strings.Contains(prompt, `Message actuel : "Météo aujourd'hui"`) {
			return `{"date": "aujourd'hui"}`, nil
		}
		return `{"date": "demain"}`, nil
	}
	ctx := context.Background()

	today := h.orch.ProcessTurn(ctx, "a", "Météo aujourd'hui", annecy)
	tomorrow := h.orch.ProcessTurn(ctx, "b", "Météo demain", annecy)
	weekend := h.orch.ProcessTurn(ctx, "c", "Météo ce week-end", annecy)

	require.True(t, today.Complete)
	require.True(t, tomorrow.Complete)
	assert.False(t, today.Cached)
	assert.False(t, tomorrow.Cached, "a forecast must not reuse current conditions")
	assert.True(t, weekend.Cached, "forecasts share one answer")
	assert.Equal(t, []string{"aujourd'hui", "demain"}, fw.seen())
	assert.Equal(t, 2, h.nlu.count(kindCompose))
	assert.Zero(t, h.pois.calls, "weather answers need no POI lookup")
}

// flakySessions fails the next failGets reads and otherwise delegates.
type flakySessions struct {
	*session.MemoryStore
	mu       sync.Mutex
	failGets int
}

func (f *flakySessions) Get(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	f.mu.Lock()
	fail := f.failGets > 0
	if fail {
		f.failGets--
	}
	f.mu.Unlock()
	if fail {
		return nil, types.ErrCacheUnavailable
	}
	return f.MemoryStore.Get(ctx, sessionID)
}

func TestProcessTurn_ReadFailureKeepsStoredState(t *testing.T) {
	flaky := &flakySessions{failGets: 1}
	h := newHarness(t, func(d *Dependencies, _ *Options) {
		flaky.MemoryStore = d.Sessions.(*session.MemoryStore)
		d.Sessions = flaky
	})
	ctx := context.Background()

	seed := types.NewConversationState("s1", annecy)
	seed.Phase = types.PhaseAwaitingSlots
	seed.IntentName = "restaurant"
	seed.FilledSlots["terrasse"] = "avec terrasse"
	require.NoError(t, h.sessions.Put(ctx, seed))

	res := h.orch.ProcessTurn(ctx, "s1", "bonjour", annecy)
	assert.Equal(t, types.StatusResponse, res.Status)

	stored := h.stored(t, "s1")
	assert.Equal(t, "restaurant", stored.IntentName)
	assert.Equal(t, map[string]string{"terrasse": "avec terrasse"}, stored.FilledSlots)
	assert.Empty(t, stored.History)

	next := h.orch.ProcessTurn(ctx, "s1", "savoyarde", annecy)
	require.Equal(t, types.StatusResponse, next.Status)
	assert.Equal(t, "restaurant", next.Intent)
	assert.Equal(t, "avec terrasse", next.Slots["terrasse"])
	assert.Equal(t, "savoyarde", next.Slots["type_cuisine"])
}

// recordingSynthesizer records the slot each clarification asks for.
type recordingSynthesizer struct {
	mu    sync.Mutex
	asked []string
}

func (r *recordingSynthesizer) Clarify(_ context.Context, _ *types.Intent, slot types.Slot, _ map[string]string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asked = append(r.asked, slot.Name)
	return "Précisez " + slot.Name
}

func (r *recordingSynthesizer) Compose(context.Context, synthesis.Request) synthesis.Response {
	return synthesis.Response{Message: "ok"}
}

func TestProcessTurn_ClarifiesFirstMissingRequiredSlot(t *testing.T) {
	booking := &types.Intent{
		Name: "reservation",
		Slots: map[string]types.Slot{
			"date_arrivee":     {Name: "date_arrivee", Required: true},
			"nombre_personnes": {Name: "nombre_personnes", Required: true},
		},
		SlotOrder: []string{"date_arrivee", "nombre_personnes"},
	}
	tests := []struct {
		name      string
		extracted string
		wantAsked string
	}{
		{"first filled asks second", `{"date_arrivee": "12 août"}`, "nombre_personnes"},
		{"second filled asks first", `{"nombre_personnes": "4"}`, "date_arrivee"},
		{"none filled asks first", `{}`, "date_arrivee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synth := &recordingSynthesizer{}
			h := newHarness(t,
				withCatalog(types.NewIntentCatalog(booking, catalog.FallbackIntent())),
				withSynthesizer(synth))
			h.nlu.intentFor = func(string) string { return "reservation" }
			h.nlu.extract = func(string) (string, error) { return tt.extracted, nil }

			res := h.orch.ProcessTurn(context.Background(), "s1", "Je voudrais réserver", annecy)

			require.Equal(t, types.StatusClarification, res.Status)
			assert.False(t, res.Complete)
			assert.Equal(t, []string{tt.wantAsked}, synth.asked)
			assert.Equal(t, tt.wantAsked, res.MissingSlots[0])
			assert.Equal(t, "Précisez "+tt.wantAsked, res.Message)
		})
	}
}

func TestProcessTurn_EnglishRestaurantRequest(t *testing.T) {
	h := newHarness(t)

	res := h.orch.ProcessTurn(context.Background(), "s1", "restaurant with terrace tonight", annecy)

	require.Equal(t, types.StatusClarification, res.Status)
	assert.Equal(t, "restaurant", res.Intent)
	assert.Equal(t, "ce soir", res.Slots["date_heure"])
	assert.Equal(t, "avec terrasse", res.Slots["terrasse"])
	assert.Equal(t, []string{"type_cuisine"}, res.MissingSlots)
}

func TestSessionLocks_ReleasesEntries(t *testing.T) {
	l := newSessionLocks()
	unlockA := l.lock("a")
	unlockB := l.lock("b")
	assert.Equal(t, 2, l.len())
	unlockA()
	unlockB()
	assert.Equal(t, 0, l.len())
}

func TestSuggestionsFor_ReturnsCopy(t *testing.T) {
	s := suggestionsFor("meteo")
	require.NotEmpty(t, s)
	s[0] = "changed"
	assert.NotEqual(t, "changed", suggestionsFor("meteo")[0])
	assert.Nil(t, suggestionsFor("unknown"))
}
