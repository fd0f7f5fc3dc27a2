package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/alpine-guide/app/db"
	"github.com/FACorreiaa/alpine-guide/config"
	"github.com/FACorreiaa/alpine-guide/internal/api/cache"
	"github.com/FACorreiaa/alpine-guide/internal/api/catalog"
	"github.com/FACorreiaa/alpine-guide/internal/api/chat"
	"github.com/FACorreiaa/alpine-guide/internal/api/dialogue"
	generativeAI "github.com/FACorreiaa/alpine-guide/internal/api/generative_ai"
	"github.com/FACorreiaa/alpine-guide/internal/api/intent"
	"github.com/FACorreiaa/alpine-guide/internal/api/poi"
	"github.com/FACorreiaa/alpine-guide/internal/api/session"
	"github.com/FACorreiaa/alpine-guide/internal/api/slots"
	"github.com/FACorreiaa/alpine-guide/internal/api/synthesis"
	"github.com/FACorreiaa/alpine-guide/internal/api/weather"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *slog.Logger
	Pool         *pgxpool.Pool
	Cache        *cache.Manager
	Sessions     session.Store
	Orchestrator *dialogue.Orchestrator
	ChatHandler  *chat.HandlerImpl

	closers []func() error
}

// NewContainer wires the dialogue engine. Only configuration errors are
// returned; Redis and Postgres outages degrade the service instead.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	intents, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Intent catalog loaded", slog.Int("intents", intents.Len()))

	nlu, err := newNLU(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := cache.Connect(ctx, cache.Options{
		RedisURL:         cfg.Cache.RedisURL,
		PingTimeout:      cfg.Cache.PingTimeout,
		PingRetries:      cfg.Cache.PingRetries,
		MemoryMaxEntries: cfg.Cache.MemoryMaxEntries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: cache: %v", types.ErrConfiguration, err)
	}
	c.Cache = cache.NewManager(store, cache.NewTTLPolicy(cfg.Cache.TTL, 0), cfg.Cache.KeyPrefix, logger)

	if rs, ok := store.(*cache.RedisStore); ok {
		c.Sessions = session.NewRedisStore(rs.Client(), cfg.Session.KeyPrefix, cfg.Session.Timeout)
		c.closers = append(c.closers, rs.Close)
	} else {
		c.Sessions = session.NewMemoryStore(cfg.Session.Timeout)
	}

	deps := dialogue.Dependencies{
		Catalog:     intents,
		Sessions:    c.Sessions,
		Classifier:  intent.NewClassifier(nlu, c.Cache, logger),
		Extractor:   slots.NewExtractor(nlu, c.Cache, logger),
		Synthesizer: synthesis.NewSynthesizer(nlu, logger),
		Cache:       c.Cache,
		Weather: weather.NewService(
			weather.NewOpenMeteoClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, logger),
			weather.NewSeasonalWaterEstimator(),
			c.Cache,
			logger,
		),
	}

	if cfg.PostgresEnabled() {
		if pool := c.connectPostgres(ctx); pool != nil {
			repo := poi.NewPostgresRepository(pool, logger)
			deps.POIs = poi.NewService(repo, c.Cache, cfg.POI.Limit, logger)
		}
	} else {
		logger.WarnContext(ctx, "Postgres not configured, answers will carry no POI data")
	}

	c.Orchestrator = dialogue.NewOrchestrator(deps, dialogue.Options{
		HistoryCap:   cfg.Session.HistoryCap,
		FetchTimeout: cfg.Weather.FetchTimeout,
	}, logger)
	c.ChatHandler = chat.NewHandlerImpl(c.Orchestrator, c.Cache, c.Sessions, intents.Len(), logger)
	return c, nil
}

func newNLU(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*generativeAI.Chain, error) {
	gemini, err := generativeAI.NewGeminiProvider(ctx, cfg.NLU.GeminiAPIKey, cfg.NLU.GeminiModel, cfg.NLU.Temperature)
	if err != nil {
		return nil, err
	}
	var secondary generativeAI.Provider
	if cfg.NLU.MistralAPIKey != "" {
		secondary = generativeAI.NewMistralProvider(cfg.NLU.MistralBaseURL, cfg.NLU.MistralAPIKey, cfg.NLU.MistralModel, cfg.NLU.Timeout)
	} else {
		logger.WarnContext(ctx, "MISTRAL_API_KEY not set, running without a secondary provider")
	}
	return generativeAI.NewChain(gemini, secondary, cfg.NLU.Timeout, logger), nil
}

// connectPostgres migrates and opens the pool, returning nil when the
// database cannot be reached.
func (c *Container) connectPostgres(ctx context.Context) *pgxpool.Pool {
	dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
	if err != nil {
		c.Logger.ErrorContext(ctx, "Failed to generate database config", slog.Any("error", err))
		return nil
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		c.Logger.ErrorContext(ctx, "Failed to run database migrations", slog.Any("error", err))
		return nil
	}
	pool, err := database.Init(dbConfig.ConnectionURL, c.Logger)
	if err != nil {
		c.Logger.ErrorContext(ctx, "Failed to initialize database pool", slog.Any("error", err))
		return nil
	}
	if !database.WaitForDB(ctx, pool, c.Logger) {
		pool.Close()
		return nil
	}
	c.Pool = pool
	return pool
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			c.Logger.Warn("Error closing resource", slog.Any("error", err))
		}
	}
}
