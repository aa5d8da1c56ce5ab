package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/ai"
	"github.com/spigell/matchmaker/internal/ai/cache"
	"github.com/spigell/matchmaker/internal/ai/gemini"
	"github.com/spigell/matchmaker/internal/filtering"
	"github.com/spigell/matchmaker/internal/intro"
	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/match"
	"github.com/spigell/matchmaker/internal/matching"
	"github.com/spigell/matchmaker/internal/observability"
	"github.com/spigell/matchmaker/internal/policy"
	"github.com/spigell/matchmaker/internal/profile"
	"github.com/spigell/matchmaker/internal/scoring"
	"github.com/spigell/matchmaker/internal/secrets"
	"github.com/spigell/matchmaker/internal/server"
	"github.com/spigell/matchmaker/internal/storage/memory"
	"github.com/spigell/matchmaker/internal/storage/postgres"
	"github.com/spigell/matchmaker/internal/storage/remote"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverRemote   = "remote"
)

// components is everything a command needs to run the matching engine.
type components struct {
	profiles    profile.Store
	suggestions match.Store
	engine      *matching.Engine
	metrics     *observability.Metrics
	health      []server.Option
	closers     []func() error
}

func (c *components) Close(log *zap.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn("closing resources", zap.Error(err))
		}
	}
}

func (c *components) check(name string, v any) {
	if p, ok := v.(server.Pinger); ok {
		c.health = append(c.health, server.WithHealthCheck(name, p))
	}
}

func build(ctx context.Context, config *Config, log *zap.Logger) (*components, error) {
	if config == nil || config.Storage == nil || config.Matching == nil {
		return nil, errors.New("config is required")
	}

	c := &components{}

	if err := c.openStorage(ctx, config.Storage, log); err != nil {
		c.Close(log)
		return nil, err
	}

	metrics, err := observability.New(app)
	if err != nil {
		c.Close(log)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	c.metrics = metrics
	c.closers = append(c.closers, func() error { return metrics.Shutdown(context.Background()) })

	generator, err := c.newGenerator(ctx, config.AI, log)
	if err != nil {
		log.Warn("external ai is unavailable, every score will come from the fallback scorer", zap.Error(err))
		generator = nil
	}

	steps, err := prepareFilters(config.Matching)
	if err != nil {
		c.Close(log)
		return nil, err
	}

	for _, st := range filtering.Describe(steps) {
		log.Debug("filter", zap.String("name", st.Name), zap.Bool("enabled", st.Enabled), zap.Any("details", st.Details))
	}

	maxLogLength := 0
	if config.AI != nil && config.AI.Gemini != nil {
		maxLogLength = config.AI.Gemini.MaxLogLength
	}

	p := policy.Default()
	selector := matching.NewSelector(c.profiles, p, config.Matching.CandidatePoolOnly)
	scorer := scoring.NewCompatibility(generator, nil, p, log, maxLogLength).WithObserver(metrics)
	intros := intro.NewGenerator(generator, log, maxLogLength).WithObserver(metrics)

	c.engine = matching.NewEngine(selector, scorer, intros, steps, c.suggestions, matching.Config{
		PoolLimit:   config.Matching.PoolLimit,
		Concurrency: config.Matching.Concurrency,
		Intro:       config.Matching.Intro,
	}, log).WithObserver(metrics)

	return c, nil
}

func prepareFilters(cfg *MatchingConfig) ([]filtering.Filter, error) {
	steps := filtering.Default()

	for _, name := range cfg.DisabledFilters {
		if err := filtering.DisableByName(steps, strings.TrimSpace(name), "disabled by configuration"); err != nil {
			return nil, fmt.Errorf("matching.disabled-filters: %w", err)
		}
	}

	if err := filtering.Validate(&filtering.Config{
		MinScore:          cfg.MinScore,
		ExcludeCandidates: cfg.ExcludeCandidates,
		ExcludeFile:       cfg.ExcludeFile,
	}, steps); err != nil {
		return nil, fmt.Errorf("preparing filters: %w", err)
	}

	return steps, nil
}

func (c *components) openStorage(ctx context.Context, cfg *StorageConfig, log *zap.Logger) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	log.Info("opening storage", zap.String("driver", driver))

	switch driver {
	case driverMemory, "":
		return c.openMemory(cfg.Memory, log)
	case driverPostgres:
		db, err := openPostgres(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, db.Close)
		c.profiles = postgres.NewProfileStore(db)
		c.suggestions = postgres.NewSuggestionStore(db)
		c.check("postgres", db)
		return nil
	case driverRemote:
		return c.openRemote(ctx, cfg, log)
	default:
		return fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func (c *components) openMemory(cfg *MemoryConfig, log *zap.Logger) error {
	var profiles []*profile.Profile
	if cfg != nil && cfg.SeedFile != "" {
		loaded, err := memory.LoadProfiles(cfg.SeedFile)
		if err != nil {
			return err
		}
		profiles = loaded
	}

	log.Info("loaded profiles", zap.Int("count", len(profiles)))

	store := memory.NewProfileStore(profiles...)
	c.profiles = store
	c.suggestions = memory.NewSuggestionStore()
	c.check("profiles", store)
	return nil
}

func (c *components) openRemote(ctx context.Context, cfg *StorageConfig, log *zap.Logger) error {
	if cfg.Remote == nil || cfg.Remote.URL == "" {
		return errors.New("storage.remote.url is required for the remote driver")
	}

	token, err := secrets.Load(secrets.Source{
		Name:  "crm token",
		Value: cfg.Remote.Token,
		File:  cfg.Remote.TokenFile,
		Env:   "CRM_TOKEN",
	})
	if err != nil {
		return fmt.Errorf("%w (set storage.remote.token-file or CRM_TOKEN_FILE)", err)
	}

	client := remote.New(log, cfg.Remote.URL, token)
	if cfg.Remote.UserAgent != "" {
		client.UserAgent = cfg.Remote.UserAgent
	}
	store := remote.NewProfileStore(client)
	c.profiles = store
	c.check("crm", store)

	// The CRM is read-only, suggestions go to Postgres when it is configured.
	if cfg.Postgres == nil || cfg.Postgres.DSN == "" {
		log.Warn("storage.postgres.dsn is not set, suggestions are kept in memory only")
		c.suggestions = memory.NewSuggestionStore()
		return nil
	}

	db, err := openPostgres(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, db.Close)
	c.suggestions = postgres.NewSuggestionStore(db)
	c.check("postgres", db)
	return nil
}

func openPostgres(ctx context.Context, cfg *PostgresConfig) (*postgres.DB, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, errors.New("storage.postgres.dsn is required for the postgres driver")
	}

	db, err := postgres.Open(ctx, cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// newGenerator builds the process-wide external capability shared by the
// scorer and the intro generator. A nil generator with a nil error means the
// capability is disabled.
func (c *components) newGenerator(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Generator, error) {
	if cfg == nil || !cfg.Enabled {
		log.Info("external ai is disabled")
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithCommonFields(log, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	gen, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}
	gen.Timeout = cfg.Gemini.Timeout

	if cfg.Cache == nil || !cfg.Cache.Enabled {
		return gen, nil
	}

	if cfg.Cache.RedisAddress == "" {
		log.Warn("ai.cache.redis-address is not set, response cache disabled")
		return gen, nil
	}

	client := cache.NewClient(cfg.Cache.RedisAddress, cfg.Cache.RedisPassword)
	c.closers = append(c.closers, client.Close)

	cached := cache.New(gen, client, cfg.Cache.TTL, log.With(zap.String("component", "ai-cache")))
	c.check("redis", cached)

	return cached, nil
}
