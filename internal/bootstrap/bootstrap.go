package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"marketpipe/internal/application"
	"marketpipe/internal/config"
	"marketpipe/internal/infrastructure/httpx"
	"marketpipe/internal/infrastructure/logx"
	"marketpipe/internal/infrastructure/pg"
	"marketpipe/internal/infrastructure/provider"
	redisstore "marketpipe/internal/infrastructure/redis"

	"github.com/redis/go-redis/v9"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required")

type Stores struct {
	DB        *pg.DB
	Snapshots application.SnapshotStore
	Bars      application.BarStore
}

// BuildStores connects to Postgres and wires the repositories. Migrations
// run here so the API can serve immediately; the pipelines re-run them as
// their EnsureSchema step, which is a no-op once applied.
func BuildStores(ctx context.Context, cfg config.Config) (Stores, func(), error) {
	log := logx.L()
	if cfg.DatabaseURL == "" {
		return Stores{}, func() {}, ErrMissingDBURL
	}
	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Stores{}, func() {}, err
	}
	if err := pg.RunMigrations(ctx, db); err != nil {
		db.Close()
		return Stores{}, func() {}, err
	}
	cleanup := func() {
		log.Info("closing pg")
		db.Close()
	}
	return Stores{
		DB:        db,
		Snapshots: pg.NewSnapshotRepo(db),
		Bars:      pg.NewBarRepo(db),
	}, cleanup, nil
}

func BuildProvider(cfg config.Config) application.MarketProvider {
	switch cfg.Provider {
	case "fake":
		return provider.NewFake()
	default:
		return &provider.CoinGecko{
			BaseURL:     cfg.CoinGeckoBaseURL,
			APIKey:      cfg.CoinGeckoAPIKey,
			VsCurrency:  cfg.VsCurrency,
			PacingDelay: cfg.PacingDelay,
			Cooldown:    cfg.RateLimitCooldown,
			Client: &httpx.Client{
				HTTP:      &http.Client{Timeout: cfg.HTTPTimeout},
				UserAgent: "marketpipe/1.0",
			},
			Log: logx.L(),
		}
	}
}

// BuildExtractCache returns the redis-backed cache when enabled, otherwise
// a noop that always misses.
func BuildExtractCache(cfg config.Config) (application.ExtractCache, func()) {
	if cfg.CacheBackend != "redis" {
		return application.NoopCache{}, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return redisstore.New(client, cfg.ExtractCacheTTL), func() { _ = client.Close() }
}

func BuildSnapshotPipeline(cfg config.Config, stores Stores, prov application.MarketProvider, cache application.ExtractCache) *application.SnapshotPipeline {
	policy := application.StepPolicy{
		MaxAttempts: cfg.StepMaxAttempts,
		RetryDelay:  cfg.StepRetryDelay,
		Timeout:     cfg.SnapshotStepTimeout,
	}
	return &application.SnapshotPipeline{
		Schema:   stores.DB,
		Provider: prov,
		Store:    stores.Snapshots,
		Cache:    cache,
		Params: application.SnapshotParams{
			VsCurrency: cfg.VsCurrency,
			PerPage:    cfg.SnapshotPerPage,
			Page:       cfg.SnapshotPage,
		},
		Policies: application.SnapshotPolicies{
			EnsureSchema: policy,
			Extract:      policy,
			Transform:    policy,
			Load:         policy,
		},
		Log: logx.L(),
	}
}

func BuildOHLCPipeline(cfg config.Config, stores Stores, prov application.MarketProvider, cache application.ExtractCache) *application.OHLCPipeline {
	policy := application.StepPolicy{
		MaxAttempts: cfg.StepMaxAttempts,
		RetryDelay:  cfg.OHLCRetryDelay,
		Timeout:     cfg.SnapshotStepTimeout,
	}
	// Extraction paces dozens of per-asset calls; it gets a much wider
	// timeout than the storage steps.
	extract := application.StepPolicy{
		MaxAttempts: cfg.StepMaxAttempts,
		RetryDelay:  cfg.OHLCRetryDelay,
		Timeout:     cfg.OHLCExtractTimeout,
	}
	return &application.OHLCPipeline{
		Schema:     stores.DB,
		Provider:   prov,
		Snapshots:  stores.Snapshots,
		Bars:       stores.Bars,
		Cache:      cache,
		VsCurrency: cfg.VsCurrency,
		WindowDays: cfg.OHLCWindowDays,
		MaxRank:    cfg.OHLCMaxRank,
		Policies: application.OHLCPolicies{
			EnsureSchema: policy,
			Discover:     policy,
			Extract:      extract,
			Transform:    policy,
			Load:         policy,
			Deduplicate:  policy,
			RebuildViews: policy,
		},
		Log: logx.L(),
	}
}

func BuildQueryService(stores Stores) *application.QueryService {
	return application.NewQueryService(stores.Snapshots, stores.Bars)
}
