package application

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"marketpipe/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SnapshotPolicies configures the snapshot pipeline steps independently.
type SnapshotPolicies struct {
	EnsureSchema StepPolicy
	Extract      StepPolicy
	Transform    StepPolicy
	Load         StepPolicy
}

// SnapshotPipeline runs EnsureSchema -> Extract -> Transform -> Load for the
// market snapshot table. A step that exhausts its retries fails the run and
// later steps do not execute.
type SnapshotPipeline struct {
	Schema   SchemaManager
	Provider MarketProvider
	Store    SnapshotStore
	Cache    ExtractCache
	Params   SnapshotParams
	Policies SnapshotPolicies
	Clock    Clock
	Log      *zap.Logger
}

// Run executes one snapshot pipeline run and returns the number of rows
// loaded, or the first unrecoverable error.
func (p *SnapshotPipeline) Run(ctx context.Context) (int, error) {
	log := p.logger().With(
		zap.String("pipeline", "snapshot"),
		zap.String("run_id", uuid.NewString()),
	)
	clock := p.Clock
	if clock == nil {
		clock = realClock{}
	}

	if err := runStep(ctx, log, "EnsureSchema", p.Policies.EnsureSchema, p.Schema.EnsureSchema); err != nil {
		return 0, err
	}

	var raw []domain.RawAssetRecord
	err := runStep(ctx, log, "Extract", p.Policies.Extract, func(stepCtx context.Context) error {
		var err error
		raw, err = p.extract(stepCtx, log)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Info("extracted", zap.Int("records", len(raw)))

	var quotes []domain.AssetQuote
	err = runStep(ctx, log, "Transform", p.Policies.Transform, func(context.Context) error {
		var rowErrs []RowError
		var err error
		quotes, rowErrs, err = TransformSnapshot(raw, clock.Now())
		if err != nil {
			return err
		}
		reportRowErrors(log, rowErrs)
		log.Info("transformed", zap.Int("valid_rows", len(quotes)), zap.Int("rejected_rows", len(rowErrs)))
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = runStep(ctx, log, "Load", p.Policies.Load, func(stepCtx context.Context) error {
		return p.Store.Append(stepCtx, quotes)
	})
	if err != nil {
		return 0, err
	}
	log.Info("loaded", zap.Int("rows", len(quotes)))
	return len(quotes), nil
}

func (p *SnapshotPipeline) extract(ctx context.Context, log *zap.Logger) ([]domain.RawAssetRecord, error) {
	cache := p.cache()
	key := fmt.Sprintf("marketpipe:extract:snapshot:%s:%d:%d", p.Params.VsCurrency, p.Params.PerPage, p.Params.Page)
	if payload, ok, err := cache.Get(ctx, key); err != nil {
		log.Warn("extract_cache_get_failed", zap.Error(err))
	} else if ok {
		var raw []domain.RawAssetRecord
		if err := json.Unmarshal(payload, &raw); err == nil {
			log.Info("extract_cache_hit", zap.String("key", key))
			return raw, nil
		}
		log.Warn("extract_cache_corrupt", zap.String("key", key))
	}

	raw, err := p.Provider.FetchSnapshot(ctx, p.Params)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(raw); err == nil {
		if err := cache.Set(ctx, key, payload); err != nil {
			log.Warn("extract_cache_set_failed", zap.Error(err))
		}
	}
	return raw, nil
}

func (p *SnapshotPipeline) logger() *zap.Logger {
	if p.Log != nil {
		return p.Log
	}
	return zap.NewNop()
}

func (p *SnapshotPipeline) cache() ExtractCache {
	if p.Cache != nil {
		return p.Cache
	}
	return NoopCache{}
}

// OHLCPolicies configures the OHLC pipeline steps independently.
type OHLCPolicies struct {
	EnsureSchema StepPolicy
	Discover     StepPolicy
	Extract      StepPolicy
	Transform    StepPolicy
	Load         StepPolicy
	Deduplicate  StepPolicy
	RebuildViews StepPolicy
}

// OHLCPipeline runs EnsureSchema -> Discover -> Extract -> Transform -> Load
// -> Deduplicate -> RebuildViews for the candle table. The universe comes
// from the snapshot table: assets ranked below MaxRank.
type OHLCPipeline struct {
	Schema     SchemaManager
	Provider   MarketProvider
	Snapshots  SnapshotStore
	Bars       BarStore
	Cache      ExtractCache
	VsCurrency string
	WindowDays int
	MaxRank    int
	Policies   OHLCPolicies
	Log        *zap.Logger
}

func (p *OHLCPipeline) Run(ctx context.Context) (int, error) {
	log := p.logger().With(
		zap.String("pipeline", "ohlc"),
		zap.String("run_id", uuid.NewString()),
	)

	if err := runStep(ctx, log, "EnsureSchema", p.Policies.EnsureSchema, p.Schema.EnsureSchema); err != nil {
		return 0, err
	}

	var assetIDs []string
	err := runStep(ctx, log, "Discover", p.Policies.Discover, func(stepCtx context.Context) error {
		var err error
		assetIDs, err = p.Snapshots.TrackedAssetIDs(stepCtx, p.MaxRank)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Info("discovered_assets", zap.Int("assets", len(assetIDs)))

	var raw []domain.RawBar
	err = runStep(ctx, log, "Extract", p.Policies.Extract, func(stepCtx context.Context) error {
		var err error
		raw, err = p.extract(stepCtx, log, assetIDs)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Info("extracted", zap.Int("records", len(raw)))

	var bars []domain.OhlcBar
	err = runStep(ctx, log, "Transform", p.Policies.Transform, func(context.Context) error {
		var rowErrs []RowError
		var err error
		bars, rowErrs, err = TransformOHLC(raw)
		if err != nil {
			return err
		}
		reportRowErrors(log, rowErrs)
		log.Info("transformed", zap.Int("valid_rows", len(bars)), zap.Int("rejected_rows", len(rowErrs)))
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = runStep(ctx, log, "Load", p.Policies.Load, func(stepCtx context.Context) error {
		return p.Bars.Append(stepCtx, bars)
	})
	if err != nil {
		return 0, err
	}
	log.Info("loaded", zap.Int("rows", len(bars)))

	err = runStep(ctx, log, "Deduplicate", p.Policies.Deduplicate, func(stepCtx context.Context) error {
		removed, err := p.Bars.Deduplicate(stepCtx)
		if err != nil {
			return err
		}
		log.Info("deduplicated", zap.Int64("rows_removed", removed))
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = runStep(ctx, log, "RebuildViews", p.Policies.RebuildViews, func(stepCtx context.Context) error {
		for _, id := range assetIDs {
			if err := p.Bars.RebuildView(stepCtx, id); err != nil {
				return fmt.Errorf("rebuild view for %s: %w", id, err)
			}
		}
		log.Info("views_rebuilt", zap.Int("assets", len(assetIDs)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(bars), nil
}

func (p *OHLCPipeline) extract(ctx context.Context, log *zap.Logger, assetIDs []string) ([]domain.RawBar, error) {
	cache := p.cache()
	key := p.cacheKey(assetIDs)
	if payload, ok, err := cache.Get(ctx, key); err != nil {
		log.Warn("extract_cache_get_failed", zap.Error(err))
	} else if ok {
		var raw []domain.RawBar
		if err := json.Unmarshal(payload, &raw); err == nil {
			log.Info("extract_cache_hit", zap.String("key", key))
			return raw, nil
		}
		log.Warn("extract_cache_corrupt", zap.String("key", key))
	}

	raw, err := p.Provider.FetchOHLCBatch(ctx, assetIDs, p.WindowDays)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(raw); err == nil {
		if err := cache.Set(ctx, key, payload); err != nil {
			log.Warn("extract_cache_set_failed", zap.Error(err))
		}
	}
	return raw, nil
}

// cacheKey fingerprints the extraction input: currency, lookback and the
// asset universe. The id list is hashed to keep keys bounded.
func (p *OHLCPipeline) cacheKey(assetIDs []string) string {
	sum := sha256.Sum256([]byte(strings.Join(assetIDs, ",")))
	return fmt.Sprintf("marketpipe:extract:ohlc:%s:%d:%x", p.VsCurrency, p.WindowDays, sum[:8])
}

func (p *OHLCPipeline) logger() *zap.Logger {
	if p.Log != nil {
		return p.Log
	}
	return zap.NewNop()
}

func (p *OHLCPipeline) cache() ExtractCache {
	if p.Cache != nil {
		return p.Cache
	}
	return NoopCache{}
}

func reportRowErrors(log *zap.Logger, rowErrs []RowError) {
	for _, re := range rowErrs {
		log.Warn("row_rejected", zap.String("row", re.Row), zap.Error(re.Err))
	}
}
