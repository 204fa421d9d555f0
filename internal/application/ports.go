package application

import (
	"context"
	"time"

	"marketpipe/internal/domain"
)

// SnapshotParams selects the market snapshot universe for one extraction.
type SnapshotParams struct {
	VsCurrency string
	PerPage    int
	Page       int
}

// MarketProvider is the remote market-data API. Implementations only do
// network I/O; they never touch storage.
type MarketProvider interface {
	FetchSnapshot(ctx context.Context, params SnapshotParams) ([]domain.RawAssetRecord, error)
	FetchOHLC(ctx context.Context, assetID string, windowDays int) ([]domain.RawBar, error)
	// FetchOHLCBatch walks assetIDs serially with pacing between calls.
	// Rate-limited, delisted, or timed-out assets are skipped; the batch
	// returns whatever the remaining assets produced.
	FetchOHLCBatch(ctx context.Context, assetIDs []string, windowDays int) ([]domain.RawBar, error)
}

// SchemaManager owns idempotent table lifecycle. Running EnsureSchema N
// times has the same effect as running it once.
type SchemaManager interface {
	EnsureSchema(ctx context.Context) error
}

type SnapshotStore interface {
	// Append inserts the whole batch in one transaction; it never updates
	// or deletes existing rows.
	Append(ctx context.Context, quotes []domain.AssetQuote) error
	// Latest returns exactly one row per asset id, the one with the maximum
	// collected_at, ordered rank ASC nulls last then symbol ASC.
	Latest(ctx context.Context) ([]domain.AssetQuote, error)
	// History returns rows with collected_at at or after now-window,
	// ordered collected_at DESC then rank ASC.
	History(ctx context.Context, window time.Duration) ([]domain.AssetQuote, error)
	// TopN returns the n latest-snapshot rows with the smallest non-null
	// rank, ascending. Null-rank rows are excluded.
	TopN(ctx context.Context, n int) ([]domain.AssetQuote, error)
	// TrackedAssetIDs lists distinct asset ids with market_cap_rank below
	// maxRank; this is the OHLC pipeline's universe.
	TrackedAssetIDs(ctx context.Context, maxRank int) ([]string, error)
}

type BarStore interface {
	Append(ctx context.Context, bars []domain.OhlcBar) error
	// Deduplicate keeps one deterministic survivor per (asset, candle time)
	// group and reports how many rows were removed. Rerunning is a no-op.
	Deduplicate(ctx context.Context) (int64, error)
	// RebuildView recreates the per-asset view from current table content.
	// Valid when the asset has no rows yet.
	RebuildView(ctx context.Context, assetID string) error
	History(ctx context.Context, assetID string, window time.Duration) ([]domain.OhlcBar, error)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
