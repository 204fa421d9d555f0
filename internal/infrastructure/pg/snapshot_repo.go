package pg

import (
	"context"
	"time"

	"marketpipe/internal/application"
	"marketpipe/internal/domain"
	"marketpipe/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SnapshotRepo struct{ db *DB }

var _ application.SnapshotStore = (*SnapshotRepo)(nil)

func NewSnapshotRepo(db *DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

const snapshotColumns = `id, symbol, name, image, current_price, market_cap, market_cap_rank, collected_at`

// Append inserts the whole batch inside one transaction. Either every row
// commits or none does.
func (r *SnapshotRepo) Append(ctx context.Context, quotes []domain.AssetQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	const ins = `
        INSERT INTO crypto (id, symbol, name, image, current_price, market_cap, market_cap_rank, collected_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	log := logx.L().With(
		zap.String("repo", "snapshot"),
		zap.String("operation", "Append"),
		zap.Int("rows", len(quotes)),
	)

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		log.Error("sql.begin_failed", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, q := range quotes {
		b.Queue(ins, q.ID, q.Symbol, q.Name, q.Image, q.CurrentPrice, q.MarketCap, q.MarketCapRank, q.CollectedAt)
	}
	br := tx.SendBatch(ctx, b)
	for range quotes {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			log.Error("sql.batch_failed", zap.Error(err))
			return err
		}
	}
	if err := br.Close(); err != nil {
		log.Error("sql.batch_close_failed", zap.Error(err))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		log.Error("sql.commit_failed", zap.Error(err))
		return err
	}
	log.Info("sql.exec_success")
	return nil
}

// Latest picks one row per asset id: the maximum collected_at, ties broken
// by physical row id so repeated calls agree.
func (r *SnapshotRepo) Latest(ctx context.Context) ([]domain.AssetQuote, error) {
	const q = `
        SELECT ` + snapshotColumns + ` FROM (
            SELECT DISTINCT ON (id) ` + snapshotColumns + `
            FROM crypto
            ORDER BY id, collected_at DESC, ctid
        ) latest
        ORDER BY market_cap_rank ASC NULLS LAST, symbol ASC`
	return r.queryQuotes(ctx, "Latest", q)
}

func (r *SnapshotRepo) History(ctx context.Context, window time.Duration) ([]domain.AssetQuote, error) {
	const q = `
        SELECT ` + snapshotColumns + `
        FROM crypto
        WHERE collected_at >= $1
        ORDER BY collected_at DESC, market_cap_rank ASC NULLS LAST`
	cutoff := time.Now().UTC().Add(-window)
	return r.queryQuotes(ctx, "History", q, cutoff)
}

func (r *SnapshotRepo) TopN(ctx context.Context, n int) ([]domain.AssetQuote, error) {
	const q = `
        SELECT ` + snapshotColumns + ` FROM (
            SELECT DISTINCT ON (id) ` + snapshotColumns + `
            FROM crypto
            ORDER BY id, collected_at DESC, ctid
        ) latest
        WHERE market_cap_rank IS NOT NULL
        ORDER BY market_cap_rank ASC
        LIMIT $1`
	return r.queryQuotes(ctx, "TopN", q, n)
}

func (r *SnapshotRepo) TrackedAssetIDs(ctx context.Context, maxRank int) ([]string, error) {
	const q = `
        SELECT DISTINCT id
        FROM crypto
        WHERE market_cap_rank < $1
        ORDER BY id`
	log := logx.L().With(zap.String("repo", "snapshot"), zap.String("operation", "TrackedAssetIDs"))
	rows, err := r.db.Pool.Query(ctx, q, maxRank)
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SnapshotRepo) queryQuotes(ctx context.Context, op, q string, args ...any) ([]domain.AssetQuote, error) {
	log := logx.L().With(zap.String("repo", "snapshot"), zap.String("operation", op))
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	var out []domain.AssetQuote
	for rows.Next() {
		var aq domain.AssetQuote
		if err := rows.Scan(&aq.ID, &aq.Symbol, &aq.Name, &aq.Image, &aq.CurrentPrice, &aq.MarketCap, &aq.MarketCapRank, &aq.CollectedAt); err != nil {
			log.Error("sql.scan_failed", zap.Error(err))
			return nil, err
		}
		out = append(out, aq)
	}
	return out, rows.Err()
}
