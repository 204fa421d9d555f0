package pg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketpipe/internal/application"
	"marketpipe/internal/domain"
	"marketpipe/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BarRepo struct{ db *DB }

var _ application.BarStore = (*BarRepo)(nil)

func NewBarRepo(db *DB) *BarRepo { return &BarRepo{db: db} }

func (r *BarRepo) Append(ctx context.Context, bars []domain.OhlcBar) error {
	if len(bars) == 0 {
		return nil
	}
	const ins = `
        INSERT INTO crypto_ohlc (collected_at, name, open, high, low, close)
        VALUES ($1, $2, $3, $4, $5, $6)`
	log := logx.L().With(
		zap.String("repo", "bar"),
		zap.String("operation", "Append"),
		zap.Int("rows", len(bars)),
	)

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		log.Error("sql.begin_failed", zap.Error(err))
		return err
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, bar := range bars {
		b.Queue(ins, bar.CollectedAt, bar.AssetID, bar.Open, bar.High, bar.Low, bar.Close)
	}
	br := tx.SendBatch(ctx, b)
	for range bars {
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

// Deduplicate keeps the lowest-ctid row of every (name, collected_at) group.
// The survivor choice is deterministic, so reruns converge and are no-ops
// once no duplicates remain.
func (r *BarRepo) Deduplicate(ctx context.Context) (int64, error) {
	const del = `
        DELETE FROM crypto_ohlc a
        WHERE a.ctid <> (
            SELECT min(b.ctid)
            FROM crypto_ohlc b
            WHERE b.name = a.name
              AND b.collected_at = a.collected_at
        )`
	log := logx.L().With(zap.String("repo", "bar"), zap.String("operation", "Deduplicate"))
	tag, err := r.db.Pool.Exec(ctx, del)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return 0, err
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// RebuildView recreates the per-asset view. The asset id is validated before
// it is interpolated into the DDL; view DDL cannot take bind parameters.
func (r *BarRepo) RebuildView(ctx context.Context, assetID string) error {
	if !domain.IsValidAssetID(assetID) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAssetID, assetID)
	}
	viewName := "crypto_ohlc_" + strings.ReplaceAll(assetID, "-", "_")
	ddl := fmt.Sprintf(`
        CREATE OR REPLACE VIEW %s AS
        SELECT collected_at, name, open, high, low, close
        FROM crypto_ohlc
        WHERE name = '%s'`, viewName, assetID)
	log := logx.L().With(
		zap.String("repo", "bar"),
		zap.String("operation", "RebuildView"),
		zap.String("view", viewName),
	)
	if _, err := r.db.Pool.Exec(ctx, ddl); err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Info("sql.exec_success")
	return nil
}

func (r *BarRepo) History(ctx context.Context, assetID string, window time.Duration) ([]domain.OhlcBar, error) {
	const q = `
        SELECT collected_at, name, open, high, low, close
        FROM crypto_ohlc
        WHERE name = $1 AND collected_at >= $2
        ORDER BY collected_at DESC`
	log := logx.L().With(zap.String("repo", "bar"), zap.String("operation", "History"))
	cutoff := time.Now().UTC().Add(-window)
	rows, err := r.db.Pool.Query(ctx, q, assetID, cutoff)
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	var out []domain.OhlcBar
	for rows.Next() {
		var bar domain.OhlcBar
		if err := rows.Scan(&bar.CollectedAt, &bar.AssetID, &bar.Open, &bar.High, &bar.Low, &bar.Close); err != nil {
			log.Error("sql.scan_failed", zap.Error(err))
			return nil, err
		}
		out = append(out, bar)
	}
	return out, rows.Err()
}
