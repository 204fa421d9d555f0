package application

import (
	"context"
	"time"

	"marketpipe/internal/domain"
)

// QueryService is the read-side boundary the dashboard consumes. It only
// reads the persisted tables; pipelines own all writes.
type QueryService struct {
	snapshots SnapshotStore
	bars      BarStore
}

func NewQueryService(snapshots SnapshotStore, bars BarStore) *QueryService {
	return &QueryService{snapshots: snapshots, bars: bars}
}

func (s *QueryService) LatestSnapshot(ctx context.Context) ([]domain.AssetQuote, error) {
	return s.snapshots.Latest(ctx)
}

func (s *QueryService) History(ctx context.Context, window time.Duration) ([]domain.AssetQuote, error) {
	return s.snapshots.History(ctx, window)
}

func (s *QueryService) TopN(ctx context.Context, n int) ([]domain.AssetQuote, error) {
	return s.snapshots.TopN(ctx, n)
}

func (s *QueryService) AssetOHLC(ctx context.Context, assetID string, window time.Duration) ([]domain.OhlcBar, error) {
	if !domain.IsValidAssetID(assetID) {
		return nil, domain.ErrInvalidAssetID
	}
	return s.bars.History(ctx, assetID, window)
}
