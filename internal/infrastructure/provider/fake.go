package provider

import (
	"context"
	"encoding/json"
	"strconv"

	"marketpipe/internal/application"
	"marketpipe/internal/domain"

	"github.com/shopspring/decimal"
)

// Fake serves deterministic canned data for local runs and wiring tests.
type Fake struct {
	Assets []string
}

var _ application.MarketProvider = (*Fake)(nil)

func NewFake(assets ...string) *Fake {
	if len(assets) == 0 {
		assets = []string{"bitcoin", "ethereum"}
	}
	return &Fake{Assets: assets}
}

func (f *Fake) FetchSnapshot(_ context.Context, _ application.SnapshotParams) ([]domain.RawAssetRecord, error) {
	out := make([]domain.RawAssetRecord, 0, len(f.Assets))
	for i, id := range f.Assets {
		id := id
		rank := i + 1
		price := decimal.NewFromInt(int64(1000 * (i + 1)))
		cap := decimal.NewFromInt(int64(1_000_000 * (i + 1)))
		out = append(out, domain.RawAssetRecord{
			ID:            &id,
			Symbol:        &id,
			Name:          &id,
			CurrentPrice:  &price,
			MarketCap:     &cap,
			MarketCapRank: &rank,
		})
	}
	return out, nil
}

func (f *Fake) FetchOHLC(_ context.Context, assetID string, windowDays int) ([]domain.RawBar, error) {
	bars := make([]domain.RawBar, 0, windowDays)
	for d := 0; d < windowDays; d++ {
		ts := 1_700_000_000_000 + int64(d)*86_400_000
		bars = append(bars, domain.RawBar{
			AssetID: assetID,
			Values: []json.Number{
				json.Number(strconv.FormatInt(ts, 10)),
				"100", "110", "90", "105",
			},
		})
	}
	return bars, nil
}

func (f *Fake) FetchOHLCBatch(ctx context.Context, assetIDs []string, windowDays int) ([]domain.RawBar, error) {
	var all []domain.RawBar
	for _, id := range assetIDs {
		bars, err := f.FetchOHLC(ctx, id, windowDays)
		if err != nil {
			return nil, err
		}
		all = append(all, bars...)
	}
	return all, nil
}
