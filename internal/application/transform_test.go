package application

import (
	"encoding/json"
	"testing"
	"time"

	"marketpipe/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func rawRecord(id string, rank int) domain.RawAssetRecord {
	sym := id[:3]
	name := id
	price := decimal.NewFromInt(100)
	cap := decimal.NewFromInt(1000)
	return domain.RawAssetRecord{
		ID:            &id,
		Symbol:        &sym,
		Name:          &name,
		CurrentPrice:  &price,
		MarketCap:     &cap,
		MarketCapRank: &rank,
	}
}

func TestTransformSnapshot_Empty(t *testing.T) {
	t.Parallel()
	_, _, err := TransformSnapshot(nil, time.Now())
	require.ErrorIs(t, err, ErrNoData)

	_, _, err = TransformSnapshot([]domain.RawAssetRecord{}, time.Now())
	require.ErrorIs(t, err, ErrNoData)
}

func TestTransformSnapshot_SkipsInvalidRows(t *testing.T) {
	t.Parallel()
	broken := rawRecord("solana", 3)
	broken.CurrentPrice = nil
	raw := []domain.RawAssetRecord{rawRecord("bitcoin", 1), rawRecord("ethereum", 2), broken}

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	quotes, rowErrs, err := TransformSnapshot(raw, at)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Len(t, rowErrs, 1)
	require.Contains(t, rowErrs[0].Err.Error(), "current_price")
	require.Contains(t, rowErrs[0].Row, "solana")
}

func TestTransformSnapshot_SharedBatchTimestamp(t *testing.T) {
	t.Parallel()
	raw := []domain.RawAssetRecord{rawRecord("bitcoin", 1), rawRecord("ethereum", 2)}
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	quotes, _, err := TransformSnapshot(raw, at)
	require.NoError(t, err)
	for _, q := range quotes {
		require.Equal(t, at, q.CollectedAt)
	}
}

func TestTransformOHLC(t *testing.T) {
	t.Parallel()
	good := domain.RawBar{AssetID: "bitcoin", Values: nums("1717200000000", "1", "2", "0.5", "1.5")}
	bad := domain.RawBar{AssetID: "bitcoin", Values: nums("1717200000000", "1", "2")}

	bars, rowErrs, err := TransformOHLC([]domain.RawBar{good, bad})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.Len(t, rowErrs, 1)
	require.Equal(t, "bitcoin", bars[0].AssetID)
}

func TestTransformOHLC_Empty(t *testing.T) {
	t.Parallel()
	_, _, err := TransformOHLC(nil)
	require.ErrorIs(t, err, ErrNoData)
}

func nums(vals ...string) []json.Number {
	out := make([]json.Number, len(vals))
	for i, v := range vals {
		out[i] = json.Number(v)
	}
	return out
}
