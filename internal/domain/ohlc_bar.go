package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawBar is one [timestamp_ms, open, high, low, close] tuple from the
// provider's OHLC endpoint, tagged with the asset it was fetched for.
type RawBar struct {
	AssetID string
	Values  []json.Number
}

// OhlcBar is one validated candle of the crypto_ohlc table. CollectedAt is
// the candle open time. AssetID is persisted in the legacy "name" column.
// After deduplication at most one row exists per (AssetID, CollectedAt).
type OhlcBar struct {
	AssetID     string
	CollectedAt time.Time
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
}

// Validate maps a raw tuple into an OhlcBar. Tuples must carry exactly five
// values with a positive millisecond timestamp and four decimal prices.
func (r RawBar) Validate() (OhlcBar, error) {
	if r.AssetID == "" {
		return OhlcBar{}, fmt.Errorf("missing asset id")
	}
	if len(r.Values) != 5 {
		return OhlcBar{}, fmt.Errorf("expected 5 values [ts,o,h,l,c], got %d", len(r.Values))
	}
	tsMS, err := r.Values[0].Int64()
	if err != nil {
		// The API occasionally reports the timestamp as a float.
		f, ferr := r.Values[0].Float64()
		if ferr != nil {
			return OhlcBar{}, fmt.Errorf("invalid timestamp %q: %w", r.Values[0], err)
		}
		tsMS = int64(f)
	}
	if tsMS <= 0 {
		return OhlcBar{}, fmt.Errorf("timestamp must be positive, got %d", tsMS)
	}

	prices := make([]decimal.Decimal, 4)
	for i, label := range []string{"open", "high", "low", "close"} {
		d, err := decimal.NewFromString(r.Values[i+1].String())
		if err != nil {
			return OhlcBar{}, fmt.Errorf("invalid %s %q: %w", label, r.Values[i+1], err)
		}
		prices[i] = d
	}

	return OhlcBar{
		AssetID:     r.AssetID,
		CollectedAt: time.UnixMilli(tsMS).UTC(),
		Open:        prices[0],
		High:        prices[1],
		Low:         prices[2],
		Close:       prices[3],
	}, nil
}
