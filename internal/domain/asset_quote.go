package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RawAssetRecord is one element of the provider's /coins/markets response.
// Only the recognized columns are decoded; everything else the API returns
// is dropped at decode time. Pointer fields distinguish absent/null values.
type RawAssetRecord struct {
	ID            *string          `json:"id"`
	Symbol        *string          `json:"symbol"`
	Name          *string          `json:"name"`
	Image         *string          `json:"image"`
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	MarketCap     *decimal.Decimal `json:"market_cap"`
	MarketCapRank *int             `json:"market_cap_rank"`
}

// AssetQuote is one validated snapshot row of the crypto table.
// Rows are append-only; one row per (ID, CollectedAt) capture.
type AssetQuote struct {
	ID            string
	Symbol        string
	Name          string
	Image         *string
	CurrentPrice  decimal.Decimal
	MarketCap     decimal.Decimal
	MarketCapRank *int
	CollectedAt   time.Time
}

// Validate maps a raw record into an AssetQuote stamped with the batch
// collection time. Required: id, symbol, name, current_price, market_cap.
// Image and rank stay nullable; rank must be non-negative when present.
func (r RawAssetRecord) Validate(collectedAt time.Time) (AssetQuote, error) {
	if r.ID == nil || *r.ID == "" {
		return AssetQuote{}, fmt.Errorf("missing required field id")
	}
	if r.Symbol == nil || *r.Symbol == "" {
		return AssetQuote{}, fmt.Errorf("missing required field symbol")
	}
	if r.Name == nil || *r.Name == "" {
		return AssetQuote{}, fmt.Errorf("missing required field name")
	}
	if r.CurrentPrice == nil {
		return AssetQuote{}, fmt.Errorf("missing required field current_price")
	}
	if r.CurrentPrice.IsNegative() {
		return AssetQuote{}, fmt.Errorf("current_price must be non-negative, got %s", r.CurrentPrice)
	}
	if r.MarketCap == nil {
		return AssetQuote{}, fmt.Errorf("missing required field market_cap")
	}
	if r.MarketCapRank != nil && *r.MarketCapRank < 0 {
		return AssetQuote{}, fmt.Errorf("market_cap_rank must be non-negative, got %d", *r.MarketCapRank)
	}
	return AssetQuote{
		ID:            *r.ID,
		Symbol:        *r.Symbol,
		Name:          *r.Name,
		Image:         r.Image,
		CurrentPrice:  *r.CurrentPrice,
		MarketCap:     *r.MarketCap,
		MarketCapRank: r.MarketCapRank,
		CollectedAt:   collectedAt.UTC(),
	}, nil
}
