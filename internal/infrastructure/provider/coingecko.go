package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"marketpipe/internal/application"
	"marketpipe/internal/domain"
	"marketpipe/internal/infrastructure/httpx"

	"go.uber.org/zap"
)

const (
	marketsPath  = "/coins/markets"
	ohlcPathTmpl = "/coins/%s/ohlc"

	userAgent = "marketpipe/1.0"
)

// CoinGecko pulls market data from the public CoinGecko REST API. It paces
// per-asset calls serially; violating the pacing contract is what triggers
// the 429 path in the first place.
type CoinGecko struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	// PacingDelay is the minimum gap between consecutive per-asset calls.
	PacingDelay time.Duration
	// Cooldown is how long to pause after a 429 before moving on.
	Cooldown time.Duration
	Client   *httpx.Client
	Log      *zap.Logger
}

var _ application.MarketProvider = (*CoinGecko)(nil)

func (c *CoinGecko) FetchSnapshot(ctx context.Context, params application.SnapshotParams) ([]domain.RawAssetRecord, error) {
	if c.BaseURL == "" {
		return nil, errors.New("coingecko: missing base url")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("coingecko: invalid base url: %w", err)
	}
	u.Path += marketsPath
	q := u.Query()
	q.Set("vs_currency", params.VsCurrency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(params.PerPage))
	q.Set("page", strconv.Itoa(params.Page))
	q.Set("sparkline", "false")
	if c.APIKey != "" {
		q.Set("x_cg_demo_api_key", c.APIKey)
	}
	u.RawQuery = q.Encode()

	var raw []domain.RawAssetRecord
	if err := c.client().GetJSON(ctx, u.String(), &raw); err != nil {
		return nil, fmt.Errorf("coingecko: fetch snapshot: %w", err)
	}
	return raw, nil
}

func (c *CoinGecko) FetchOHLC(ctx context.Context, assetID string, windowDays int) ([]domain.RawBar, error) {
	if c.BaseURL == "" {
		return nil, errors.New("coingecko: missing base url")
	}
	if !domain.IsValidAssetID(assetID) {
		return nil, fmt.Errorf("coingecko: %w: %q", domain.ErrInvalidAssetID, assetID)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("coingecko: invalid base url: %w", err)
	}
	u.Path += fmt.Sprintf(ohlcPathTmpl, assetID)
	q := u.Query()
	q.Set("vs_currency", c.VsCurrency)
	q.Set("days", strconv.Itoa(windowDays))
	if c.APIKey != "" {
		q.Set("x_cg_demo_api_key", c.APIKey)
	}
	u.RawQuery = q.Encode()

	var tuples [][]json.Number
	if err := c.client().GetJSON(ctx, u.String(), &tuples); err != nil {
		return nil, fmt.Errorf("coingecko: fetch ohlc %s: %w", assetID, err)
	}
	bars := make([]domain.RawBar, 0, len(tuples))
	for _, t := range tuples {
		bars = append(bars, domain.RawBar{AssetID: assetID, Values: t})
	}
	return bars, nil
}

// FetchOHLCBatch walks assetIDs serially. One asset being rate-limited,
// delisted or slow never fails the batch; it is logged and skipped, and the
// loop continues with the next asset after the applicable pause.
func (c *CoinGecko) FetchOHLCBatch(ctx context.Context, assetIDs []string, windowDays int) ([]domain.RawBar, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	var all []domain.RawBar
	for i, id := range assetIDs {
		bars, err := c.FetchOHLC(ctx, id, windowDays)
		switch {
		case err == nil:
			all = append(all, bars...)
			log.Info("asset_fetched",
				zap.String("asset_id", id),
				zap.Int("bars", len(bars)),
				zap.Int("progress", i+1),
				zap.Int("total", len(assetIDs)),
			)
		case errors.Is(err, httpx.ErrRateLimited):
			log.Warn("asset_rate_limited", zap.String("asset_id", id), zap.Duration("cooldown", c.Cooldown))
			if err := sleepCtx(ctx, c.Cooldown); err != nil {
				return all, err
			}
			continue
		case errors.Is(err, httpx.ErrNotFound):
			// Possibly delisted.
			log.Warn("asset_not_found", zap.String("asset_id", id))
		case ctx.Err() != nil:
			return all, ctx.Err()
		default:
			log.Warn("asset_fetch_failed", zap.String("asset_id", id), zap.Error(err))
		}

		if i < len(assetIDs)-1 {
			if err := sleepCtx(ctx, c.PacingDelay); err != nil {
				return all, err
			}
		}
	}
	return all, nil
}

func (c *CoinGecko) client() *httpx.Client {
	if c.Client != nil {
		return c.Client
	}
	return &httpx.Client{UserAgent: userAgent}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
