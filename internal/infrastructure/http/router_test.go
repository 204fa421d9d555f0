package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketpipe/internal/domain"
	httpserver "marketpipe/internal/infrastructure/http"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubQueries struct {
	latest  []domain.AssetQuote
	history []domain.AssetQuote
	top     []domain.AssetQuote
	bars    []domain.OhlcBar
	err     error

	gotWindow time.Duration
	gotN      int
	gotAsset  string
}

func (s *stubQueries) LatestSnapshot(context.Context) ([]domain.AssetQuote, error) {
	return s.latest, s.err
}

func (s *stubQueries) History(_ context.Context, window time.Duration) ([]domain.AssetQuote, error) {
	s.gotWindow = window
	return s.history, s.err
}

func (s *stubQueries) TopN(_ context.Context, n int) ([]domain.AssetQuote, error) {
	s.gotN = n
	return s.top, s.err
}

func (s *stubQueries) AssetOHLC(_ context.Context, assetID string, window time.Duration) ([]domain.OhlcBar, error) {
	s.gotAsset = assetID
	s.gotWindow = window
	if !domain.IsValidAssetID(assetID) {
		return nil, domain.ErrInvalidAssetID
	}
	return s.bars, s.err
}

func newTestRouter(q *stubQueries, ping func(context.Context) error) http.Handler {
	return httpserver.NewRouter(httpserver.NewServer(q, ping))
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleQuote(id string, rank int) domain.AssetQuote {
	r := rank
	return domain.AssetQuote{
		ID:            id,
		Symbol:        "btc",
		Name:          "Bitcoin",
		CurrentPrice:  decimal.NewFromInt(350000),
		MarketCap:     decimal.NewFromInt(1000000),
		MarketCapRank: &r,
		CollectedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetLatestSnapshot(t *testing.T) {
	q := &stubQueries{latest: []domain.AssetQuote{sampleQuote("bitcoin", 1)}}
	rec := doGet(t, newTestRouter(q, nil), "/v1/snapshot/latest")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "bitcoin", body[0]["id"])
	require.Equal(t, "350000", body[0]["current_price"])
}

func TestGetLatestSnapshot_EmptyIsOK(t *testing.T) {
	q := &stubQueries{}
	rec := doGet(t, newTestRouter(q, nil), "/v1/snapshot/latest")

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
}

func TestGetHistory_WindowFromQuery(t *testing.T) {
	q := &stubQueries{}
	rec := doGet(t, newTestRouter(q, nil), "/v1/snapshot/history?hours=6")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 6*time.Hour, q.gotWindow)
}

func TestGetHistory_BadHours(t *testing.T) {
	q := &stubQueries{}
	for _, hours := range []string{"abc", "0", "-3"} {
		rec := doGet(t, newTestRouter(q, nil), "/v1/snapshot/history?hours="+hours)
		require.Equal(t, http.StatusBadRequest, rec.Code, "hours=%s", hours)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, body["error"])
	}
}

func TestGetTopN(t *testing.T) {
	q := &stubQueries{top: []domain.AssetQuote{sampleQuote("bitcoin", 1), sampleQuote("ethereum", 2)}}
	rec := doGet(t, newTestRouter(q, nil), "/v1/snapshot/top?n=2")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, q.gotN)
}

func TestGetTopN_DefaultN(t *testing.T) {
	q := &stubQueries{}
	rec := doGet(t, newTestRouter(q, nil), "/v1/snapshot/top")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10, q.gotN)
}

func TestGetAssetOHLC(t *testing.T) {
	q := &stubQueries{bars: []domain.OhlcBar{{
		AssetID:     "bitcoin",
		CollectedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Open:        decimal.NewFromInt(100),
		High:        decimal.NewFromInt(110),
		Low:         decimal.NewFromInt(90),
		Close:       decimal.NewFromInt(105),
	}}}
	rec := doGet(t, newTestRouter(q, nil), "/v1/ohlc/bitcoin?hours=48")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "bitcoin", q.gotAsset)
	require.Equal(t, 48*time.Hour, q.gotWindow)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	require.Equal(t, "105", body[0]["close"])
}

func TestGetAssetOHLC_InvalidAssetID(t *testing.T) {
	q := &stubQueries{}
	rec := doGet(t, newTestRouter(q, nil), "/v1/ohlc/Bitcoin%3BDROP")

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAssetOHLC_QueryError(t *testing.T) {
	q := &stubQueries{err: errors.New("boom")}
	rec := doGet(t, newTestRouter(q, nil), "/v1/ohlc/bitcoin")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := doGet(t, newTestRouter(&stubQueries{}, nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	rec := doGet(t, newTestRouter(&stubQueries{}, ok), "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)

	down := func(context.Context) error { return errors.New("down") }
	rec = doGet(t, newTestRouter(&stubQueries{}, down), "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	rec := doGet(t, newTestRouter(&stubQueries{}, nil), "/healthz")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	newTestRouter(&stubQueries{}, nil).ServeHTTP(rec, req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
