package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketpipe/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Queries is the read-side surface the dashboard consumes.
type Queries interface {
	LatestSnapshot(ctx context.Context) ([]domain.AssetQuote, error)
	History(ctx context.Context, window time.Duration) ([]domain.AssetQuote, error)
	TopN(ctx context.Context, n int) ([]domain.AssetQuote, error)
	AssetOHLC(ctx context.Context, assetID string, window time.Duration) ([]domain.OhlcBar, error)
}

type Server struct {
	queries Queries
	ping    func(context.Context) error
}

func NewServer(queries Queries, ping func(context.Context) error) *Server {
	return &Server{queries: queries, ping: ping}
}

type assetQuoteDTO struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Image         *string         `json:"image"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketCap     decimal.Decimal `json:"market_cap"`
	MarketCapRank *int            `json:"market_cap_rank"`
	CollectedAt   time.Time       `json:"collected_at"`
}

type ohlcBarDTO struct {
	AssetID     string          `json:"asset_id"`
	CollectedAt time.Time       `json:"collected_at"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
}

func (s *Server) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.queries.LatestSnapshot(r.Context())
	if err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTOs(quotes))
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours", 24)
	if err != nil || hours <= 0 {
		badRequest(w, "hours must be a positive integer")
		return
	}
	quotes, err := s.queries.History(r.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTOs(quotes))
}

func (s *Server) GetTopN(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", 10)
	if err != nil || n <= 0 {
		badRequest(w, "n must be a positive integer")
		return
	}
	quotes, err := s.queries.TopN(r.Context(), n)
	if err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTOs(quotes))
}

func (s *Server) GetAssetOHLC(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	hours, err := queryInt(r, "hours", 7*24)
	if err != nil || hours <= 0 {
		badRequest(w, "hours must be a positive integer")
		return
	}
	bars, err := s.queries.AssetOHLC(r.Context(), assetID, time.Duration(hours)*time.Hour)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidAssetID) {
			badRequest(w, "invalid asset id")
			return
		}
		internalError(w)
		return
	}
	out := make([]ohlcBarDTO, 0, len(bars))
	for _, b := range bars {
		out = append(out, ohlcBarDTO{
			AssetID:     b.AssetID,
			CollectedAt: b.CollectedAt,
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// An empty result set is "no data yet", not an error: 200 with [].
func toQuoteDTOs(quotes []domain.AssetQuote) []assetQuoteDTO {
	out := make([]assetQuoteDTO, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, assetQuoteDTO{
			ID:            q.ID,
			Symbol:        q.Symbol,
			Name:          q.Name,
			Image:         q.Image,
			CurrentPrice:  q.CurrentPrice,
			MarketCap:     q.MarketCap,
			MarketCapRank: q.MarketCapRank,
			CollectedAt:   q.CollectedAt,
		})
	}
	return out
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
