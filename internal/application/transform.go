package application

import (
	"fmt"
	"time"

	"marketpipe/internal/domain"
)

// RowError reports one raw row that failed validation, with its content.
// A failing row never aborts the batch it arrived in.
type RowError struct {
	Row string
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %s: %v", e.Row, e.Err) }

// TransformSnapshot validates raw snapshot records into AssetQuote rows.
// Every row in the batch shares the same collectedAt stamp. Output ordering
// is unspecified. An empty input is a fatal ErrNoData.
func TransformSnapshot(raw []domain.RawAssetRecord, collectedAt time.Time) ([]domain.AssetQuote, []RowError, error) {
	if len(raw) == 0 {
		return nil, nil, ErrNoData
	}
	quotes := make([]domain.AssetQuote, 0, len(raw))
	var rowErrs []RowError
	for _, r := range raw {
		q, err := r.Validate(collectedAt)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: describeRaw(r), Err: err})
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, rowErrs, nil
}

// TransformOHLC validates raw candle tuples into OhlcBar rows. The candle
// open time comes from each tuple, not from the batch clock.
func TransformOHLC(raw []domain.RawBar) ([]domain.OhlcBar, []RowError, error) {
	if len(raw) == 0 {
		return nil, nil, ErrNoData
	}
	bars := make([]domain.OhlcBar, 0, len(raw))
	var rowErrs []RowError
	for _, r := range raw {
		b, err := r.Validate()
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: fmt.Sprintf("%s %v", r.AssetID, r.Values), Err: err})
			continue
		}
		bars = append(bars, b)
	}
	return bars, rowErrs, nil
}

func describeRaw(r domain.RawAssetRecord) string {
	id := "<nil>"
	if r.ID != nil {
		id = *r.ID
	}
	sym := "<nil>"
	if r.Symbol != nil {
		sym = *r.Symbol
	}
	return fmt.Sprintf("id=%s symbol=%s", id, sym)
}
