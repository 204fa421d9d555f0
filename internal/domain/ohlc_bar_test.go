package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func tuple(vals ...string) []json.Number {
	out := make([]json.Number, len(vals))
	for i, v := range vals {
		out[i] = json.Number(v)
	}
	return out
}

func TestRawBar_Validate(t *testing.T) {
	t.Parallel()
	r := RawBar{AssetID: "ethereum", Values: tuple("1717200000000", "18000.5", "18500", "17900.25", "18200")}

	b, err := r.Validate()
	require.NoError(t, err)
	require.Equal(t, "ethereum", b.AssetID)
	require.Equal(t, time.UnixMilli(1717200000000).UTC(), b.CollectedAt)
	require.True(t, b.Open.Equal(decimal.RequireFromString("18000.5")))
	require.True(t, b.High.Equal(decimal.NewFromInt(18500)))
	require.True(t, b.Low.Equal(decimal.RequireFromString("17900.25")))
	require.True(t, b.Close.Equal(decimal.NewFromInt(18200)))
}

func TestRawBar_Validate_FloatTimestamp(t *testing.T) {
	t.Parallel()
	r := RawBar{AssetID: "ethereum", Values: tuple("1717200000000.0", "1", "2", "0.5", "1.5")}

	b, err := r.Validate()
	require.NoError(t, err)
	require.Equal(t, time.UnixMilli(1717200000000).UTC(), b.CollectedAt)
}

func TestRawBar_Validate_Rejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		bar  RawBar
	}{
		{"missing asset id", RawBar{Values: tuple("1717200000000", "1", "2", "0.5", "1.5")}},
		{"short tuple", RawBar{AssetID: "btc", Values: tuple("1717200000000", "1", "2")}},
		{"long tuple", RawBar{AssetID: "btc", Values: tuple("1717200000000", "1", "2", "0.5", "1.5", "9")}},
		{"zero timestamp", RawBar{AssetID: "btc", Values: tuple("0", "1", "2", "0.5", "1.5")}},
		{"negative timestamp", RawBar{AssetID: "btc", Values: tuple("-5", "1", "2", "0.5", "1.5")}},
		{"bad price", RawBar{AssetID: "btc", Values: tuple("1717200000000", "abc", "2", "0.5", "1.5")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.bar.Validate()
			require.Error(t, err)
		})
	}
}

func TestIsValidAssetID(t *testing.T) {
	t.Parallel()
	require.True(t, IsValidAssetID("bitcoin"))
	require.True(t, IsValidAssetID("usd-coin"))
	require.True(t, IsValidAssetID("0x0-ai-ai-smart-contract"))
	require.False(t, IsValidAssetID(""))
	require.False(t, IsValidAssetID("Bitcoin"))
	require.False(t, IsValidAssetID("btc'; DROP TABLE crypto_ohlc; --"))
	require.False(t, IsValidAssetID("a b"))
}
