package models

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRequestValidate(t *testing.T) {
	t.Parallel()

	err := AnalysisRequest{MarketURL: "  "}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	assert.NoError(t, AnalysisRequest{MarketURL: "m1", Mode: "bogus"}.Validate())
}

func TestFingerprintStable(t *testing.T) {
	t.Parallel()

	a := AnalysisRequest{MarketURL: "m1", RhoByCluster: map[string]float64{"a": 0.1, "b": 0.2}, Drivers: []string{"x", "y"}}
	b := AnalysisRequest{MarketURL: "m1", RhoByCluster: map[string]float64{"b": 0.2, "a": 0.1}, Drivers: []string{"x", "y"}}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c := b
	c.Drivers = []string{"y", "x"}
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	d := a
	d.WithBooks = true
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestEvidenceIDDeterministic(t *testing.T) {
	t.Parallel()

	id := EvidenceID("polling", "https://src/1", "lead widens")
	assert.Equal(t, id, EvidenceID("polling", "https://src/1", "lead widens"))
	assert.Len(t, id, len("ev-")+12)
	assert.NotEqual(t, id, EvidenceID("polling", "https://src/2", "lead widens"))
}

func TestForecastCardValidate(t *testing.T) {
	t.Parallel()

	ev := []EvidenceItem{
		{ID: "ev-aaa", Provenance: "https://a"},
		{ID: "ev-bbb", Provenance: "https://b"},
	}
	tests := []struct {
		name    string
		card    ForecastCard
		wantErr string
	}{
		{"valid", ForecastCard{Probability: 0.4, Rationale: "see [ev-aaa] and [ev-bbb]", Evidence: ev}, ""},
		{"probability high", ForecastCard{Probability: 1.2, Evidence: ev}, "outside [0,1]"},
		{"probability low", ForecastCard{Probability: -0.1, Evidence: ev}, "outside [0,1]"},
		{"probability NaN", ForecastCard{Probability: math.NaN(), Evidence: ev}, "outside [0,1]"},
		{"unknown ref", ForecastCard{Probability: 0.5, Rationale: "[ev-ccc]", Evidence: ev}, "unknown evidence ev-ccc"},
		{"missing provenance", ForecastCard{Probability: 0.5, Evidence: []EvidenceItem{{ID: "ev-x"}}}, "no provenance"},
		{"duplicate", ForecastCard{Probability: 0.5, Evidence: append(ev, ev[0])}, "duplicate evidence"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.card.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRationaleRefs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"ev-1a", "ev-2b"}, RationaleRefs("- [ev-1a] x\n- [ev-2b] y [not-a-ref]"))
	assert.Empty(t, RationaleRefs("no refs"))
}

func TestOrderBookSnapshot(t *testing.T) {
	t.Parallel()

	book := OrderBook{
		Bids: []PriceLevel{{Price: decimal.RequireFromString("0.60"), Size: decimal.NewFromInt(300)}},
		Asks: []PriceLevel{{Price: decimal.RequireFromString("0.64"), Size: decimal.NewFromInt(100)}},
	}
	s, ok := book.Snapshot()
	require.True(t, ok)
	assert.True(t, s.Mid.Equal(decimal.RequireFromString("0.62")))
	assert.True(t, s.Spread.Equal(decimal.RequireFromString("0.04")))
	assert.True(t, s.Imbalance.Equal(decimal.RequireFromString("0.5")))

	_, ok = OrderBook{Bids: book.Bids}.Snapshot()
	assert.False(t, ok)
}

func TestVWAP(t *testing.T) {
	t.Parallel()

	px, vol, ok := VWAP([]MarketTrade{
		{Price: decimal.RequireFromString("0.50"), Size: decimal.NewFromInt(10)},
		{Price: decimal.RequireFromString("0.70"), Size: decimal.NewFromInt(30)},
	})
	require.True(t, ok)
	assert.True(t, px.Equal(decimal.RequireFromString("0.65")))
	assert.True(t, vol.Equal(decimal.NewFromInt(40)))

	_, _, ok = VWAP(nil)
	assert.False(t, ok)
}
