package research

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
	xhttp "Foresight/pkg/http"
)

func newBase(t *testing.T, h http.HandlerFunc, attempts int) *HTTPServiceBase {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	b := NewHTTPServiceBase(srv.URL+"/", 5*time.Second, attempts)
	b.backoff = time.Millisecond
	return b
}

func TestHTTPEvidenceCollector(t *testing.T) {
	var got researchRequest
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/research", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"items":[{"claim":"polls lean yes","source":"https://example.com/poll","cluster":"polls","probability":0.62,"weight":2}]}`))
	}, 1)

	c := NewHTTPEvidenceCollector(base)
	gap := &models.Gap{Topic: "turnout", Reason: "no turnout data"}
	items, err := c.Collect(context.Background(), service.CollectQuery{
		Request: models.AnalysisRequest{MarketURL: "https://markets.example/m/1", HistoryInterval: "weird"},
		Topic:   "polling",
		Prior:   []models.EvidenceItem{{ID: "ev-1", Topic: "polling", Claim: "earlier"}},
		Gap:     gap,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://markets.example/m/1", got.MarketURL)
	assert.Equal(t, "polling", got.Topic)
	assert.Equal(t, "fast", got.Mode)
	assert.Equal(t, "1d", got.HistoryInterval)
	require.Len(t, got.Prior, 1)
	assert.Equal(t, "ev-1", got.Prior[0].ID)
	require.NotNil(t, got.Gap)
	assert.Equal(t, "turnout", got.Gap.Topic)

	require.Len(t, items, 1)
	assert.Equal(t, "polling", items[0].Topic)
	assert.Equal(t, "polls", items[0].Cluster)
	assert.Equal(t, "https://example.com/poll", items[0].Provenance)
	assert.InDelta(t, 0.62, items[0].Probability, 1e-9)
	assert.InDelta(t, 2.0, items[0].Weight, 1e-9)
}

func TestPostJSONWithRetryRetriesServerErrors(t *testing.T) {
	var calls int32
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"items":[]}`))
	}, 3)

	var resp researchResponse
	require.NoError(t, base.PostJSONWithRetry(context.Background(), "/research", researchRequest{}, &resp))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPostJSONWithRetryStopsOnClientError(t *testing.T) {
	var calls int32
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad market", http.StatusBadRequest)
	}, 3)

	err := base.PostJSONWithRetry(context.Background(), "/research", researchRequest{}, &researchResponse{})
	require.Error(t, err)
	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPostJSONWithRetryGivesUp(t *testing.T) {
	var calls int32
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2)

	err := base.PostJSONWithRetry(context.Background(), "/research", researchRequest{}, &researchResponse{})
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPCritic(t *testing.T) {
	var got critiqueRequest
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/critique", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"summary":"thin","gaps":[{"topic":"turnout","reason":"missing","severity":"high"}]}`))
	}, 1)

	c := NewHTTPCritic(base)
	crit, err := c.Critique(context.Background(),
		models.AnalysisRequest{MarketURL: "m"},
		models.DraftForecast{Probability: 0.4, Rationale: "r"},
		[]models.EvidenceItem{{ID: "ev-1", Claim: "c", Provenance: "src", Probability: 0.4}},
	)
	require.NoError(t, err)
	assert.Equal(t, "thin", crit.Summary)
	require.Len(t, crit.Gaps, 1)
	assert.Equal(t, "turnout", crit.Gaps[0].Topic)

	assert.Equal(t, "m", got.MarketURL)
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, "src", got.Evidence[0].Source)
}

func TestPostJSONUninitialized(t *testing.T) {
	b := &HTTPServiceBase{}
	assert.Error(t, b.PostJSON(context.Background(), "/x", nil, nil))
}

type fakeMarketData struct {
	book     models.OrderBook
	trades   []models.MarketTrade
	err      error
	interval string
}

func (f *fakeMarketData) OrderBook(_ context.Context, market string) (models.OrderBook, error) {
	return f.book, f.err
}

func (f *fakeMarketData) Trades(_ context.Context, market, interval string) ([]models.MarketTrade, error) {
	f.interval = interval
	return f.trades, f.err
}

func lvl(p, s string) models.PriceLevel {
	return models.PriceLevel{Price: decimal.RequireFromString(p), Size: decimal.RequireFromString(s)}
}

func TestMarketCollectorOrderBook(t *testing.T) {
	data := &fakeMarketData{book: models.OrderBook{
		Bids: []models.PriceLevel{lvl("0.60", "100"), lvl("0.59", "50")},
		Asks: []models.PriceLevel{lvl("0.64", "50")},
	}}
	m := NewMarketCollector(data)

	items, err := m.Collect(context.Background(), service.CollectQuery{
		Request: models.AnalysisRequest{MarketURL: " mkt-1 "},
		Topic:   topicOrderBook,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.InDelta(t, 0.62, items[0].Probability, 1e-9)
	assert.Equal(t, "orderbook:mkt-1", items[0].Provenance)
	assert.Equal(t, marketCluster, items[0].Cluster)
	assert.Contains(t, items[0].Claim, "spread 0.040")
	assert.Contains(t, items[0].Claim, "imbalance 0.50")
}

func TestMarketCollectorTrades(t *testing.T) {
	data := &fakeMarketData{trades: []models.MarketTrade{
		{Price: decimal.RequireFromString("0.50"), Size: decimal.RequireFromString("10")},
		{Price: decimal.RequireFromString("0.80"), Size: decimal.RequireFromString("30")},
	}}
	m := NewMarketCollector(data)

	items, err := m.Collect(context.Background(), service.CollectQuery{
		Request: models.AnalysisRequest{MarketURL: "mkt-1", HistoryInterval: "1W"},
		Topic:   topicTrades,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1w", data.interval)
	assert.InDelta(t, 0.725, items[0].Probability, 1e-9)
	assert.Equal(t, "trades:mkt-1", items[0].Provenance)
}

func TestMarketCollectorEmptyAndErrors(t *testing.T) {
	m := NewMarketCollector(&fakeMarketData{})
	items, err := m.Collect(context.Background(), service.CollectQuery{Topic: topicOrderBook})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = m.Collect(context.Background(), service.CollectQuery{Topic: topicTrades})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = m.Collect(context.Background(), service.CollectQuery{Topic: "polling"})
	assert.Error(t, err)

	boom := errors.New("down")
	_, err = NewMarketCollector(&fakeMarketData{err: boom}).Collect(context.Background(), service.CollectQuery{Topic: topicOrderBook})
	assert.ErrorIs(t, err, boom)
}
