package research

import (
	"context"
	"fmt"
	"strings"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
	"Foresight/pkg/util"
)

const (
	topicOrderBook = "market:orderbook"
	topicTrades    = "market:trades"
	marketCluster  = "market"
)

// MarketCollector turns live order books and recent trades into evidence.
// Prices of a binary outcome market are read as implied YES probabilities.
type MarketCollector struct {
	data   service.MarketData
	weight float64
}

func NewMarketCollector(data service.MarketData) *MarketCollector {
	return &MarketCollector{data: data, weight: 1}
}

var _ service.EvidenceCollector = (*MarketCollector)(nil)

func (m *MarketCollector) Collect(ctx context.Context, q service.CollectQuery) ([]models.EvidenceItem, error) {
	market := strings.TrimSpace(q.Request.MarketURL)
	switch q.Topic {
	case topicOrderBook:
		return m.fromBook(ctx, market)
	case topicTrades:
		return m.fromTrades(ctx, market, q.Request.HistoryInterval)
	default:
		return nil, fmt.Errorf("market collector: unsupported topic %q", q.Topic)
	}
}

func (m *MarketCollector) fromBook(ctx context.Context, market string) ([]models.EvidenceItem, error) {
	book, err := m.data.OrderBook(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("fetch order book: %w", err)
	}
	snap, ok := book.Snapshot()
	if !ok {
		return nil, nil
	}
	mid, _ := snap.Mid.Float64()
	return []models.EvidenceItem{{
		Topic:   topicOrderBook,
		Cluster: marketCluster,
		Claim: fmt.Sprintf("Order book mid %s (bid %s / ask %s, spread %s, depth imbalance %s)",
			snap.Mid.StringFixed(3), snap.Bid.StringFixed(3), snap.Ask.StringFixed(3),
			snap.Spread.StringFixed(3), snap.Imbalance.StringFixed(2)),
		Provenance:  "orderbook:" + market,
		Probability: mid,
		Weight:      m.weight,
		RetrievedAt: book.Timestamp,
	}}, nil
}

func (m *MarketCollector) fromTrades(ctx context.Context, market, interval string) ([]models.EvidenceItem, error) {
	name, _ := util.ParseInterval(interval)
	trades, err := m.data.Trades(ctx, market, name)
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	vwap, volume, ok := models.VWAP(trades)
	if !ok {
		return nil, nil
	}
	p, _ := vwap.Float64()
	return []models.EvidenceItem{{
		Topic:       topicTrades,
		Cluster:     marketCluster,
		Claim:       fmt.Sprintf("Trades over %s: VWAP %s on volume %s across %d fills", name, vwap.StringFixed(3), volume.StringFixed(2), len(trades)),
		Provenance:  "trades:" + market,
		Probability: p,
		Weight:      m.weight,
	}}, nil
}
