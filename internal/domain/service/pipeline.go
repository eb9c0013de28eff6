package service

import (
	"context"

	"Foresight/internal/domain/models"
)

// CollectQuery scopes one evidence collection call.
type CollectQuery struct {
	Request models.AnalysisRequest
	Topic   string                // empty for the single general call
	Prior   []models.EvidenceItem // findings from earlier waves
	Gap     *models.Gap           // set during follow-up research
}

type EvidenceCollector interface {
	Collect(ctx context.Context, q CollectQuery) ([]models.EvidenceItem, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, req models.AnalysisRequest, evidence []models.EvidenceItem) (models.DraftForecast, error)
}

type Critic interface {
	Critique(ctx context.Context, req models.AnalysisRequest, draft models.DraftForecast, evidence []models.EvidenceItem) (models.Critique, error)
}

// FollowupDeriver turns a critique into the gaps worth re-researching.
type FollowupDeriver interface {
	Derive(c models.Critique) []models.Gap
}

// ProgressObserver receives stage transitions. Implementations may panic or
// block; the pipeline isolates them.
type ProgressObserver interface {
	OnProgress(ev models.ProgressEvent)
}

// ProgressFunc adapts a plain callback to ProgressObserver.
type ProgressFunc func(stage string, details map[string]interface{})

func (f ProgressFunc) OnProgress(ev models.ProgressEvent) { f(ev.Stage, ev.Details) }

// MarketData fetches order books and trade history for a market.
type MarketData interface {
	OrderBook(ctx context.Context, market string) (models.OrderBook, error)
	Trades(ctx context.Context, market, interval string) ([]models.MarketTrade, error)
}
