package repository

import (
	"context"

	"Foresight/internal/domain/models"
)

// CardStore persists finished forecast cards.
type CardStore interface {
	Save(ctx context.Context, card *models.ForecastCard) error
	Get(ctx context.Context, id string) (*models.ForecastCard, error)
	ListByMarket(ctx context.Context, marketURL string, limit int) ([]*models.ForecastCard, error)
	Health(ctx context.Context) error
}

// CardCache memoizes cards by request fingerprint and by card ID.
type CardCache interface {
	GetByFingerprint(ctx context.Context, fp string) (*models.ForecastCard, bool, error)
	GetByID(ctx context.Context, id string) (*models.ForecastCard, bool, error)
	Put(ctx context.Context, fp string, card *models.ForecastCard) error
}

// EventPublisher ships progress events and finished cards to the event bus.
type EventPublisher interface {
	PublishProgress(ctx context.Context, runKey string, ev models.ProgressEvent) error
	PublishCard(ctx context.Context, card *models.ForecastCard) error
	Close() error
}

type Metrics interface {
	RecordStage(stage string, seconds float64)
	RecordStageFailure(stage string)
	RecordRun(mode, outcome string, seconds float64)
	RecordDegraded(reason string)
	RecordObserverDrop()
	RecordError(kind string)
}
