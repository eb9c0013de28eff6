package repository

import (
	"context"
	"time"

	"Foresight/internal/domain/models"
	domrepo "Foresight/internal/domain/repository"
	pkgkafka "Foresight/pkg/kafka"
)

// messageWriter is the part of *kafka.Producer the publisher needs.
type messageWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// progressMessage is the wire format of the progress topic.
type progressMessage struct {
	RunKey  string                 `json:"run_key"`
	Stage   string                 `json:"stage"`
	Details map[string]interface{} `json:"details,omitempty"`
	At      time.Time              `json:"at"`
}

// KafkaEventPublisher publishes progress events keyed by run and finished
// cards keyed by market, so consumers see each stream in order.
type KafkaEventPublisher struct {
	producer      messageWriter
	progressTopic string
	cardsTopic    string
}

func NewKafkaEventPublisher(producer messageWriter, progressTopic, cardsTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, progressTopic: progressTopic, cardsTopic: cardsTopic}
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

func (p *KafkaEventPublisher) PublishProgress(ctx context.Context, runKey string, ev models.ProgressEvent) error {
	return p.producer.PublishBatch(ctx, p.progressTopic, []pkgkafka.Message{{
		Key: []byte(runKey),
		Value: progressMessage{
			RunKey:  runKey,
			Stage:   ev.Stage,
			Details: ev.Details,
			At:      ev.At,
		},
		Headers: map[string]string{pkgkafka.TraceHeader: runKey},
	}})
}

func (p *KafkaEventPublisher) PublishCard(ctx context.Context, card *models.ForecastCard) error {
	return p.producer.PublishBatch(ctx, p.cardsTopic, []pkgkafka.Message{{
		Key:   []byte(card.MarketURL),
		Value: card,
		Headers: map[string]string{
			pkgkafka.TraceHeader: card.ID,
			"mode":               string(card.Mode),
		},
	}})
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
