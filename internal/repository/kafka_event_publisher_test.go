package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"Foresight/internal/domain/models"
	pkgkafka "Foresight/pkg/kafka"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentBatch struct {
	topic string
	msgs  []pkgkafka.Message
}

type fakeWriter struct {
	mu     sync.Mutex
	sent   []sentBatch
	closed bool
}

func (w *fakeWriter) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, sentBatch{topic: topic, msgs: msgs})
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaEventPublisherProgress(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaEventPublisher(w, "forecast.progress", "forecast.cards")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, p.PublishProgress(context.Background(), "run-1", models.ProgressEvent{
		Stage: "RESEARCHING", Details: map[string]interface{}{"topics": 2}, At: at,
	}))

	require.Len(t, w.sent, 1)
	assert.Equal(t, "forecast.progress", w.sent[0].topic)
	msg := w.sent[0].msgs[0]
	assert.Equal(t, "run-1", string(msg.Key))
	assert.Equal(t, "run-1", msg.Headers[pkgkafka.TraceHeader])

	raw, err := pkgkafka.Encode(msg.Value)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "RESEARCHING", decoded["stage"])
	assert.Equal(t, "run-1", decoded["run_key"])
}

func TestKafkaEventPublisherCard(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaEventPublisher(w, "forecast.progress", "forecast.cards")
	card := sampleCard("card-1")

	require.NoError(t, p.PublishCard(context.Background(), card))
	require.Len(t, w.sent, 1)
	assert.Equal(t, "forecast.cards", w.sent[0].topic)
	assert.Equal(t, card.MarketURL, string(w.sent[0].msgs[0].Key))
	assert.Equal(t, "fast", w.sent[0].msgs[0].Headers["mode"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
