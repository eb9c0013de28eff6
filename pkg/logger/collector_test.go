package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls []publishCall
}

type publishCall struct {
	topic string
	key   string
	logs  []AggregatedLogEntry
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	logs, _ := value.([]AggregatedLogEntry)
	p.calls = append(p.calls, publishCall{topic: topic, key: string(key), logs: logs})
	return nil
}

func TestLogCollectorAggregatesDuplicates(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 10,
		Topic:          "forecast.logs",
		Source:         "api",
		Publisher:      pub,
	})
	defer c.Close()

	fields := map[string]interface{}{"stage": "RESEARCHING"}
	c.AddLog("error", "collector failed", fields, "pipeline.go:10")
	c.AddLog("error", "collector failed", fields, "pipeline.go:10")
	c.AddLog("warn", "critique skipped", nil, "pipeline.go:20")

	require.NoError(t, c.Flush(context.Background()))

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.calls, 1)
	assert.Equal(t, "forecast.logs", pub.calls[0].topic)
	assert.Equal(t, "api", pub.calls[0].key)
	require.Len(t, pub.calls[0].logs, 2)

	counts := map[string]int{}
	for _, e := range pub.calls[0].logs {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 2, counts["collector failed"])
	assert.Equal(t, 1, counts["critique skipped"])
}

func TestLogCollectorFlushEmpty(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: pub})
	defer c.Close()

	require.NoError(t, c.Flush(context.Background()))
	assert.Empty(t, pub.calls)
}

func TestLoggerForwardsErrorsToCollector(t *testing.T) {
	pub := &recordingPublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Publisher: pub})
	defer l.RemoveCollector()

	l.Error("store failed", Error(errors.New("boom")), String("card_id", "c1"))
	l.Info("ignored")

	require.NoError(t, l.collector.Flush(context.Background()))
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.calls, 1)
	require.Len(t, pub.calls[0].logs, 1)
	entry := pub.calls[0].logs[0]
	assert.Equal(t, "error", entry.Level)
	assert.Equal(t, "boom", entry.Fields["error"])
	assert.Equal(t, "c1", entry.Fields["card_id"])
}
