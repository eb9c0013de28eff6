package kafka

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	failures int32
	calls    int32
	panics   bool
}

func (h *countingHandler) Topic() string { return "forecast.requests" }

func (h *countingHandler) Handle(context.Context, []byte) error {
	n := atomic.AddInt32(&h.calls, 1)
	if h.panics {
		panic("handler bug")
	}
	if n <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestConsumer(t *testing.T, retryMax int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retryMax, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &countingHandler{failures: 2}

	attempts, err := c.process(h, &message{topic: h.Topic(), km: kafka.Message{}})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestProcessGivesUpAfterRetryMax(t *testing.T) {
	c := newTestConsumer(t, 1)
	h := &countingHandler{failures: 10}

	var errs int32
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) {
		atomic.AddInt32(&errs, 1)
	}})

	attempts, err := c.process(h, &message{topic: h.Topic()})
	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, int32(2), atomic.LoadInt32(&errs))
}

func TestProcessRecoversHandlerPanic(t *testing.T) {
	c := newTestConsumer(t, 0)
	_, err := c.process(&countingHandler{panics: true}, &message{topic: "forecast.requests"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

func TestPartitionLockIsStable(t *testing.T) {
	c := newTestConsumer(t, 0)
	assert.Same(t, c.getPartitionLock("a", 1), c.getPartitionLock("a", 1))
	assert.NotSame(t, c.getPartitionLock("a", 1), c.getPartitionLock("a", 2))
}
