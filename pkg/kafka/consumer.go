package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "Foresight/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer wraps Kafka reader with worker pool.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *applogger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	hook     ConsumerHook
	dlq      *kafka.Writer

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	msgChan  chan *message

	partMu    sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
}

type message struct {
	topic string
	data  []byte
	km    kafka.Message
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "foresight",
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		Logger:      applogger.NewNop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:       cfg,
		log:       cfg.Logger,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		hook:      NoopHook{},
		ctx:       ctx,
		cancel:    cancel,
		msgChan:   make(chan *message, cfg.BufferSize),
		partLocks: make(map[string]map[int]*sync.Mutex),
	}

	initConsumerMetricsOnce()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	return c, nil
}

// RegisterHandler registers a message handler for a specific topic. It must
// be called before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// Start starts the Kafka consumer and workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("no kafka handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
		c.log.Info("kafka consumer registered topic", applogger.String("topic", topic))
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.messageWorker()
	}

	var readers sync.WaitGroup
	for topic, reader := range c.readers {
		readers.Add(1)
		go func(topic string, reader *kafka.Reader) {
			defer readers.Done()
			c.consumeMessages(topic, reader)
		}(topic, reader)
	}
	// workers exit once every reader has stopped feeding them
	go func() {
		readers.Wait()
		close(c.msgChan)
	}()

	c.log.Info("kafka consumer started",
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group_id", c.cfg.GroupID))
	return nil
}

// Stop stops the Kafka consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		c.log.Info("kafka consumer stopping")
		c.cancel()

		stopErr = c.waitForWg(ctx)

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Warn("error closing kafka reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Warn("error closing dlq writer", applogger.Error(err))
			}
		}
	})

	return stopErr
}

func (c *Consumer) waitForWg(ctx context.Context) error {
	doneChan := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(doneChan)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
	case <-doneChan:
		return nil
	}
}

func (c *Consumer) consumeMessages(topic string, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Warn("error reading kafka message", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-c.ctx.Done():
				return
			}
			continue
		}

		// blocking send keeps backpressure on the reader
		select {
		case c.msgChan <- &message{topic: topic, data: msg.Value, km: msg}:
			if consumerQueueDepth != nil {
				consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// messageWorker processes messages from the channel.
func (c *Consumer) messageWorker() {
	defer c.wg.Done()

	for msg := range c.msgChan {
		handler, ok := c.handlers[msg.topic]
		if !ok {
			continue
		}
		start := time.Now()

		pl := c.getPartitionLock(msg.topic, msg.km.Partition)
		pl.Lock()
		attempts, err := c.process(handler, msg)
		if err != nil {
			c.log.Error("kafka message failed",
				applogger.String("topic", msg.topic),
				applogger.Int("attempts", attempts),
				applogger.Error(err))
			c.deadLetter(msg, err)
		}
		// commit after DLQ too so a poison message cannot loop forever
		if err == nil || c.dlq != nil {
			if reader := c.readers[msg.topic]; reader != nil {
				_ = c.commitWithRetry(reader, msg.km, 3)
			}
		}
		pl.Unlock()

		if consumerHandleLatency != nil {
			consumerHandleLatency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
		}
	}
}

// process runs the handler with hooks and retries. A handler panic counts
// as a failed attempt.
func (c *Consumer) process(handler MessageHandler, msg *message) (attempts int, err error) {
	for {
		attempts++
		hctx, hmsg, hdata, berr := c.hook.BeforeHandle(c.ctx, msg.topic, msg.km, msg.data)
		if berr != nil {
			c.hook.OnError(c.ctx, msg.topic, msg.km, msg.data, berr)
			return attempts, berr
		}

		err = safeHandle(hctx, handler, hdata)
		c.hook.AfterHandle(hctx, msg.topic, hmsg, hdata, err)
		if err == nil {
			return attempts, nil
		}
		c.hook.OnError(hctx, msg.topic, hmsg, hdata, err)
		if attempts > c.cfg.RetryMax {
			return attempts, err
		}

		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.ctx.Done():
			return attempts, err
		}
	}
}

func safeHandle(ctx context.Context, h MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, data)
}

func (c *Consumer) deadLetter(msg *message, cause error) {
	if c.dlq == nil {
		return
	}
	headers := append([]kafka.Header{
		{Key: "source_topic", Value: []byte(msg.topic)},
		{Key: "error", Value: []byte(cause.Error())},
	}, msg.km.Headers...)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.dlq.WriteMessages(ctx, kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Key:     msg.km.Key,
		Value:   msg.data,
		Time:    time.Now(),
		Headers: headers,
	}); err != nil {
		c.log.Error("error writing to dlq", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(err))
	}
}

// commitWithRetry commits a single message offset with bounded retries.
func (c *Consumer) commitWithRetry(reader *kafka.Reader, km kafka.Message, max int) error {
	if max <= 0 {
		max = 1
	}
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("error committing kafka offset", applogger.Int("attempts", max), applogger.Error(err))
	return err
}

func (c *Consumer) getPartitionLock(topic string, partition int) *sync.Mutex {
	c.partMu.Lock()
	defer c.partMu.Unlock()

	m, ok := c.partLocks[topic]
	if !ok {
		m = make(map[int]*sync.Mutex)
		c.partLocks[topic] = m
	}
	l, ok := m[partition]
	if !ok {
		l = &sync.Mutex{}
		m[partition] = l
	}
	return l
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	if half := int64(exp) / 2; half > 0 {
		exp -= time.Duration(rand.Int63n(half))
	}
	return exp
}

// Consumer metrics
var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
	consumerRegisterer    prometheus.Registerer = prometheus.DefaultRegisterer
)

// SetConsumerMetricsRegisterer sets a custom Prometheus registerer for
// consumer metrics. It only has an effect before the first consumer is built.
func SetConsumerMetricsRegisterer(reg prometheus.Registerer) { consumerRegisterer = reg }

func initConsumerMetricsOnce() {
	consumerOnce.Do(func() {
		f := promauto.With(consumerRegisterer)
		consumerQueueDepth = f.NewGaugeVec(
			prometheus.GaugeOpts{Name: "foresight_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerHandleLatency = f.NewHistogramVec(
			prometheus.HistogramOpts{Name: "foresight_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
