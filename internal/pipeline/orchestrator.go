package pipeline

import (
	"time"

	"Foresight/internal/domain/repository"
	"Foresight/internal/domain/service"
	applogger "Foresight/pkg/logger"

	"github.com/google/uuid"
)

const (
	TopicOrderBook = "market:orderbook"
	TopicTrades    = "market:trades"
)

// Orchestrator drives one forecast run through its stages. It holds no
// per-run state and is safe for concurrent Run calls.
type Orchestrator struct {
	collector  service.EvidenceCollector
	aggregator service.Aggregator
	critic     service.Critic
	deriver    service.FollowupDeriver
	market     service.EvidenceCollector

	ordering    OrderingPolicy
	policy      ResearchPolicy
	concurrency int

	observerBuffer int
	observerFlush  time.Duration

	log     *applogger.Logger
	metrics repository.Metrics
	now     func() time.Time
	newID   func() string
}

type Option func(*Orchestrator)

func WithOrdering(p OrderingPolicy) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.ordering = p
		}
	}
}

// WithConcurrency caps in-flight collector calls per wave.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithResearchPolicy(p ResearchPolicy) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.policy = p
		}
	}
}

func WithCritic(c service.Critic) Option {
	return func(o *Orchestrator) { o.critic = c }
}

func WithFollowupDeriver(d service.FollowupDeriver) Option {
	return func(o *Orchestrator) {
		if d != nil {
			o.deriver = d
		}
	}
}

// WithMarketCollector enables order-book and trade evidence for requests
// that ask for it.
func WithMarketCollector(c service.EvidenceCollector) Option {
	return func(o *Orchestrator) { o.market = c }
}

func WithLogger(l *applogger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) {
		if f != nil {
			o.newID = f
		}
	}
}

func WithObserverBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.observerBuffer = n
		}
	}
}

// WithObserverFlush makes Run wait up to d for queued progress events to be
// delivered before returning. By default Run does not wait.
func WithObserverFlush(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.observerFlush = d
		}
	}
}

func NewOrchestrator(collector service.EvidenceCollector, aggregator service.Aggregator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		collector:      collector,
		aggregator:     aggregator,
		deriver:        GapDeriver{Max: 5},
		ordering:       ModeOrdering{Fast: ParallelOrdering{}, Comprehensive: ParallelOrdering{}},
		policy:         AtLeastOneSucceeded,
		concurrency:    4,
		observerBuffer: 64,
		log:            applogger.NewNop(),
		metrics:        nopMetrics{},
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
	if o.aggregator == nil {
		o.aggregator = NewLogOddsAggregator()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type nopMetrics struct{}

func (nopMetrics) RecordStage(string, float64) {}
func (nopMetrics) RecordStageFailure(string) {}
func (nopMetrics) RecordRun(string, string, float64) {}
func (nopMetrics) RecordDegraded(string) {}
func (nopMetrics) RecordObserverDrop() {}
func (nopMetrics) RecordError(string) {}
