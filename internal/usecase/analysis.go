package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"Foresight/internal/domain/models"
	domrepo "Foresight/internal/domain/repository"
	"Foresight/internal/domain/service"
	"Foresight/internal/pipeline"
	applogger "Foresight/pkg/logger"
	"Foresight/pkg/util"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// Runner is the pipeline entry point; *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req models.AnalysisRequest, observer service.ProgressObserver) (*models.ForecastCard, error)
}

// AnalysisUseCase runs forecasts and handles their side outputs: cache,
// card history and the event bus. Store, cache and publisher are optional.
type AnalysisUseCase struct {
	runner     Runner
	store      domrepo.CardStore
	cache      domrepo.CardCache
	publisher  domrepo.EventPublisher
	metrics    domrepo.Metrics
	log        *applogger.Logger
	runTimeout time.Duration
	sideTO     time.Duration
}

type AnalysisOption func(*AnalysisUseCase)

func WithCardStore(s domrepo.CardStore) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.store = s }
}

func WithCardCache(c domrepo.CardCache) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.cache = c }
}

func WithEventPublisher(p domrepo.EventPublisher) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.publisher = p }
}

func WithRunTimeout(d time.Duration) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.runTimeout = d }
}

func NewAnalysisUseCase(runner Runner, metrics domrepo.Metrics, l *applogger.Logger, opts ...AnalysisOption) *AnalysisUseCase {
	if l == nil {
		l = applogger.NewNop()
	}
	uc := &AnalysisUseCase{
		runner:  runner,
		metrics: metrics,
		log:     l,
		sideTO:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Analyze returns a cached card for an identical request when one exists,
// otherwise runs the pipeline. Failures of the cache, store or publisher are
// logged and counted but never fail the call.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, req models.AnalysisRequest, observer service.ProgressObserver) (*models.ForecastCard, error) {
	fp := req.Fingerprint()
	if uc.cache != nil {
		card, ok, err := uc.cache.GetByFingerprint(ctx, fp)
		switch {
		case err != nil:
			uc.sideFailure("cache_get", err)
		case ok:
			uc.log.Debug("forecast cache hit", applogger.String("card_id", card.ID), applogger.String("market_url", card.MarketURL))
			return card, nil
		}
	}

	runKey := req.SessionID
	if runKey == "" {
		runKey = uuid.NewString()
	}
	if uc.publisher != nil {
		observer = pipeline.Observers(observer, uc.progressTee(runKey))
	}

	if uc.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.runTimeout)
		defer cancel()
	}

	card, err := uc.runner.Run(ctx, req, observer)
	if err != nil {
		return nil, err
	}

	uc.persist(fp, card)
	return card, nil
}

// GetCard looks in the cache first, then in the card store.
func (uc *AnalysisUseCase) GetCard(ctx context.Context, id string) (*models.ForecastCard, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, models.ErrCardNotFound
	}
	if uc.cache != nil {
		card, ok, err := uc.cache.GetByID(ctx, id)
		if err != nil {
			uc.sideFailure("cache_get", err)
		} else if ok {
			return card, nil
		}
	}
	if uc.store == nil {
		return nil, models.ErrCardNotFound
	}
	card, err := uc.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// ListCards returns the newest cards for a market.
func (uc *AnalysisUseCase) ListCards(ctx context.Context, marketURL string, limit int) ([]*models.ForecastCard, error) {
	marketURL = strings.TrimSpace(marketURL)
	if marketURL == "" {
		return nil, fmt.Errorf("%w: market_url is required", models.ErrInvalidRequest)
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	limit = util.Clamp(limit, 1, maxListLimit)
	if uc.store == nil {
		return []*models.ForecastCard{}, nil
	}
	return uc.store.ListByMarket(ctx, marketURL, limit)
}

// Health reports the card store status; nil when no store is configured.
func (uc *AnalysisUseCase) Health(ctx context.Context) error {
	if uc.store == nil {
		return nil
	}
	return uc.store.Health(ctx)
}

func (uc *AnalysisUseCase) progressTee(runKey string) service.ProgressObserver {
	return progressPublisher{uc: uc, runKey: runKey}
}

// progressPublisher forwards every stage transition to the progress topic.
type progressPublisher struct {
	uc     *AnalysisUseCase
	runKey string
}

func (p progressPublisher) OnProgress(ev models.ProgressEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.uc.sideTO)
	defer cancel()
	if err := p.uc.publisher.PublishProgress(ctx, p.runKey, ev); err != nil {
		p.uc.sideFailure("publish_progress", err)
	}
}

// persist runs on a fresh context so a caller that has gone away does not
// lose the card.
func (uc *AnalysisUseCase) persist(fp string, card *models.ForecastCard) {
	ctx, cancel := context.WithTimeout(context.Background(), uc.sideTO)
	defer cancel()

	if uc.store != nil {
		if err := uc.store.Save(ctx, card); err != nil {
			uc.sideFailure("store_save", err)
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishCard(ctx, card); err != nil {
			uc.sideFailure("publish_card", err)
		}
	}
	if uc.cache != nil {
		if err := uc.cache.Put(ctx, fp, card); err != nil {
			uc.sideFailure("cache_put", err)
		}
	}
}

func (uc *AnalysisUseCase) sideFailure(kind string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	uc.log.Warn("side output failed", applogger.String("kind", kind), applogger.Error(err))
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
