package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
	applogger "Foresight/pkg/logger"
)

// run is the state of a single Run call. Only the Run goroutine touches it.
type run struct {
	o      *Orchestrator
	req    models.AnalysisRequest
	cfg    OrchestratorConfig
	topics []string
	disp   *dispatcher
	log    *applogger.Logger

	stage      Stage
	completed  Stage
	started    time.Time
	stageStart time.Time
	durations  map[string]int64

	failedCalls     int
	critiqueSkipped bool
	degraded        bool
	notes           []string
}

// Run executes the pipeline for one request. Progress events are delivered
// to observer, which may be nil. Every failure is returned as *PipelineError.
func (o *Orchestrator) Run(ctx context.Context, req models.AnalysisRequest, observer service.ProgressObserver) (*models.ForecastCard, error) {
	if err := req.Validate(); err != nil {
		o.metrics.RecordError("invalid_request")
		return nil, &PipelineError{During: StageInit, Err: err}
	}

	cfg := Select(string(req.Mode))
	now := o.now()
	r := &run{
		o:          o,
		req:        req,
		cfg:        cfg,
		topics:     uniqueTopics(req.Drivers),
		stage:      StageInit,
		started:    now,
		stageStart: now,
		durations:  make(map[string]int64),
		log: o.log.With(
			applogger.String("market_url", req.MarketURL),
			applogger.String("mode", string(cfg.Mode)),
			applogger.String("session_id", req.SessionID),
		),
	}
	r.disp = newDispatcher(observer, o.observerBuffer, o.metrics.RecordObserverDrop, r.log)
	defer r.disp.close(o.observerFlush)

	r.log.Info("pipeline run started",
		applogger.Strings("drivers", r.topics),
		applogger.Bool("critique", cfg.CritiqueEnabled))
	r.emit(StageInit, map[string]interface{}{"mode": string(cfg.Mode)})

	r.advance(StageResearching, map[string]interface{}{"topics": len(r.topics)})
	evidence, err := o.research(ctx, r)
	if err != nil {
		return nil, r.fail(err)
	}

	r.advance(StageAggregating, map[string]interface{}{"evidence": len(evidence)})
	draft, err := o.aggregator.Aggregate(ctx, req, evidence)
	if err != nil {
		return nil, r.fail(fmt.Errorf("aggregate: %w", err))
	}

	if !cfg.CritiqueEnabled {
		return r.finish(draft, evidence, nil)
	}
	if o.critic == nil {
		r.degrade("no_critic", "no critic configured")
		return r.finish(draft, evidence, nil)
	}

	r.advance(StageCritiquing, map[string]interface{}{"probability": draft.Probability})
	critique, err := safeCritique(ctx, o.critic, req, draft, evidence)
	if err != nil {
		r.log.Warn("critique failed, keeping draft", applogger.Error(err))
		r.degrade("critique_failed", "critique skipped: "+err.Error())
		return r.finish(draft, evidence, nil)
	}

	gaps := o.deriver.Derive(critique)
	if !cfg.FollowupEnabled || len(gaps) == 0 {
		return r.finish(draft, evidence, &critique)
	}

	r.advance(StageFollowupResearching, map[string]interface{}{"gaps": len(gaps)})
	extra, err := o.followup(ctx, r, gaps, evidence)
	switch {
	case errors.Is(err, ErrNoEvidence):
		r.notes = append(r.notes, "follow-up research found no new evidence")
		return r.finish(draft, evidence, &critique)
	case err != nil:
		r.log.Warn("follow-up research failed, keeping draft", applogger.Error(err))
		r.degrade("followup_failed", "follow-up research failed: "+err.Error())
		return r.finish(draft, evidence, &critique)
	}

	merged := mergeEvidence(evidence, extra)
	r.advance(StageReAggregating, map[string]interface{}{"evidence": len(merged)})
	final, err := o.aggregator.Aggregate(ctx, req, merged)
	if err != nil {
		return nil, r.fail(fmt.Errorf("re-aggregate: %w", err))
	}
	return r.finish(final, merged, &critique)
}

// research runs every wave of the ordering plan and applies the research
// policy to the combined call results.
func (o *Orchestrator) research(ctx context.Context, r *run) ([]models.EvidenceItem, error) {
	waves := [][]string{{""}}
	if len(r.topics) > 0 {
		waves = o.ordering.Plan(r.cfg.Mode, r.topics)
	}

	var (
		evidence []models.EvidenceItem
		results  []CallResult
	)
	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tasks := make([]task, 0, len(wave)+2)
		for _, topic := range wave {
			tasks = append(tasks, task{topic: topic, collector: o.collector})
		}
		if i == 0 {
			tasks = append(tasks, o.marketTasks(r)...)
		}

		waveResults := o.fanOut(ctx, r.req, tasks, evidence)
		for _, res := range waveResults {
			if res.Err != nil {
				r.callFailed(res)
				continue
			}
			evidence = mergeEvidence(evidence, res.Items)
		}
		results = append(results, waveResults...)
	}

	if err := o.policy(results); err != nil {
		return nil, err
	}
	return evidence, nil
}

func (o *Orchestrator) followup(ctx context.Context, r *run, gaps []models.Gap, prior []models.EvidenceItem) ([]models.EvidenceItem, error) {
	tasks := make([]task, 0, len(gaps))
	for i := range gaps {
		tasks = append(tasks, task{topic: gaps[i].Topic, gap: &gaps[i], collector: o.collector})
	}

	results := o.fanOut(ctx, r.req, tasks, prior)
	var found []models.EvidenceItem
	for _, res := range results {
		if res.Err != nil {
			r.callFailed(res)
			continue
		}
		found = mergeEvidence(found, res.Items)
	}
	if err := o.policy(results); err != nil {
		return nil, err
	}
	return found, nil
}

func (o *Orchestrator) marketTasks(r *run) []task {
	if !r.req.WithBooks && !r.req.WithTrades {
		return nil
	}
	if o.market == nil {
		r.notes = append(r.notes, "market data not configured")
		return nil
	}
	var tasks []task
	if r.req.WithBooks {
		tasks = append(tasks, task{topic: TopicOrderBook, collector: o.market})
	}
	if r.req.WithTrades {
		tasks = append(tasks, task{topic: TopicTrades, collector: o.market})
	}
	return tasks
}

func safeCritique(ctx context.Context, c service.Critic, req models.AnalysisRequest, draft models.DraftForecast, evidence []models.EvidenceItem) (crit models.Critique, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("critic panic: %v", r)
		}
	}()
	return c.Critique(ctx, req, draft, evidence)
}

func (r *run) emit(stage Stage, details map[string]interface{}) {
	r.disp.emit(models.ProgressEvent{Stage: string(stage), Details: details, At: r.o.now()})
}

func (r *run) closeStage() {
	now := r.o.now()
	d := now.Sub(r.stageStart)
	r.durations[string(r.stage)] = d.Milliseconds()
	r.o.metrics.RecordStage(string(r.stage), d.Seconds())
	r.stageStart = now
}

func (r *run) advance(to Stage, details map[string]interface{}) {
	if err := ValidateTransition(r.stage, to); err != nil {
		r.log.Error("unexpected stage transition", applogger.Error(err))
	}
	r.closeStage()
	r.completed = r.stage
	r.stage = to
	r.emit(to, details)
}

func (r *run) fail(err error) error {
	pe := &PipelineError{Completed: r.completed, During: r.stage, Err: err}
	r.closeStage()

	r.o.metrics.RecordStageFailure(string(pe.During))
	r.o.metrics.RecordRun(string(r.cfg.Mode), "failed", r.o.now().Sub(r.started).Seconds())
	r.log.Error("pipeline run failed",
		applogger.String("during", string(pe.During)),
		applogger.Int("failed_calls", r.failedCalls),
		applogger.Error(err))

	r.stage = StageFailed
	r.emit(StageFailed, map[string]interface{}{
		"during":    string(pe.During),
		"completed": string(pe.Completed),
		"error":     err.Error(),
	})
	return pe
}

func (r *run) degrade(reason, note string) {
	if reason == "critique_failed" || reason == "no_critic" {
		r.critiqueSkipped = true
	}
	r.degraded = true
	r.notes = append(r.notes, note)
	r.o.metrics.RecordDegraded(reason)
}

func (r *run) callFailed(res CallResult) {
	r.failedCalls++
	r.log.Warn("evidence collector failed",
		applogger.String("topic", topicLabel(res.Topic)),
		applogger.String("stage", string(r.stage)),
		applogger.Error(res.Err))
}

func (r *run) finish(draft models.DraftForecast, evidence []models.EvidenceItem, critique *models.Critique) (*models.ForecastCard, error) {
	if id, ok := unknownEvidenceID(evidence, draft.EvidenceIDs); !ok {
		return nil, r.fail(fmt.Errorf("%w: draft cites unknown evidence %s", ErrInvalidCard, id))
	}

	card := &models.ForecastCard{
		ID:          r.o.newID(),
		MarketURL:   strings.TrimSpace(r.req.MarketURL),
		Probability: draft.Probability,
		Rationale:   draft.Rationale,
		Evidence:    evidence,
		Mode:        r.cfg.Mode,
		Drivers:     r.topics,
		Critique:    critique,
		Metadata: models.CardMetadata{
			SessionID:       r.req.SessionID,
			CustomerID:      r.req.CustomerID,
			StartedAt:       r.started,
			CritiqueSkipped: r.critiqueSkipped,
			FailedCalls:     r.failedCalls,
			Notes:           r.notes,
		},
	}
	if err := card.Validate(); err != nil {
		return nil, r.fail(fmt.Errorf("%w: %v", ErrInvalidCard, err))
	}

	r.advance(StageDone, map[string]interface{}{
		"card_id":     card.ID,
		"probability": card.Probability,
		"evidence":    len(card.Evidence),
	})

	completed := r.o.now()
	card.Metadata.CompletedAt = completed
	card.Metadata.DurationMs = completed.Sub(r.started).Milliseconds()
	card.Metadata.StageDurationsMs = r.durations

	outcome := "success"
	if r.degraded {
		outcome = "degraded"
	}
	r.o.metrics.RecordRun(string(r.cfg.Mode), outcome, completed.Sub(r.started).Seconds())
	r.log.Info("pipeline run finished",
		applogger.String("card_id", card.ID),
		applogger.Float64("probability", card.Probability),
		applogger.Int("evidence", len(card.Evidence)),
		applogger.Int("failed_calls", r.failedCalls),
		applogger.Duration("duration_ms", completed.Sub(r.started)))
	return card, nil
}
