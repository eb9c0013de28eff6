package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"

	"golang.org/x/sync/semaphore"
)

// task is one collector invocation inside a research wave.
type task struct {
	topic     string
	gap       *models.Gap
	collector service.EvidenceCollector
}

// CallResult is the settled outcome of one collector call.
type CallResult struct {
	Topic string
	Items []models.EvidenceItem
	Err   error
}

// ResearchPolicy decides whether a research stage may proceed once every
// call has settled.
type ResearchPolicy func(results []CallResult) error

// AtLeastOneSucceeded proceeds when at least one call succeeded and the
// successful calls produced at least one item.
func AtLeastOneSucceeded(results []CallResult) error {
	var errs []error
	succeeded, items := 0, 0
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topicLabel(r.Topic), r.Err))
			continue
		}
		succeeded++
		items += len(r.Items)
	}
	if succeeded == 0 {
		return fmt.Errorf("%w: %w", ErrAllCollectorsFailed, errors.Join(errs...))
	}
	if items == 0 {
		return ErrNoEvidence
	}
	return nil
}

// fanOut launches every task of a wave, bounded by the concurrency ceiling,
// and waits for all of them to settle. Each goroutine writes only its own
// slot of the result slice.
func (o *Orchestrator) fanOut(ctx context.Context, req models.AnalysisRequest, wave []task, prior []models.EvidenceItem) []CallResult {
	results := make([]CallResult, len(wave))
	sem := semaphore.NewWeighted(int64(o.concurrency))

	var wg sync.WaitGroup
	for i, t := range wave {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			res := CallResult{Topic: t.topic}
			if err := sem.Acquire(ctx, 1); err != nil {
				res.Err = err
				results[i] = res
				return
			}
			defer sem.Release(1)

			items, err := safeCollect(ctx, t.collector, service.CollectQuery{
				Request: req,
				Topic:   t.topic,
				Prior:   prior,
				Gap:     t.gap,
			})
			if err != nil {
				res.Err = err
			} else {
				res.Items = normalizeEvidence(t.topic, items, o.now())
			}
			results[i] = res
		}(i, t)
	}
	wg.Wait()
	return results
}

func safeCollect(ctx context.Context, c service.EvidenceCollector, q service.CollectQuery) (items []models.EvidenceItem, err error) {
	if c == nil {
		return nil, errors.New("no evidence collector configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector panic: %v", r)
		}
	}()
	return c.Collect(ctx, q)
}

func topicLabel(topic string) string {
	if topic == "" {
		return "general"
	}
	return topic
}
