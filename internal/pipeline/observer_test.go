package pipeline

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Foresight/internal/domain/models"
	applogger "Foresight/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherTerminalEventEvictsOldest(t *testing.T) {
	var (
		mu      sync.Mutex
		got     []string
		drops   int32
		entered = make(chan struct{}, 1)
		release = make(chan struct{})
	)
	obs := observerFunc(func(ev models.ProgressEvent) {
		mu.Lock()
		got = append(got, ev.Stage)
		first := len(got) == 1
		mu.Unlock()
		if first {
			entered <- struct{}{}
			<-release
		}
	})
	d := newDispatcher(obs, 2, func() { atomic.AddInt32(&drops, 1) }, applogger.NewNop())

	d.emit(models.ProgressEvent{Stage: string(StageInit)})
	<-entered
	d.emit(models.ProgressEvent{Stage: string(StageResearching)})
	d.emit(models.ProgressEvent{Stage: string(StageAggregating)})
	d.emit(models.ProgressEvent{Stage: string(StageCritiquing)}) // queue full, dropped
	d.emit(models.ProgressEvent{Stage: string(StageDone)})       // evicts RESEARCHING

	close(release)
	d.close(time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"INIT", "AGGREGATING", "DONE"}, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&drops))
}

func TestDispatcherCloseWithoutFlushReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	d := newDispatcher(observerFunc(func(models.ProgressEvent) { <-release }), 4, nil, applogger.NewNop())
	d.emit(models.ProgressEvent{Stage: string(StageInit)})
	d.emit(models.ProgressEvent{Stage: string(StageDone)})

	start := time.Now()
	d.close(0)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
