package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordRun("fast", "success", 1.2)
	r.RecordRun("fast", "success", 0.8)
	r.RecordRun("comprehensive", "failed", 3)
	r.RecordStageFailure("RESEARCHING")
	r.RecordDegraded("critique_failed")
	r.RecordObserverDrop()
	r.RecordError("cache_put")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("fast", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("comprehensive", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stageFailures.WithLabelValues("RESEARCHING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.degraded.WithLabelValues("critique_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.observerDrops))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("cache_put")))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
