package pipeline

import (
	"errors"
	"testing"
	"time"

	"Foresight/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestAtLeastOneSucceeded(t *testing.T) {
	ok := CallResult{Topic: "a", Items: []models.EvidenceItem{{ID: "ev-1"}}}
	empty := CallResult{Topic: "b"}
	failed := CallResult{Topic: "c", Err: errors.New("down")}

	assert.NoError(t, AtLeastOneSucceeded([]CallResult{ok, failed}))
	assert.ErrorIs(t, AtLeastOneSucceeded([]CallResult{empty, failed}), ErrNoEvidence)

	err := AtLeastOneSucceeded([]CallResult{failed, {Err: errors.New("refused")}})
	assert.ErrorIs(t, err, ErrAllCollectorsFailed)
	assert.Contains(t, err.Error(), "c: down")
	assert.Contains(t, err.Error(), "general: refused")
}

func TestNormalizeEvidence(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := []models.EvidenceItem{
		{Claim: "no source"},
		{Claim: "rain likely", Provenance: " https://wx.example/1 ", Probability: 1.4, Weight: -2},
		{ID: "ev-keep", Topic: "other", Claim: "x", Provenance: "src", Probability: 0.3, Weight: 2},
	}
	out := normalizeEvidence("weather", in, now)

	assert.Len(t, out, 2)
	assert.Equal(t, "weather", out[0].Topic)
	assert.Equal(t, "https://wx.example/1", out[0].Provenance)
	assert.Equal(t, models.EvidenceID("weather", "https://wx.example/1", "rain likely"), out[0].ID)
	assert.Equal(t, 1.0, out[0].Probability)
	assert.Equal(t, 1.0, out[0].Weight)
	assert.Equal(t, now, out[0].RetrievedAt)

	assert.Equal(t, "ev-keep", out[1].ID)
	assert.Equal(t, "other", out[1].Topic)
	assert.Equal(t, 2.0, out[1].Weight)
}

func TestMergeEvidenceKeepsFirstAndSorts(t *testing.T) {
	a := []models.EvidenceItem{{ID: "ev-b", Claim: "first"}, {ID: "ev-a"}}
	b := []models.EvidenceItem{{ID: "ev-b", Claim: "second"}, {ID: "ev-c"}}

	got := mergeEvidence(a, b)
	assert.Equal(t, []string{"ev-a", "ev-b", "ev-c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "first", got[1].Claim)
}

func TestGapDeriver(t *testing.T) {
	c := models.Critique{Gaps: []models.Gap{
		{Topic: "polling", Reason: "stale"},
		{Topic: " "},
		{Topic: "polling", Reason: "dup"},
		{Topic: "turnout"},
		{Topic: "weather"},
	}}

	got := GapDeriver{Max: 2}.Derive(c)
	assert.Equal(t, []models.Gap{{Topic: "polling", Reason: "stale"}, {Topic: "turnout"}}, got)
	assert.Len(t, GapDeriver{}.Derive(c), 3)
	assert.Empty(t, GapDeriver{}.Derive(models.Critique{}))
}

func TestObserversIsolatesPanics(t *testing.T) {
	var got []string
	obs := Observers(
		nil,
		observerFunc(func(models.ProgressEvent) { panic("boom") }),
		observerFunc(func(ev models.ProgressEvent) { got = append(got, ev.Stage) }),
	)
	obs.OnProgress(models.ProgressEvent{Stage: "RESEARCHING"})
	assert.Equal(t, []string{"RESEARCHING"}, got)
}

type observerFunc func(models.ProgressEvent)

func (f observerFunc) OnProgress(ev models.ProgressEvent) { f(ev) }
