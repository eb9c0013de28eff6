package pipeline

import (
	"context"
	"testing"

	"Foresight/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(topic, cluster, src string, p float64) models.EvidenceItem {
	return models.EvidenceItem{
		ID:          models.EvidenceID(topic, src, "claim from "+src),
		Topic:       topic,
		Cluster:     cluster,
		Claim:       "claim from " + src,
		Provenance:  src,
		Probability: p,
		Weight:      1,
	}
}

func TestLogOddsAggregatorEmpty(t *testing.T) {
	_, err := NewLogOddsAggregator().Aggregate(context.Background(), models.AnalysisRequest{}, nil)
	assert.ErrorIs(t, err, ErrNoEvidence)
}

func TestLogOddsAggregatorSymmetricEvidenceIsEven(t *testing.T) {
	ev := []models.EvidenceItem{
		item("a", "", "s1", 0.8),
		item("b", "", "s2", 0.2),
	}
	d, err := NewLogOddsAggregator().Aggregate(context.Background(), models.AnalysisRequest{}, ev)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, d.Probability, 1e-9)
	assert.Len(t, d.EvidenceIDs, 2)
}

func TestLogOddsAggregatorClusterDiscount(t *testing.T) {
	// Three correlated YES items against one independent NO item.
	ev := []models.EvidenceItem{
		item("polls", "polls", "p1", 0.8),
		item("polls", "polls", "p2", 0.8),
		item("polls", "polls", "p3", 0.8),
		item("economy", "", "e1", 0.2),
	}
	agg := NewLogOddsAggregator()

	independent, err := agg.Aggregate(context.Background(), models.AnalysisRequest{}, ev)
	require.NoError(t, err)
	correlated, err := agg.Aggregate(context.Background(), models.AnalysisRequest{
		RhoByCluster: map[string]float64{"polls": 1},
	}, ev)
	require.NoError(t, err)

	assert.Greater(t, independent.Probability, correlated.Probability)
	// rho=1 collapses the cluster to the weight of one item.
	assert.InDelta(t, 0.5, correlated.Probability, 1e-9)
}

func TestLogOddsAggregatorDeduplicatesAndOrders(t *testing.T) {
	a := item("a", "", "s1", 0.9)
	b := item("b", "", "s2", 0.6)
	d, err := NewLogOddsAggregator().Aggregate(context.Background(), models.AnalysisRequest{}, []models.EvidenceItem{b, a, b})
	require.NoError(t, err)

	want := []string{a.ID, b.ID}
	if b.ID < a.ID {
		want = []string{b.ID, a.ID}
	}
	assert.Equal(t, want, d.EvidenceIDs)
}

func TestLogOddsAggregatorRationaleCitesKnownEvidence(t *testing.T) {
	var ev []models.EvidenceItem
	for _, src := range []string{"s1", "s2", "s3", "s4"} {
		ev = append(ev, item("t", "", src, 0.65))
	}
	agg := &LogOddsAggregator{MaxCited: 2}
	d, err := agg.Aggregate(context.Background(), models.AnalysisRequest{}, ev)
	require.NoError(t, err)

	refs := models.RationaleRefs(d.Rationale)
	assert.Len(t, refs, 2)
	for _, ref := range refs {
		assert.Contains(t, d.EvidenceIDs, ref)
	}
	assert.Contains(t, d.Rationale, "Pooled 4 evidence items across 1 clusters")
}

func TestLogOddsAggregatorExtremesStayInRange(t *testing.T) {
	ev := []models.EvidenceItem{item("a", "", "s1", 1), item("b", "", "s2", 1)}
	d, err := NewLogOddsAggregator().Aggregate(context.Background(), models.AnalysisRequest{}, ev)
	require.NoError(t, err)
	assert.LessOrEqual(t, d.Probability, 1.0)
	assert.GreaterOrEqual(t, d.Probability, 0.0)
	assert.InDelta(t, 0.99, d.Probability, 1e-9)
}

func TestClusterDiscount(t *testing.T) {
	assert.Equal(t, 1.0, clusterDiscount(1, 0.9))
	assert.Equal(t, 1.0, clusterDiscount(4, 0))
	assert.InDelta(t, 0.25, clusterDiscount(4, 1), 1e-12)
	assert.InDelta(t, 0.25, clusterDiscount(4, 7), 1e-12)
	assert.InDelta(t, 0.4, clusterDiscount(4, 0.5), 1e-12)
}
