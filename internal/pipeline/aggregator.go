package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"Foresight/internal/domain/models"
)

// LogOddsAggregator pools evidence probabilities in log-odds space. Items in
// the same correlation cluster are discounted by 1/(1+(n-1)*rho) so that n
// echoes of one story do not count as n independent signals.
type LogOddsAggregator struct {
	MaxCited int     // rationale lines; 8 when zero
	Floor    float64 // probabilities are clamped to [Floor, 1-Floor] before logit; 0.01 when zero
}

func NewLogOddsAggregator() *LogOddsAggregator {
	return &LogOddsAggregator{MaxCited: 8, Floor: 0.01}
}

func (a *LogOddsAggregator) Aggregate(_ context.Context, req models.AnalysisRequest, evidence []models.EvidenceItem) (models.DraftForecast, error) {
	items := mergeEvidence(evidence)
	if len(items) == 0 {
		return models.DraftForecast{}, ErrNoEvidence
	}

	floor := a.Floor
	if floor <= 0 || floor >= 0.5 {
		floor = 0.01
	}

	clusterSize := make(map[string]int)
	clusters := make([]string, 0)
	for _, it := range items {
		k := it.ClusterKey()
		if clusterSize[k] == 0 {
			clusters = append(clusters, k)
		}
		clusterSize[k]++
	}

	type scored struct {
		item     models.EvidenceItem
		strength float64
	}
	var (
		num, den float64
		ranked   = make([]scored, 0, len(items))
	)
	for _, it := range items {
		k := it.ClusterKey()
		w := it.Weight
		if w <= 0 {
			w = 1
		}
		w *= clusterDiscount(clusterSize[k], req.RhoByCluster[k])
		l := logit(clamp(it.Probability, floor, 1-floor))
		num += w * l
		den += w
		ranked = append(ranked, scored{item: it, strength: w * math.Abs(l)})
	}

	p := 0.5
	if den > 0 {
		p = clamp(sigmoid(num/den), 0, 1)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].strength != ranked[j].strength {
			return ranked[i].strength > ranked[j].strength
		}
		return ranked[i].item.ID < ranked[j].item.ID
	})
	maxCited := a.MaxCited
	if maxCited <= 0 {
		maxCited = 8
	}
	if len(ranked) > maxCited {
		ranked = ranked[:maxCited]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pooled %d evidence items across %d clusters; estimate %.1f%%.\n", len(items), len(clusters), p*100)
	for _, s := range ranked {
		fmt.Fprintf(&b, "- [%s] %s (%s, p=%.2f)\n", s.item.ID, oneLine(s.item.Claim), topicLabel(s.item.Topic), s.item.Probability)
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return models.DraftForecast{
		Probability: p,
		Rationale:   strings.TrimRight(b.String(), "\n"),
		EvidenceIDs: ids,
	}, nil
}

func clusterDiscount(n int, rho float64) float64 {
	if n <= 1 || math.IsNaN(rho) {
		return 1
	}
	rho = clamp(rho, 0, 1)
	return 1 / (1 + float64(n-1)*rho)
}

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
