package pipeline

import (
	"math"
	"sort"
	"strings"
	"time"

	"Foresight/internal/domain/models"
)

// normalizeEvidence drops items without provenance and fills IDs, topics,
// weights and timestamps. It returns a new slice. Items the collector did not
// timestamp get now, so repeated runs agree on evidence IDs and content but
// not on RetrievedAt.
func normalizeEvidence(topic string, items []models.EvidenceItem, now time.Time) []models.EvidenceItem {
	out := make([]models.EvidenceItem, 0, len(items))
	for _, it := range items {
		it.Provenance = strings.TrimSpace(it.Provenance)
		if it.Provenance == "" {
			continue
		}
		if it.Topic == "" {
			it.Topic = topic
		}
		if it.ID == "" {
			it.ID = models.EvidenceID(it.Topic, it.Provenance, it.Claim)
		}
		switch {
		case math.IsNaN(it.Probability):
			it.Probability = 0.5
		case it.Probability < 0:
			it.Probability = 0
		case it.Probability > 1:
			it.Probability = 1
		}
		if it.Weight <= 0 || math.IsNaN(it.Weight) || math.IsInf(it.Weight, 0) {
			it.Weight = 1
		}
		if it.RetrievedAt.IsZero() {
			it.RetrievedAt = now
		}
		out = append(out, it)
	}
	return out
}

// mergeEvidence unions evidence sets, keeping the first item seen per ID,
// and returns them sorted by ID.
func mergeEvidence(sets ...[]models.EvidenceItem) []models.EvidenceItem {
	seen := make(map[string]struct{})
	var out []models.EvidenceItem
	for _, set := range sets {
		for _, it := range set {
			if _, ok := seen[it.ID]; ok {
				continue
			}
			seen[it.ID] = struct{}{}
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// unknownEvidenceID reports the first id not present in all.
func unknownEvidenceID(all []models.EvidenceItem, ids []string) (string, bool) {
	known := make(map[string]struct{}, len(all))
	for _, it := range all {
		known[it.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return id, false
		}
	}
	return "", true
}

func uniqueTopics(drivers []string) []string {
	seen := make(map[string]struct{}, len(drivers))
	out := make([]string, 0, len(drivers))
	for _, d := range drivers {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
