package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EvidenceItem is one retrieved fact with its source.
type EvidenceItem struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Cluster     string    `json:"cluster,omitempty"`
	Claim       string    `json:"claim"`
	Provenance  string    `json:"provenance"`
	Probability float64   `json:"probability"` // implied YES probability
	Weight      float64   `json:"weight"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// EvidenceID derives a stable identifier from the item's content.
func EvidenceID(topic, provenance, claim string) string {
	sum := sha256.Sum256([]byte(topic + "|" + provenance + "|" + claim))
	return "ev-" + hex.EncodeToString(sum[:])[:12]
}

// ClusterKey is the correlation cluster the item belongs to.
func (e EvidenceItem) ClusterKey() string {
	if e.Cluster != "" {
		return e.Cluster
	}
	return e.Topic
}

// DraftForecast is an intermediate aggregation result. Re-aggregation
// produces a new draft instead of mutating the previous one.
type DraftForecast struct {
	Probability float64  `json:"probability"`
	Rationale   string   `json:"rationale"`
	EvidenceIDs []string `json:"evidence_ids"`
}

// Gap is a weakness flagged by the critic.
type Gap struct {
	Topic    string `json:"topic"`
	Reason   string `json:"reason"`
	Severity string `json:"severity,omitempty"` // low | medium | high
}

type Critique struct {
	Summary string `json:"summary,omitempty"`
	Gaps    []Gap  `json:"gaps"`
}
