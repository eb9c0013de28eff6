package models

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"
)

var (
	ErrCardNotFound = errors.New("forecast card not found")

	evidenceRef = regexp.MustCompile(`\[(ev-[0-9a-z]+)\]`)
)

// ForecastCard is the final artifact of a pipeline run.
type ForecastCard struct {
	ID          string         `json:"id"`
	MarketURL   string         `json:"market_url"`
	Probability float64        `json:"probability"`
	Rationale   string         `json:"rationale"`
	Evidence    []EvidenceItem `json:"evidence"`
	Mode        Mode           `json:"mode"`
	Drivers     []string       `json:"drivers,omitempty"`
	Critique    *Critique      `json:"critique,omitempty"`
	Metadata    CardMetadata   `json:"metadata"`
}

type CardMetadata struct {
	SessionID        string           `json:"session_id,omitempty"`
	CustomerID       string           `json:"customer_id,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      time.Time        `json:"completed_at"`
	DurationMs       int64            `json:"duration_ms"`
	StageDurationsMs map[string]int64 `json:"stage_durations_ms,omitempty"`
	CritiqueSkipped  bool             `json:"critique_skipped,omitempty"`
	FailedCalls      int              `json:"failed_calls,omitempty"`
	Notes            []string         `json:"notes,omitempty"`
}

// RationaleRefs lists the evidence IDs cited in a rationale, in order.
func RationaleRefs(rationale string) []string {
	m := evidenceRef.FindAllStringSubmatch(rationale, -1)
	refs := make([]string, 0, len(m))
	for _, sm := range m {
		refs = append(refs, sm[1])
	}
	return refs
}

// Validate checks the card invariants.
func (c *ForecastCard) Validate() error {
	if math.IsNaN(c.Probability) || c.Probability < 0 || c.Probability > 1 {
		return fmt.Errorf("probability %v outside [0,1]", c.Probability)
	}
	ids := make(map[string]struct{}, len(c.Evidence))
	for _, e := range c.Evidence {
		if e.Provenance == "" {
			return fmt.Errorf("evidence %s has no provenance", e.ID)
		}
		if _, dup := ids[e.ID]; dup {
			return fmt.Errorf("duplicate evidence id %s", e.ID)
		}
		ids[e.ID] = struct{}{}
	}
	for _, ref := range RationaleRefs(c.Rationale) {
		if _, ok := ids[ref]; !ok {
			return fmt.Errorf("rationale cites unknown evidence %s", ref)
		}
	}
	return nil
}
