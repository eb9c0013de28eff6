package research

import (
	"context"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
)

type critiqueEvidence struct {
	ID          string  `json:"id"`
	Topic       string  `json:"topic,omitempty"`
	Claim       string  `json:"claim"`
	Source      string  `json:"source"`
	Probability float64 `json:"probability"`
}

type critiqueRequest struct {
	MarketURL   string             `json:"market_url"`
	Probability float64            `json:"probability"`
	Rationale   string             `json:"rationale"`
	Evidence    []critiqueEvidence `json:"evidence"`
}

// HTTPCritic sends a draft to the critique service and returns its gaps.
type HTTPCritic struct {
	base *HTTPServiceBase
}

func NewHTTPCritic(base *HTTPServiceBase) *HTTPCritic {
	return &HTTPCritic{base: base}
}

var _ service.Critic = (*HTTPCritic)(nil)

func (c *HTTPCritic) Critique(ctx context.Context, req models.AnalysisRequest, draft models.DraftForecast, evidence []models.EvidenceItem) (models.Critique, error) {
	body := critiqueRequest{
		MarketURL:   req.MarketURL,
		Probability: draft.Probability,
		Rationale:   draft.Rationale,
		Evidence:    make([]critiqueEvidence, 0, len(evidence)),
	}
	for _, e := range evidence {
		body.Evidence = append(body.Evidence, critiqueEvidence{
			ID:          e.ID,
			Topic:       e.Topic,
			Claim:       e.Claim,
			Source:      e.Provenance,
			Probability: e.Probability,
		})
	}

	var out models.Critique
	if err := c.base.PostJSONWithRetry(ctx, "/critique", body, &out); err != nil {
		return models.Critique{}, err
	}
	return out, nil
}
