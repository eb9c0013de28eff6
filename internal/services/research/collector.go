package research

import (
	"context"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
	"Foresight/pkg/util"
)

type priorFinding struct {
	ID    string `json:"id"`
	Topic string `json:"topic,omitempty"`
	Claim string `json:"claim"`
}

type researchRequest struct {
	MarketURL       string         `json:"market_url"`
	Topic           string         `json:"topic,omitempty"`
	Mode            string         `json:"mode"`
	HistoryInterval string         `json:"history_interval"`
	SessionID       string         `json:"session_id,omitempty"`
	CustomerID      string         `json:"customer_id,omitempty"`
	Prior           []priorFinding `json:"prior,omitempty"`
	Gap             *models.Gap    `json:"gap,omitempty"`
}

type researchItem struct {
	Claim       string  `json:"claim"`
	Source      string  `json:"source"`
	Cluster     string  `json:"cluster,omitempty"`
	Probability float64 `json:"probability"`
	Weight      float64 `json:"weight,omitempty"`
}

type researchResponse struct {
	Items []researchItem `json:"items"`
}

// HTTPEvidenceCollector asks the research service for findings on one topic.
type HTTPEvidenceCollector struct {
	base *HTTPServiceBase
}

func NewHTTPEvidenceCollector(base *HTTPServiceBase) *HTTPEvidenceCollector {
	return &HTTPEvidenceCollector{base: base}
}

var _ service.EvidenceCollector = (*HTTPEvidenceCollector)(nil)

func (c *HTTPEvidenceCollector) Collect(ctx context.Context, q service.CollectQuery) ([]models.EvidenceItem, error) {
	interval, _ := util.ParseInterval(q.Request.HistoryInterval)
	mode := q.Request.Mode
	if mode == "" {
		mode = models.ModeFast
	}
	req := researchRequest{
		MarketURL:       q.Request.MarketURL,
		Topic:           q.Topic,
		Mode:            string(mode),
		HistoryInterval: interval,
		SessionID:       q.Request.SessionID,
		CustomerID:      q.Request.CustomerID,
		Gap:             q.Gap,
	}
	for _, p := range q.Prior {
		req.Prior = append(req.Prior, priorFinding{ID: p.ID, Topic: p.Topic, Claim: p.Claim})
	}

	var resp researchResponse
	if err := c.base.PostJSONWithRetry(ctx, "/research", req, &resp); err != nil {
		return nil, err
	}

	items := make([]models.EvidenceItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, models.EvidenceItem{
			Topic:       q.Topic,
			Cluster:     it.Cluster,
			Claim:       it.Claim,
			Provenance:  it.Source,
			Probability: it.Probability,
			Weight:      it.Weight,
		})
	}
	return items, nil
}
