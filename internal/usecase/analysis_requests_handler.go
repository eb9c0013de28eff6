package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"Foresight/internal/domain/models"
	pkgkafka "Foresight/pkg/kafka"
	applogger "Foresight/pkg/logger"
)

// AnalysisRequestsHandler runs forecasts for requests arriving on the
// requests topic. Malformed or invalid requests are logged and acknowledged;
// pipeline failures are returned so the consumer retries and dead-letters them.
type AnalysisRequestsHandler struct {
	topic string
	uc    *AnalysisUseCase
	log   *applogger.Logger
}

func NewAnalysisRequestsHandler(topic string, uc *AnalysisUseCase, l *applogger.Logger) *AnalysisRequestsHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &AnalysisRequestsHandler{topic: topic, uc: uc, log: l}
}

func (h *AnalysisRequestsHandler) Topic() string { return h.topic }

func (h *AnalysisRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.log.Warn("dropping undecodable analysis request", applogger.Error(err))
		return nil
	}
	if err := req.Validate(); err != nil {
		h.log.Warn("dropping invalid analysis request", applogger.Error(err))
		return nil
	}

	card, err := h.uc.Analyze(ctx, req, nil)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRequest) {
			return nil
		}
		return err
	}
	h.log.Info("forecast completed from queue",
		applogger.String("card_id", card.ID),
		applogger.String("market_url", card.MarketURL),
		applogger.String("trace_id", pkgkafka.TraceIDFromContext(ctx)),
		applogger.Float64("probability", card.Probability))
	return nil
}

var _ pkgkafka.MessageHandler = (*AnalysisRequestsHandler)(nil)
