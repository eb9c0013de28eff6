package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"Foresight/internal/domain/models"
	"Foresight/internal/domain/service"
	"Foresight/internal/pipeline"
	"Foresight/internal/service/metrics"
	"Foresight/internal/service/ratelimit"
	xhttp "Foresight/pkg/http"
	applogger "Foresight/pkg/logger"
)

// ForecastService is what the handlers need from the analysis use case.
type ForecastService interface {
	Analyze(ctx context.Context, req models.AnalysisRequest, observer service.ProgressObserver) (*models.ForecastCard, error)
	GetCard(ctx context.Context, id string) (*models.ForecastCard, error)
	ListCards(ctx context.Context, marketURL string, limit int) ([]*models.ForecastCard, error)
	Health(ctx context.Context) error
}

// RateLimit is a per-client token bucket applied to endpoints that start a run.
type RateLimit struct {
	Capacity     float64
	RefillPerSec float64
}

type ForecastEchoHandler struct {
	svc  ForecastService
	rl   *ratelimit.Limiter
	rate RateLimit
	l    *applogger.Logger
}

func NewForecastEchoHandler(svc ForecastService, rate RateLimit, l *applogger.Logger) *ForecastEchoHandler {
	metrics.Register()
	if l == nil {
		l = applogger.NewNop()
	}
	return &ForecastEchoHandler{svc: svc, rl: ratelimit.New(), rate: rate, l: l}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.POST("/forecast", h.Create)
	g.GET("/forecast/stream", h.Stream)
	g.GET("/forecast/:id", h.Get)
	g.GET("/forecasts", h.List)
}

// Create runs the pipeline synchronously and returns the card.
func (h *ForecastEchoHandler) Create(c echo.Context) error {
	const endpoint = "create"
	defer observe(endpoint, time.Now())

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c.RealIP()) {
		h.l.Warn("forecast rate limited", applogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded, retry later"))
	}

	card, err := h.svc.Analyze(c.Request().Context(), req.ToAnalysisRequest(), nil)
	if err != nil {
		metrics.ForecastErrors.WithLabelValues(endpoint).Inc()
		appErr := toAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.l.Error("forecast failed", applogger.String("market_url", req.MarketURL), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, card)
}

func (h *ForecastEchoHandler) Get(c echo.Context) error {
	const endpoint = "get"
	defer observe(endpoint, time.Now())

	card, err := h.svc.GetCard(c.Request().Context(), c.Param("id"))
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status != http.StatusNotFound {
			metrics.ForecastErrors.WithLabelValues(endpoint).Inc()
			h.l.Error("get card failed", applogger.String("id", c.Param("id")), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, card)
}

func (h *ForecastEchoHandler) List(c echo.Context) error {
	const endpoint = "list"
	defer observe(endpoint, time.Now())

	req := &models.CardListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cards, err := h.svc.ListCards(c.Request().Context(), req.MarketURL, req.Limit)
	if err != nil {
		metrics.ForecastErrors.WithLabelValues(endpoint).Inc()
		h.l.Error("list cards failed", applogger.String("market_url", req.MarketURL), applogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.ListResponse(c, cards, int64(len(cards)))
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Health(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Janitor drops idle rate-limit buckets until ctx is done.
func (h *ForecastEchoHandler) Janitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.rl.Sweep(every); n > 0 {
				h.l.Debug("rate limit buckets swept", applogger.Int("count", n))
			}
		}
	}
}

func (h *ForecastEchoHandler) allow(client string) bool {
	if h.rate.Capacity <= 0 {
		return true
	}
	return h.rl.Allow(client+":forecast", h.rate.Capacity, h.rate.RefillPerSec)
}

func observe(endpoint string, start time.Time) {
	metrics.ForecastLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// toAppError maps domain and pipeline failures onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, models.ErrInvalidRequest) {
		return xhttp.BadRequestError(err.Error()).WithError(err)
	}
	if errors.Is(err, models.ErrCardNotFound) {
		return xhttp.NotFoundError("forecast card not found").WithError(err)
	}
	var perr *pipeline.PipelineError
	if errors.As(err, &perr) {
		return xhttp.BadGatewayError("ERR_PIPELINE", perr.Err.Error()).
			WithParam("during", string(perr.During)).
			WithParam("stage", string(perr.Completed)).
			WithError(err)
	}
	return xhttp.InternalError("internal error").WithError(err)
}
