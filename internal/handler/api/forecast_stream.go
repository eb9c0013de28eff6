package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"Foresight/internal/domain/models"
	"Foresight/internal/service/metrics"
	xhttp "Foresight/pkg/http"
	applogger "Foresight/pkg/logger"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// streamFrame is one server message on the forecast stream.
type streamFrame struct {
	Type  string                `json:"type"` // progress | card | error
	Event *models.ProgressEvent `json:"event,omitempty"`
	Card  *models.ForecastCard  `json:"card,omitempty"`
	Error *xhttp.AppError       `json:"error,omitempty"`
}

// Stream upgrades to a WebSocket, reads one ForecastRequest frame and streams
// progress frames followed by a single card or error frame. A client that
// disconnects early does not cancel the run; its card is still stored.
func (h *ForecastEchoHandler) Stream(c echo.Context) error {
	conn, err := streamUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return nil
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		return nil
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	req := &models.ForecastRequest{}
	if err := conn.ReadJSON(req); err != nil {
		h.writeFinal(conn, streamFrame{Type: "error", Error: xhttp.BadRequestError("first frame must be a forecast request")})
		return nil
	}
	if verr := xhttp.ValidateStruct(c.Request().Context(), req); verr != nil {
		appErr := xhttp.BadRequestError("invalid forecast request").WithParam("errors", verr)
		h.writeFinal(conn, streamFrame{Type: "error", Error: appErr})
		return nil
	}
	if !h.allow(c.RealIP()) {
		h.writeFinal(conn, streamFrame{Type: "error", Error: xhttp.TooManyRequestsError("rate limit exceeded, retry later")})
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writeCh := make(chan streamFrame, 32)
	writerDone := make(chan struct{})
	go h.streamWriter(ctx, conn, writeCh, writerDone)

	// Reading keeps control frames flowing; a read error means the client left.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	push := func(f streamFrame) {
		select {
		case writeCh <- f:
		case <-ctx.Done():
		}
	}
	observer := streamObserver(push)

	start := time.Now()
	card, err := h.svc.Analyze(context.WithoutCancel(c.Request().Context()), req.ToAnalysisRequest(), observer)
	observe("stream", start)
	if err != nil {
		metrics.ForecastErrors.WithLabelValues("stream").Inc()
		h.l.Warn("stream forecast failed", applogger.String("market_url", req.MarketURL), applogger.Error(err))
		push(streamFrame{Type: "error", Error: toAppError(err)})
	} else {
		push(streamFrame{Type: "card", Card: card})
	}

	select {
	case <-writerDone:
	case <-ctx.Done():
	}
	return nil
}

type streamObserver func(streamFrame)

func (o streamObserver) OnProgress(ev models.ProgressEvent) {
	o(streamFrame{Type: "progress", Event: &ev})
}

// streamWriter owns all writes to conn. It returns after writing a card or
// error frame, or when ctx is cancelled.
func (h *ForecastEchoHandler) streamWriter(ctx context.Context, conn *websocket.Conn, in <-chan streamFrame, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(streamPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-in:
			if f.Type != "progress" {
				h.writeFinal(conn, f)
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeFinal sends the last frame followed by a normal close.
func (h *ForecastEchoHandler) writeFinal(conn *websocket.Conn, f streamFrame) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(f); err != nil {
		h.l.Debug("stream write failed", applogger.Error(err))
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, f.Type))
}
