package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/events"
)

// EventsHandler streams capture events to websocket clients.
type EventsHandler struct {
	Events *events.Broadcaster
	Logger *zap.Logger
	Guard  gin.HandlerFunc
	// OriginPatterns are passed to websocket.Accept; empty means same origin.
	OriginPatterns []string
}

func (h *EventsHandler) Register(r *gin.Engine) {
	handlers := []gin.HandlerFunc{}
	if h.Guard != nil {
		handlers = append(handlers, h.Guard)
	}
	handlers = append(handlers, h.stream)
	r.GET("/api/coupon-capture/events", handlers...)
}

// @Summary Live capture events (websocket)
// @Tags coupon-capture
// @Success 101
// @Router /api/coupon-capture/events [get]
func (h *EventsHandler) stream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ch, cancel := h.Events.Subscribe(64)
	defer cancel()

	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutdown")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, conn, ev)
			wcancel()
			if err != nil {
				return
			}
		}
	}
}
