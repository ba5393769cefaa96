package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/RDL-Tech-Solutions/MTW-sub002/internal/events"
)

func TestEventsStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := events.NewBroadcaster()
	r := gin.New()
	(&EventsHandler{Events: b}).Register(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/coupon-capture/events"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	b.Publish(events.Event{Type: events.TypeRunCompleted, Platform: "shopee"})

	var got events.Event
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, events.TypeRunCompleted, got.Type)
	assert.Equal(t, "shopee", got.Platform)
}
