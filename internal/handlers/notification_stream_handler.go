package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gemcommunity/blog/backend/internal/services"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // cross-origin handled by the CORS middleware on the HTTP side
	},
}

const streamWriteTimeout = 10 * time.Second

// NotificationStreamHandler bridges the in-process notification hub to a
// websocket so clients can keep a live unread badge. The stream carries
// increments only; clients reconcile with the unread-count endpoint on
// connect.
type NotificationStreamHandler struct {
	hub *services.Hub
}

// NewNotificationStreamHandler creates a new NotificationStreamHandler
func NewNotificationStreamHandler(hub *services.Hub) *NotificationStreamHandler {
	return &NotificationStreamHandler{hub: hub}
}

// RegisterStreamRoutes registers the websocket route
func (h *NotificationStreamHandler) RegisterStreamRoutes(g *echo.Group) {
	g.GET("/notifications/stream", h.Stream)
}

// Stream upgrades the connection and forwards the user's notification events
// until the client disconnects.
func (h *NotificationStreamHandler) Stream(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	sub := h.hub.Subscribe(currentUserID)
	defer sub.Cancel()

	// Reader goroutine: its only job is to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := ws.WriteJSON(ev); err != nil {
				log.Printf("notification stream: write to user %d failed: %v", currentUserID, err)
				return nil
			}
		case <-done:
			return nil
		}
	}
}
