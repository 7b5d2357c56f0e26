package handlers

import (
	"errors"
	"net/http"

	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/gemcommunity/blog/backend/internal/repositories"
	"github.com/gemcommunity/blog/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PushHandler handles device push subscription management and the
// comment-created webhook that triggers fan-out.
type PushHandler struct {
	subscriptionRepository repositories.PushSubscriptionRepository
	pusher                 *services.Pusher
	vapidPublicKey         string
	webhookToken           string
}

// NewPushHandler creates a new PushHandler. vapidPublicKey may be empty
// when push is not configured; subscription endpoints then answer 503.
func NewPushHandler(subscriptionRepo repositories.PushSubscriptionRepository, pusher *services.Pusher, vapidPublicKey, webhookToken string) *PushHandler {
	return &PushHandler{
		subscriptionRepository: subscriptionRepo,
		pusher:                 pusher,
		vapidPublicKey:         vapidPublicKey,
		webhookToken:           webhookToken,
	}
}

// RegisterPushRoutes registers the authenticated subscription-management routes
func (h *PushHandler) RegisterPushRoutes(g *echo.Group) {
	g.GET("/push/public-key", h.GetPublicKey)
	g.POST("/push/subscriptions", h.Subscribe)
	g.DELETE("/push/subscriptions", h.Unsubscribe)
	g.GET("/push/subscriptions/status", h.GetStatus)
}

// RegisterWebhookRoutes registers the database-webhook entry point. It lives
// outside the JWT group: the caller authenticates with the webhook token.
func (h *PushHandler) RegisterWebhookRoutes(e *echo.Echo) {
	e.POST("/webhooks/comment-created", h.HandleCommentWebhook)
}

// GetPublicKey returns the VAPID application public key clients subscribe with
func (h *PushHandler) GetPublicKey(c echo.Context) error {
	if h.vapidPublicKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Push notifications are not configured")
	}
	return c.JSON(http.StatusOK, echo.Map{"publicKey": h.vapidPublicKey})
}

// Subscribe stores (or refreshes) the calling user's device subscription
func (h *PushHandler) Subscribe(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if h.vapidPublicKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Push notifications are not configured")
	}

	var req models.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sub := &models.PushSubscription{
		UserID:   currentUserID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}

	if err := h.subscriptionRepository.UpsertSubscription(sub); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true})
}

// Unsubscribe removes the device subscription identified by its endpoint
func (h *PushHandler) Unsubscribe(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UnsubscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.subscriptionRepository.DeleteSubscription(currentUserID, req.Endpoint); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// GetStatus reports whether the given endpoint is registered for the user.
// Absence is a normal answer, never an error.
func (h *PushHandler) GetStatus(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	endpoint := c.QueryParam("endpoint")
	if endpoint == "" {
		return c.JSON(http.StatusOK, echo.Map{"subscribed": false})
	}

	subscribed, err := h.subscriptionRepository.HasSubscription(currentUserID, endpoint)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"subscribed": false})
	}

	return c.JSON(http.StatusOK, echo.Map{"subscribed": subscribed})
}

// webhookPayload is the database-webhook shape: the inserted comment row
type webhookPayload struct {
	Record *services.CommentEvent `json:"record"`
}

// HandleCommentWebhook runs the push fan-out for a newly inserted comment
func (h *PushHandler) HandleCommentWebhook(c echo.Context) error {
	if h.webhookToken != "" && c.Request().Header.Get("X-Webhook-Token") != h.webhookToken {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook token")
	}

	var payload webhookPayload
	if err := c.Bind(&payload); err != nil || payload.Record == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Payload error"})
	}

	result, err := h.pusher.FanOut(c.Request().Context(), *payload.Record)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if result.Subscriptions == 0 {
		return c.JSON(http.StatusOK, echo.Map{"message": "No subscriptions found for user"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Sent notifications",
		"result":  result,
	})
}
