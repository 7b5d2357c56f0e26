package services

import (
	"log"
	"time"

	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/gemcommunity/blog/backend/internal/repositories"
)

// Notifier records notification rows for likes and comments and feeds the
// live stream. It is a secondary side effect of the actions that call it:
// every failure is logged and swallowed so the like or comment itself is
// never blocked or rolled back.
type Notifier struct {
	notifications repositories.NotificationRepository
	hub           *Hub
}

// NewNotifier creates a new Notifier. hub may be nil when no live stream
// is wired (tests, one-off tools).
func NewNotifier(notificationRepo repositories.NotificationRepository, hub *Hub) *Notifier {
	return &Notifier{notifications: notificationRepo, hub: hub}
}

// Notify records that actor performed kind on recipient's post. Self-actions
// and calls with a missing recipient, actor, or post are silent no-ops.
// Likes are deduplicated: as long as an unread like notification from the
// same actor on the same post exists, repeated like/unlike/like toggling
// adds nothing. Comments are not deduplicated; every comment and reply
// notifies.
func (n *Notifier) Notify(recipientID, actorID uint, kind, postID string) {
	if recipientID == 0 || actorID == 0 || postID == "" {
		return
	}
	if recipientID == actorID {
		return
	}

	notification := &models.Notification{
		Type:        kind,
		ActorID:     actorID,
		RecipientID: recipientID,
		PostID:      postID,
		CreatedAt:   time.Now(),
	}

	var created bool
	var err error
	switch kind {
	case models.NotificationTypeLike:
		created, err = n.notifications.CreateUnlessUnreadDuplicate(notification)
	case models.NotificationTypeComment:
		err = n.notifications.CreateNotification(notification)
		created = err == nil
	default:
		log.Printf("notifier: unknown notification type %q", kind)
		return
	}

	if err != nil {
		log.Printf("notifier: failed to record %s notification for user %d: %v", kind, recipientID, err)
		return
	}
	if created && n.hub != nil {
		n.hub.Publish(recipientID, Event{Kind: EventNotification, Notification: notification})
	}
}
