package services

import (
	"errors"
	"testing"

	"github.com/gemcommunity/blog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_LikeDeduplicatesUnread(t *testing.T) {
	repo := newFakeNotificationRepo()
	n := NewNotifier(repo, nil)

	n.Notify(1, 2, models.NotificationTypeLike, "p1")
	n.Notify(1, 2, models.NotificationTypeLike, "p1")

	rows := repo.all()
	require.Len(t, rows, 1)
	assert.Equal(t, uint(1), rows[0].RecipientID)
	assert.Equal(t, uint(2), rows[0].ActorID)
	assert.Equal(t, models.NotificationTypeLike, rows[0].Type)
	assert.False(t, rows[0].IsRead)
}

func TestNotifier_LikeNotifiesAgainAfterRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	n := NewNotifier(repo, nil)

	n.Notify(1, 2, models.NotificationTypeLike, "p1")
	require.NoError(t, repo.MarkAllAsRead(1))
	n.Notify(1, 2, models.NotificationTypeLike, "p1")

	assert.Len(t, repo.all(), 2)
}

func TestNotifier_CommentsAreNotDeduplicated(t *testing.T) {
	repo := newFakeNotificationRepo()
	n := NewNotifier(repo, nil)

	n.Notify(1, 2, models.NotificationTypeComment, "p1")
	n.Notify(1, 2, models.NotificationTypeComment, "p1")

	assert.Len(t, repo.all(), 2)
}

func TestNotifier_SelfActionIsSilentNoop(t *testing.T) {
	repo := newFakeNotificationRepo()
	n := NewNotifier(repo, nil)

	n.Notify(7, 7, models.NotificationTypeLike, "p1")
	n.Notify(7, 7, models.NotificationTypeComment, "p1")

	assert.Empty(t, repo.all())
}

func TestNotifier_MissingKeysAreSilentNoops(t *testing.T) {
	repo := newFakeNotificationRepo()
	n := NewNotifier(repo, nil)

	n.Notify(0, 2, models.NotificationTypeLike, "p1")
	n.Notify(1, 0, models.NotificationTypeLike, "p1")
	n.Notify(1, 2, models.NotificationTypeLike, "")

	assert.Empty(t, repo.all())
}

func TestNotifier_PersistenceErrorIsSwallowed(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.createErr = errors.New("connection refused")
	hub := NewHub()
	sub := hub.Subscribe(1)
	defer sub.Cancel()

	n := NewNotifier(repo, hub)

	// Must not panic or propagate, and must not publish a live event.
	n.Notify(1, 2, models.NotificationTypeComment, "p1")

	assert.Empty(t, repo.all())
	assert.Empty(t, sub.C)
}

func TestNotifier_PublishesLiveEventOnInsert(t *testing.T) {
	repo := newFakeNotificationRepo()
	hub := NewHub()
	sub := hub.Subscribe(1)
	defer sub.Cancel()

	n := NewNotifier(repo, hub)
	n.Notify(1, 2, models.NotificationTypeComment, "p1")

	require.Len(t, sub.C, 1)
	ev := <-sub.C
	assert.Equal(t, EventNotification, ev.Kind)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "p1", ev.Notification.PostID)

	// Suppressed duplicate likes must not produce events either.
	n.Notify(1, 2, models.NotificationTypeLike, "p1")
	n.Notify(1, 2, models.NotificationTypeLike, "p1")
	assert.Len(t, sub.C, 1)
}
