package repositories

import (
	"fmt"

	"github.com/gemcommunity/blog/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	CreateUnlessUnreadDuplicate(notification *models.Notification) (bool, error)
	GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(recipientID uint) (int64, error)
	MarkAsRead(notificationID, recipientID uint) error
	MarkAllAsRead(recipientID uint) error
	DeleteNotification(notificationID, recipientID uint) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// CreateUnlessUnreadDuplicate inserts the notification only if no unread row
// with the same (recipient, actor, type, post) tuple exists. The existence
// check and the insert are one statement, so two concurrent like triggers
// cannot both slip past the check. Returns whether a row was inserted.
func (r *postgresNotificationRepository) CreateUnlessUnreadDuplicate(n *models.Notification) (bool, error) {
	res := r.db.Exec(`
		INSERT INTO notifications (type, actor_id, recipient_id, post_id, is_read, created_at)
		SELECT ?, ?, ?, ?, false, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM notifications
			WHERE recipient_id = ? AND actor_id = ? AND type = ? AND post_id = ? AND is_read = false
		)`,
		n.Type, n.ActorID, n.RecipientID, n.PostID,
		n.RecipientID, n.ActorID, n.Type, n.PostID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postgresNotificationRepository) GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	r.db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&total)

	offset := (page - 1) * limit
	err := r.db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetUnreadCount(recipientID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).Where("recipient_id = ? AND is_read = false", recipientID).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(notificationID, recipientID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_read", true).Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(recipientID uint) error {
	return r.db.Model(&models.Notification{}).Where("recipient_id = ? AND is_read = false", recipientID).Update("is_read", true).Error
}

func (r *postgresNotificationRepository) DeleteNotification(notificationID, recipientID uint) error {
	res := r.db.Where("id = ? AND recipient_id = ?", notificationID, recipientID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}
