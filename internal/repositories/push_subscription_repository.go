package repositories

import (
	"github.com/gemcommunity/blog/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushSubscriptionRepository defines the interface for device push subscriptions
type PushSubscriptionRepository interface {
	UpsertSubscription(sub *models.PushSubscription) error
	DeleteSubscription(userID uint, endpoint string) error
	DeleteByEndpoint(endpoint string) error
	HasSubscription(userID uint, endpoint string) (bool, error)
	GetByUserID(userID uint) ([]models.PushSubscription, error)
}

type postgresPushSubscriptionRepository struct {
	db *gorm.DB
}

func NewPostgresPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &postgresPushSubscriptionRepository{db: db}
}

// UpsertSubscription inserts the device subscription or refreshes its keys
// when the (user, endpoint) pair already exists.
func (r *postgresPushSubscriptionRepository) UpsertSubscription(sub *models.PushSubscription) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
}

func (r *postgresPushSubscriptionRepository) DeleteSubscription(userID uint, endpoint string) error {
	return r.db.Where("user_id = ? AND endpoint = ?", userID, endpoint).Delete(&models.PushSubscription{}).Error
}

// DeleteByEndpoint removes every row for an endpoint the push service reported
// gone. Used by fan-out pruning, where only the endpoint is known.
func (r *postgresPushSubscriptionRepository) DeleteByEndpoint(endpoint string) error {
	return r.db.Where("endpoint = ?", endpoint).Delete(&models.PushSubscription{}).Error
}

func (r *postgresPushSubscriptionRepository) HasSubscription(userID uint, endpoint string) (bool, error) {
	var count int64
	err := r.db.Model(&models.PushSubscription{}).Where("user_id = ? AND endpoint = ?", userID, endpoint).Count(&count).Error
	return count > 0, err
}

func (r *postgresPushSubscriptionRepository) GetByUserID(userID uint) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := r.db.Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}
