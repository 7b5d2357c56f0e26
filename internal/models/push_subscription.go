package models

import "time"

// PushSubscription holds one browser push subscription for one of a user's
// devices. The endpoint and encryption keys are issued by the browser's
// push service. Endpoint is stored as its own column so a device's row can
// be deleted on opt-out and pruned when the push service reports it gone.
type PushSubscription struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_user_endpoint"`
	Endpoint  string    `json:"endpoint" gorm:"uniqueIndex:idx_user_endpoint"`
	P256dh    string    `json:"keys_p256dh" gorm:"column:p256dh"`
	Auth      string    `json:"keys_auth"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionKeys mirrors the keys object of the browser PushSubscription JSON
type SubscriptionKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// SubscribeRequest defines the request body for registering a device subscription
type SubscribeRequest struct {
	Endpoint string           `json:"endpoint" validate:"required,url"`
	Keys     SubscriptionKeys `json:"keys" validate:"required"`
}

// UnsubscribeRequest defines the request body for removing a device subscription
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}
