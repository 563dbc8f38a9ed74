package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Resources []SubscriptionResource `gorm:"foreignKey:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionResource maps a subscription to one watched resource id.
type SubscriptionResource struct {
	Endpoint   string `gorm:"primaryKey"`
	ResourceID string `gorm:"primaryKey;size:64;index"`
}
