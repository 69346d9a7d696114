package models

import "time"

type NotificationType string

const (
	NotificationOrderPlaced NotificationType = "order_placed"
	NotificationOrderStatus NotificationType = "order_status"
	NotificationNewMessage  NotificationType = "new_message"
	NotificationNewReview   NotificationType = "new_review"
)

type Notification struct {
	ID     uint  `gorm:"primaryKey"`
	UserID uint  `gorm:"index;not null"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	Type  NotificationType `gorm:"size:30;not null"`
	Title string           `gorm:"size:100;not null"`
	Body  string           `gorm:"size:255"`

	// Optional pointer back at the entity that caused the notification.
	EntityType string `gorm:"size:50"`
	EntityID   uint

	IsRead    bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}
