package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID     uint   `gorm:"primaryKey"`
	Number string `gorm:"size:20;uniqueIndex;not null"` // short human-facing id, e.g. ORD-3F2A9C1B

	UserID     uint      `gorm:"index;not null"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	BusinessID uint      `gorm:"index;not null"`
	Business   *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE"`

	Status              OrderStatus `gorm:"size:20;not null;default:pending"`
	TotalAmount         int64       `gorm:"not null"` // minor units
	DeliveryAddress     string      `gorm:"size:255"`
	SpecialInstructions string      `gorm:"size:500"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE"`
}

type OrderItem struct {
	ID         uint   `gorm:"primaryKey"`
	OrderID    uint   `gorm:"index;not null"`
	Order      *Order `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	MenuItemID uint   `gorm:"index;not null"`

	// Denormalized at order time so the line survives menu edits.
	Name      string `gorm:"size:100;not null"`
	UnitPrice int64  `gorm:"not null"` // minor units
	Quantity  int    `gorm:"not null"`
}
