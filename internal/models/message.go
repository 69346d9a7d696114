package models

import "time"

type Message struct {
	ID         uint      `gorm:"primaryKey"`
	BusinessID uint      `gorm:"index;not null"`
	Business   *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE"`
	UserID     uint      `gorm:"index;not null"` // the buyer side of the conversation
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	FromBusiness bool   `gorm:"not null;default:false"`
	Body         string `gorm:"size:1000;not null"`
	IsRead       bool   `gorm:"not null;default:false"`

	CreatedAt time.Time
}
