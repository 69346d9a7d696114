package models

import "time"

type Favorite struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_favorites_user_business,priority:1"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	BusinessID uint      `gorm:"not null;uniqueIndex:idx_favorites_user_business,priority:2"`
	Business   *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
}
