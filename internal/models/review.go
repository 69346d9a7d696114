package models

import "time"

type Review struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_reviews_user_business,priority:1"`
	User       *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	BusinessID uint      `gorm:"not null;uniqueIndex:idx_reviews_user_business,priority:2"`
	Business   *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE"`

	Rating  int    `gorm:"not null"` // 1..5
	Comment string `gorm:"size:1000"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Reply *ReviewReply `gorm:"constraint:OnDelete:CASCADE"`
}

type ReviewReply struct {
	ID       uint    `gorm:"primaryKey"`
	ReviewID uint    `gorm:"uniqueIndex;not null"`
	Review   *Review `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`

	Body      string `gorm:"size:1000;not null"`
	CreatedAt time.Time
}
