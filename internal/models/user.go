package models

import "time"

type UserRole string

const (
	RoleBuyer  UserRole = "buyer"
	RoleSeller UserRole = "seller"
)

type User struct {
	ID            uint     `gorm:"primaryKey"`
	Name          string   `gorm:"size:100;not null"`
	Email         string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash  string   `gorm:"size:255;not null"`
	Phone         string   `gorm:"size:50"`
	Address       string   `gorm:"size:255"`
	Role          UserRole `gorm:"size:20;not null;default:buyer"`
	EmailVerified bool     `gorm:"not null;default:false"`
	Image         string   `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Businesses []Business `gorm:"foreignKey:OwnerID"`
}
