package models

import "time"

type Business struct {
	ID       uint  `gorm:"primaryKey"`
	OwnerID  uint  `gorm:"index;not null"`
	Owner    *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Name     string `gorm:"size:100;not null"`
	Username string `gorm:"size:120;uniqueIndex;not null"` // URL slug, derived from Name

	BusinessType string `gorm:"size:50;not null"` // home_chef, restaurant, bakery, caterer
	Tagline      string `gorm:"size:150"`
	Bio          string `gorm:"size:1000"`
	Location     string `gorm:"size:255"`
	Phone        string `gorm:"size:50"`
	Logo         string `gorm:"size:255"`
	Cuisine      string `gorm:"type:text"` // JSON array of tags
	OpeningHours string `gorm:"type:text"` // JSON map day -> "HH:MM-HH:MM"

	Rating      float64 `gorm:"not null;default:0"`
	ReviewCount int     `gorm:"not null;default:0"`
	IsOpen      bool    `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time

	MenuItems []MenuItem `gorm:"constraint:OnDelete:CASCADE"`
}
