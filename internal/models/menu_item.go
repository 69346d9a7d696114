package models

import "time"

type MenuItem struct {
	ID         uint      `gorm:"primaryKey"`
	BusinessID uint      `gorm:"not null;uniqueIndex:idx_menu_items_business_category_name,priority:1"`
	Business   *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE"`

	Name string `gorm:"size:100;not null"`
	// Lowercased, whitespace-collapsed copy of Name. The composite unique
	// index on (business_id, category, normalized_name) is the single
	// enforcement point for duplicate detection.
	NormalizedName string `gorm:"size:100;not null;uniqueIndex:idx_menu_items_business_category_name,priority:3"`
	Category       string `gorm:"size:50;not null;uniqueIndex:idx_menu_items_business_category_name,priority:2"`
	Subcategory    string `gorm:"size:50"`
	Description    string `gorm:"size:1000"`

	Price           int64  `gorm:"not null"` // minor units
	Ingredients     string `gorm:"type:text"` // JSON array
	DietaryInfo     string `gorm:"type:text"` // JSON array of enum tags
	PreparationTime int    `gorm:"not null;default:0"` // minutes
	IsAvailable     bool   `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Images []MenuItemImage `gorm:"constraint:OnDelete:CASCADE"`
}

type MenuItemImage struct {
	ID         uint      `gorm:"primaryKey"`
	MenuItemID uint      `gorm:"index;not null"`
	MenuItem   *MenuItem `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE"`

	URL       string `gorm:"size:255;not null"`
	AltText   string `gorm:"size:255"`
	IsPrimary bool   `gorm:"not null;default:false"` // exactly one per item while images exist
	SortOrder int    `gorm:"not null;default:0"`

	CreatedAt time.Time
}
