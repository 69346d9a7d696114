package audit

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"sokoni-backend/internal/models"
)

type LogOptions struct {
	BusinessID  *uint
	UserID      uint
	UserName    string // looked up when empty
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// Write appends an audit row on the given handle. Callers inside a mutation
// pass their transaction so the log commits or rolls back with the change.
func Write(db *gorm.DB, opts LogOptions) error {
	// jsonb columns want the JSON literal null, not an empty string.
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	if opts.UserName == "" {
		var user models.User
		if err := db.Select("name").First(&user, opts.UserID).Error; err == nil {
			opts.UserName = user.Name
		}
	}

	log := models.AuditLog{
		BusinessID:  opts.BusinessID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}

	return nil
}
