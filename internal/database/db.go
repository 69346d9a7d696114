package database

import (
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sokoni-backend/internal/models"
)

// Connect opens the Postgres connection and runs migrations. The returned
// handle is passed explicitly into every handler constructor; there is no
// package-level DB.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.Info("database connected, migrations complete")
	return db, nil
}

// Migrate creates/updates the schema. Shared with the test setup so tests
// run against the same table definitions.
func Migrate(db *gorm.DB) error {
	// Menu items briefly carried the raw name in normalized_name; older rows
	// need a backfill before the composite unique index can be created.
	if db.Migrator().HasTable(&models.MenuItem{}) && db.Migrator().HasColumn(&models.MenuItem{}, "normalized_name") {
		res := db.Exec("UPDATE menu_items SET normalized_name = lower(trim(name)) WHERE normalized_name IS NULL OR normalized_name = ''")
		if res.Error == nil && res.RowsAffected > 0 {
			logrus.Infof("backfilled normalized_name for %d menu items", res.RowsAffected)
		}
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Business{},
		&models.MenuItem{},
		&models.MenuItemImage{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
		&models.ReviewReply{},
		&models.Favorite{},
		&models.Notification{},
		&models.AuditLog{},
		&models.Message{},
	)
}
