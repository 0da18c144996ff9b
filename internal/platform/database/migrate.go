package database

import (
	"fmt"

	"gorm.io/gorm"

	"offerdesk/internal/model"
)

// Models lists every persisted table.
func Models() []interface{} {
	return []interface{}{
		&model.Organization{},
		&model.User{},
		&model.Collection{},
		&model.Document{},
		&model.Chunk{},
		&model.ShareReference{},
		&model.Offer{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
