package database

import "warbler/internal/models"

// PersistentModels returns the schema-managed GORM models in dependency order.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Follow{},
		&models.Message{},
		&models.Like{},
		&models.Session{},
	}
}
