package repository

import (
	"kkp/internal/entity"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Session{},
		&entity.ExternalAuth{},
		&entity.SecurityLog{},
	)
}
