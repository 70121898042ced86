package database

import (
	"log"

	"compliance-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config returns the gorm settings every connection opens with.
// TranslateError is required: duplicate-tolerant writes (repeated tag
// assignment) depend on driver unique violations surfacing as
// gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Profile{},
		&model.Department{},
		&model.UserDepartment{},
		&model.ChecklistItem{},
		&model.Tag{},
		&model.ChecklistTag{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
