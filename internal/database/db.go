package database

import (
	"strings"

	"github.com/StamperDavid/rapid-crm-sub009/internal/model"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks postgres for postgres URLs/keyword DSNs and sqlite for anything else.
func Dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return postgres.Open(dsn)
	default:
		return sqlite.Open(dsn)
	}
}

// NewConnection opens the database and migrates the core models.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, eris.Wrap(err, "database: open")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate auto-migrates every persisted model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.AuditLog{},
		&model.Client{},
		&model.TaxRate{},
		&model.MileageRecord{},
		&model.FuelPurchase{},
	)
	if err != nil {
		zap.L().Error("auto-migrate failed", zap.Error(err))
		return eris.Wrap(err, "database: migrate")
	}
	return nil
}
