package store

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fairyhunter13/inventory-pos-service/internal/config"
	"github.com/fairyhunter13/inventory-pos-service/internal/model"
)

// Open builds the Store selected by cfg.StoreDriver.
func Open(cfg config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return NewMemory(), nil
	case "mysql", "sqlite":
		g, err := OpenGorm(cfg.StoreDriver, cfg.DatabaseDSN, cfg.DBLogLevel)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenGorm connects with the named driver and migrates the schema.
func OpenGorm(driver, dsn, logLevel string) (*Gorm, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown gorm driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps in-memory databases shared and writes serial
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return NewGorm(db), nil
}

// Migrate creates or updates the products, suppliers, sales and
// notifications tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Supplier{}, &model.Product{}, &model.Sale{}, &model.Notification{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func gormLogLevel(s string) logger.LogLevel {
	switch s {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
