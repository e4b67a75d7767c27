package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sjperalta/advance-portal/internal/config"
	"github.com/sjperalta/advance-portal/internal/models"
	pkgLogger "github.com/sjperalta/advance-portal/pkg/logger"
)

// Options tunes the connection pool and query logging
type Options struct {
	MaxOpenConns  int
	MaxIdleConns  int
	SlowThreshold time.Duration
	LogLevel      logger.LogLevel
}

// OptionsFromConfig derives pool options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}
	return Options{
		MaxOpenConns:  cfg.DBMaxOpenConns,
		MaxIdleConns:  cfg.DBMaxIdleConns,
		SlowThreshold: time.Duration(cfg.SlowQueryMillis) * time.Millisecond,
		LogLevel:      logLevel,
	}
}

// Dialector picks the GORM driver for the configured database.
// MySQL DSNs need parseTime=true so DATE columns scan into time.Time.
func Dialector(driver, databaseURL string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(databaseURL), nil
	case "mysql":
		return mysql.Open(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Connect establishes a connection to the configured database
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return Open(dialector, OptionsFromConfig(cfg))
}

// Open opens a GORM handle over dialector, configures the pool and pings.
func Open(dialector gorm.Dialector, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 pkgLogger.NewGormLogger(opts.LogLevel, opts.SlowThreshold),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every model
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
