package database

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the Postgres connection pool and stores it in DB.
func InitDB(dsn string, maxOpenConns int) error {
	pgConfig := postgres.Config{
		DSN: dsn,
		// pgbouncer in transaction mode rejects named prepared statements
		PreferSimpleProtocol: true,
	}

	db, err := Open(postgres.New(pgConfig))
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 100
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	DB = db
	slog.Info("database connected")
	return nil
}

// Open wraps gorm.Open with the settings every dialector shares.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Error),
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}

func MigrateDatabase(db *gorm.DB, models ...interface{}) error {
	for _, model := range models {
		if !db.Migrator().HasTable(model) {
			if err := db.Migrator().CreateTable(model); err != nil {
				return err
			}
			slog.Info("created table", "model", fmt.Sprintf("%T", model))
		} else {
			if err := db.Migrator().AutoMigrate(model); err != nil {
				return err
			}
			slog.Info("updated table", "model", fmt.Sprintf("%T", model))
		}
	}
	return nil
}
