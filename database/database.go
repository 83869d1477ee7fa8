package database

import (
	"certhub/config"
	"certhub/models"
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb opens the configured database, runs migrations and stores the
// connection globally. It exits the process on failure.
func ConnectDb() {
	db, err := Open(config.AppConfig)
	if err != nil {
		log.Printf("Failed to connect to %s: %v", config.AppConfig.DBDriver, err)
		os.Exit(2)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}

	sqlDB.SetMaxOpenConns(10)   // Maximum open connections
	sqlDB.SetMaxIdleConns(5)    // Maximum idle connections
	sqlDB.SetConnMaxLifetime(0) // No timeout

	if err := Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	Database = DbInstance{Db: db}
}

// Open builds the dialector for cfg.DBDriver and opens a gorm connection.
// For sqlite, DBName is the database file path.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
		)
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBName)
	default:
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		dialector = postgres.Open(dsn)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.DBLogLevel)),
	})
}

// Migrate performs database migrations
func Migrate(db *gorm.DB) error {
	log.Println("Running Migrations...")

	err := db.AutoMigrate(
		&models.Admin{},
		&models.Syllabus{},
		&models.Certificate{},
	)
	if err != nil {
		return err
	}
	if err := backfillEmailLower(db); err != nil {
		return err
	}

	log.Println("Migrations completed successfully.")
	return nil
}

// backfillEmailLower fills email_lower for rows written before the column existed.
func backfillEmailLower(db *gorm.DB) error {
	var pending []models.Certificate
	filled := 0
	res := db.Select("id", "email").
		Where("email_lower IS NULL OR email_lower = ''").
		FindInBatches(&pending, 500, func(_ *gorm.DB, _ int) error {
			for _, c := range pending {
				err := db.Model(&models.Certificate{}).Where("id = ?", c.ID).
					UpdateColumn("email_lower", strings.ToLower(c.Email)).Error
				if err != nil {
					return err
				}
				filled++
			}
			return nil
		})
	if res.Error != nil {
		return res.Error
	}
	if filled > 0 {
		log.Printf("Backfilled email_lower on %d certificates.", filled)
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
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
