package config

import (
	"fmt"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDB opens the database configured through the environment. With no
// DB_DSN set it falls back to a local sqlite file, which is enough for
// development.
func InitDB() (*gorm.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		host := os.Getenv("DB_HOST")
		if host != "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				os.Getenv("DB_USER"),
				os.Getenv("DB_PASSWORD"),
				host,
				os.Getenv("DB_PORT"),
				os.Getenv("DB_NAME"),
			)
		}
	}

	// TranslateError lets the reconciler recognize unique-index losses as
	// gorm.ErrDuplicatedKey on both drivers.
	cfg := &gorm.Config{TranslateError: true}

	if dsn == "" {
		db, err := gorm.Open(sqlite.Open("restaurant_pay.db"), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return db, nil
	}

	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}
	return db, nil
}
