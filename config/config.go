package config

import (
	"fmt"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDB membuka koneksi database dari environment. DB_DRIVER=sqlite dipakai
// untuk development lokal; default MySQL.
func InitDB() (*gorm.DB, error) {
	if os.Getenv("DB_DRIVER") == "sqlite" {
		path := os.Getenv("DB_PATH")
		if path == "" {
			path = "qresto.db"
		}
		return gorm.Open(sqlite.Open(path), &gorm.Config{})
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		envOr("DB_HOST", "127.0.0.1"),
		envOr("DB_PORT", "3306"),
		os.Getenv("DB_NAME"),
	)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
