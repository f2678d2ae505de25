package config

import (
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/RamonSaldanha/gravadorjuridico/internal/models"
)

var DB *gorm.DB

func InitSQLite(dataDir string) error {
	db, err := gorm.Open(sqlite.Open(filepath.Join(dataDir, "gravador.db")), &gorm.Config{})
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(&models.Recording{}); err != nil {
		return err
	}

	DB = db
	return nil
}
