package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"okul-backend/internal/config"
	"okul-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open veritabanı bağlantısını kurar ve şemayı migrate eder.
// DATABASE_URL tanımlıysa Postgres, değilse gömülü SQLite kullanılır.
// Aynı GORM handle'ı her iki backend için de aynı şekilde çalışır;
// iş kuralları backend seçiminden habersizdir.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	if cfg.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); mkErr != nil {
			return nil, fmt.Errorf("veri klasörü oluşturulamadı: %w", mkErr)
		}
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
	return db, nil
}

// Migrate şemayı günceller ve varsayılan kategorileri ekler.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Transaction{},
		&models.Student{},
		&models.StudentFee{},
		&models.Payment{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	seedDefaultCategories(db)
	return nil
}

// Varsayılan gelir/gider kategorileri (yoksa eklenir)
func seedDefaultCategories(db *gorm.DB) {
	defaults := []models.Category{
		{Name: "Aidat Geliri", Type: models.CategoryTypeIncome},
		{Name: "Kantin Satışları", Type: models.CategoryTypeIncome},
		{Name: "Bağışlar", Type: models.CategoryTypeIncome},
		{Name: "Faturalar", Type: models.CategoryTypeExpense},
		{Name: "Kırtasiye", Type: models.CategoryTypeExpense},
		{Name: "Market Alışverişi", Type: models.CategoryTypeExpense},
	}

	for _, cat := range defaults {
		var count int64
		db.Model(&models.Category{}).Where("name = ?", cat.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&cat).Error; err != nil {
				log.Printf("Varsayılan kategori eklenemedi (%s): %v", cat.Name, err)
			}
		}
	}
}
