package database

import (
	"fmt"

	"github.com/deshiwallet/backend/internal/config"
	"github.com/deshiwallet/backend/internal/models"
	"github.com/deshiwallet/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig, admin config.AdminConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := SeedAdminUser(db, admin); err != nil {
		return nil, err
	}

	if err := SeedSystemConfig(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Card{},
		&models.Document{},
		&models.Notification{},
		&models.VerificationRequest{},
		&models.DeletionRequest{},
		&models.Feedback{},
		&models.CardDesign{},
		&models.SystemConfig{},
		&models.AuditLog{},
	)
}

func SeedAdminUser(db *gorm.DB, admin config.AdminConfig) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(admin.Password)
	if err != nil {
		return err
	}

	user := models.User{
		Email:        admin.Email,
		PasswordHash: hash,
		FullName:     "System Admin",
		Status:       models.VerificationVerified,
		Role:         models.UserRoleAdmin,
	}

	return db.Create(&user).Error
}

// SeedSystemConfig creates the singleton config row if none exists.
func SeedSystemConfig(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.SystemConfig{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	cfg := models.DefaultSystemConfig()
	return db.Create(&cfg).Error
}
