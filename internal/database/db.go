package database

import (
	"log"

	"rental-backend/internal/config"
	"rental-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	level := gormLogger.Warn
	if cfg.SQLDebug {
		level = gormLogger.Info
	}

	var err error
	DB, err = gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DatabaseDSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: NewGormLogger().LogMode(level),
	})
	if err != nil {
		log.Fatalf("could not connect to database: %v", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate error: %v", err)
	}

	log.Println("Database connection ready. Migration complete.")
}

// Migrate creates or updates every table the application uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Building{},
		&models.Unit{},
		&models.Tenant{},
		&models.ContractTemplate{},
		&models.Lease{},
		&models.Payment{},
		&models.ExpenseCategory{},
		&models.Expense{},
		&models.MaintenanceRequest{},
		&models.Notification{},
		&models.OTP{},
		&models.VoucherSequence{},
		&models.AuditLog{},
		&models.MonthlyReport{},
	)
}

// IsPostgres reports whether row level locks can be requested on db.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
