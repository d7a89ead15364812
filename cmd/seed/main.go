package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sunnysuhas/Hospital-Appointment/internal/admin"
	"github.com/sunnysuhas/Hospital-Appointment/internal/iam"
	"github.com/sunnysuhas/Hospital-Appointment/internal/scheduling"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/config"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/database"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
)

const generatedPasswordLength = 16

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("Seeding requires the postgres driver, got %q", cfg.Database.Driver)
	}

	logger := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.CreateSchema(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to create schema")
	}

	passwords := iam.NewPasswordManager()
	adminPassword, adminGenerated := passwordOrGenerate(passwords, cfg.Seed.AdminPassword)
	doctorPassword, doctorGenerated := passwordOrGenerate(passwords, cfg.Seed.DoctorPassword)

	metrics := monitoring.NewMetricsCollector("seed")
	users := iam.NewUserRepository(db, logger)
	booking := scheduling.NewRepository(db, logger)
	identity := iam.New(users, booking, passwords, iam.NewTokenManager(&cfg.JWT), logger, metrics)
	service := admin.NewService(users, booking, identity, logger, metrics)

	result, err := service.Seed(ctx, cfg.Seed.AdminEmail, adminPassword, doctorPassword)
	if err != nil {
		logger.WithError(err).Fatal("Seeding failed")
	}

	logger.WithFields(map[string]interface{}{
		"admin_created":   result.AdminCreated,
		"doctors_created": result.DoctorsCreated,
		"doctors_skipped": result.DoctorsSkipped,
	}).Info("Setup complete")

	// generated credentials are shown once, only for identities created now
	if result.AdminCreated && adminGenerated {
		fmt.Printf("Admin login: %s / %s\n", cfg.Seed.AdminEmail, adminPassword)
	}
	if result.DoctorsCreated > 0 && doctorGenerated {
		fmt.Printf("Doctor password for new doctor accounts: %s\n", doctorPassword)
	}
}

func passwordOrGenerate(passwords *iam.PasswordManager, configured string) (string, bool) {
	if configured != "" {
		return configured, false
	}
	generated, err := passwords.GenerateRandomPassword(generatedPasswordLength)
	if err != nil {
		log.Fatalf("Failed to generate password: %v", err)
	}
	return generated, true
}
