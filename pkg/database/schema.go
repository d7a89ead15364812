package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the booking schema. Every statement is idempotent.
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return fmt.Errorf("failed to create extension: %w", err)
	}

	// Order matters: foreign keys reference earlier tables
	tables := []string{
		createUsersTable,
		createDoctorsTable,
		createPatientsTable,
		createSlotsTable,
		createAppointmentsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createUsersIndexes,
		createDoctorsIndexes,
		createSlotsIndexes,
		createAppointmentsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// SQL DDL statements for table creation
const (
	createUsersTable = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL CHECK (role IN ('PATIENT', 'DOCTOR', 'ADMIN')),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);`

	createDoctorsTable = `
		CREATE TABLE IF NOT EXISTS doctors (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			specialization VARCHAR(100) NOT NULL,
			phone VARCHAR(15) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			full_name VARCHAR(100) NOT NULL,
			age INTEGER NOT NULL CHECK (age >= 0),
			gender VARCHAR(10) NOT NULL,
			phone VARCHAR(15) NOT NULL,
			medical_history TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);`

	createSlotsTable = `
		CREATE TABLE IF NOT EXISTS slots (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			doctor_id UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			start_time TIME NOT NULL,
			end_time TIME NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);`

	createAppointmentsTable = `
		CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
			doctor_id UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
			slot_id UUID NOT NULL REFERENCES slots(id) ON DELETE CASCADE,
			status VARCHAR(10) NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);`
)

// Index creation statements
const (
	createUsersIndexes = `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email));
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`

	createDoctorsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_doctors_specialization ON doctors(LOWER(specialization));`

	createSlotsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_slots_doctor_date ON slots(doctor_id, date, start_time);`

	createAppointmentsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments(doctor_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_appointments_slot ON appointments(slot_id);
		CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status);`
)
