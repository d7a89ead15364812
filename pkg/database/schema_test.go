package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/config"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
)

func setupMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(sqlDB, &config.DatabaseConfig{}, logger.Discard()), mock
}

func TestCreateSchema(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, table := range []string{"users", "doctors", "patients", "slots", "appointments"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + table).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for _, idx := range []string{"idx_users_email_lower", "idx_doctors_specialization", "idx_slots_doctor_date", "idx_appointments_patient"} {
		mock.ExpectExec(idx).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, db.CreateSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSchema_TableError(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(`CREATE EXTENSION`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

	err := db.CreateSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("DELETE FROM users WHERE id = $1", "u1")
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	err = db.WithTx(context.Background(), func(tx *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
