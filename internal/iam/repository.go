package iam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/database"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

const (
	pqUniqueViolation = "23505"
	pqInvalidTextRepr = "22P02"
)

var errEmailTaken = types.NewConflictError(types.ErrCodeConflict, "A user with that email already exists.")

// UserRepository implements identity persistence on Postgres
type UserRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, log *logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: log,
	}
}

const insertUser = `
		INSERT INTO users (id, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

func mapUserError(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return errEmailTaken
		case pqInvalidTextRepr:
			return types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func insertUserTx(ctx context.Context, tx *sql.Tx, user *types.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return tx.QueryRowContext(ctx, insertUser,
		user.ID,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsActive,
	).Scan(&user.CreatedAt)
}

// Create stores a bare identity
func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return insertUserTx(ctx, tx, user)
	})
	if err != nil {
		return mapUserError(err, "create user")
	}

	r.logger.WithFields(map[string]interface{}{"user_id": user.ID, "role": user.Role}).Info("User created")
	return nil
}

// CreateWithPatient stores an identity and its patient profile atomically
func (r *UserRepository) CreateWithPatient(ctx context.Context, user *types.User, patient *types.Patient) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertUserTx(ctx, tx, user); err != nil {
			return err
		}
		if patient.ID == "" {
			patient.ID = uuid.New().String()
		}
		patient.UserID = user.ID
		patient.Email = user.Email

		query := `
			INSERT INTO patients (id, user_id, full_name, age, gender, phone, medical_history)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at`
		return tx.QueryRowContext(ctx, query,
			patient.ID,
			patient.UserID,
			patient.FullName,
			patient.Age,
			patient.Gender,
			patient.Phone,
			patient.MedicalHistory,
		).Scan(&patient.CreatedAt)
	})
	if err != nil {
		return mapUserError(err, "create patient")
	}

	r.logger.WithFields(map[string]interface{}{"user_id": user.ID, "patient_id": patient.ID}).Info("Patient registered")
	return nil
}

// CreateWithDoctor stores an identity and its doctor profile atomically
func (r *UserRepository) CreateWithDoctor(ctx context.Context, user *types.User, doctor *types.Doctor) error {
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := insertUserTx(ctx, tx, user); err != nil {
			return err
		}
		if doctor.ID == "" {
			doctor.ID = uuid.New().String()
		}
		doctor.UserID = user.ID
		doctor.Email = user.Email

		query := `
			INSERT INTO doctors (id, user_id, name, specialization, phone)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`
		return tx.QueryRowContext(ctx, query,
			doctor.ID,
			doctor.UserID,
			doctor.Name,
			doctor.Specialization,
			doctor.Phone,
		).Scan(&doctor.CreatedAt)
	})
	if err != nil {
		return mapUserError(err, "create doctor")
	}

	r.logger.WithFields(map[string]interface{}{"user_id": user.ID, "doctor_id": doctor.ID}).Info("Doctor created")
	return nil
}

const userColumns = `id, email, password_hash, role, is_active, created_at`

func scanUser(row *sql.Row) (*types.User, error) {
	user := &types.User{}
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &user.IsActive, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Role = types.UserRole(role)
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapUserError(err, "get user")
	}
	return user, nil
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapUserError(err, "get user by email")
	}
	return user, nil
}

// UpdateEmail changes a user's email
func (r *UserRepository) UpdateEmail(ctx context.Context, id, email string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET email = $1 WHERE id = $2`, email, id)
	if err != nil {
		return mapUserError(err, "update email")
	}
	return expectUserRow(result)
}

// Delete removes a user. The schema cascades to its profile, slots and
// appointments.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapUserError(err, "delete user")
	}
	if err := expectUserRow(result); err != nil {
		return err
	}

	r.logger.WithField("user_id", id).Info("User deleted")
	return nil
}

func expectUserRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
	}
	return nil
}
