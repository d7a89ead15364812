package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/database"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidTextRepr     = "22P02"
)

// Repository implements the SchedulingRepository interface on Postgres
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new scheduling repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const doctorColumns = `d.id, d.user_id, d.name, d.specialization, d.phone, u.email, d.created_at`

const slotColumns = `s.id, s.doctor_id, to_char(s.date, 'YYYY-MM-DD'), to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI'), s.created_at`

const appointmentSelect = `
		SELECT a.id, a.patient_id, a.doctor_id, a.slot_id, a.status, a.created_at, a.updated_at,
			   p.full_name, d.name, d.specialization, d.phone,
			   to_char(s.date, 'YYYY-MM-DD'), to_char(s.start_time, 'HH24:MI'), to_char(s.end_time, 'HH24:MI')
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		JOIN slots s ON s.id = a.slot_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDoctor(row rowScanner) (*types.Doctor, error) {
	d := &types.Doctor{}
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.Phone, &d.Email, &d.CreatedAt)
	return d, err
}

func scanSlot(row rowScanner) (*types.Slot, error) {
	s := &types.Slot{}
	err := row.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &s.CreatedAt)
	return s, err
}

func scanAppointment(row rowScanner) (*types.Appointment, error) {
	apt := &types.Appointment{Doctor: &types.Doctor{}, Slot: &types.Slot{}}
	err := row.Scan(
		&apt.ID,
		&apt.PatientID,
		&apt.DoctorID,
		&apt.SlotID,
		&apt.Status,
		&apt.CreatedAt,
		&apt.UpdatedAt,
		&apt.PatientName,
		&apt.Doctor.Name,
		&apt.Doctor.Specialization,
		&apt.Doctor.Phone,
		&apt.Slot.Date,
		&apt.Slot.StartTime,
		&apt.Slot.EndTime,
	)
	if err != nil {
		return nil, err
	}
	apt.Doctor.ID = apt.DoctorID
	apt.Slot.ID = apt.SlotID
	apt.Slot.DoctorID = apt.DoctorID
	return apt, nil
}

// mapError turns driver errors into AppErrors where callers care about the
// difference, and wraps the rest.
func mapError(err error, action, notFound string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return types.NewNotFoundError(types.ErrCodeNotFound, notFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return types.NewConflictError(types.ErrCodeConflict, "A user with that email already exists.")
		case pqForeignKeyViolation, pqInvalidTextRepr:
			// a malformed uuid cannot name an existing row
			return types.NewNotFoundError(types.ErrCodeNotFound, notFound)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// likePattern escapes ILIKE wildcards so the input matches literally
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func (r *Repository) expectOneRow(result sql.Result, notFound string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, notFound)
	}
	return nil
}

// Doctors

// GetDoctorByID retrieves a doctor by ID
func (r *Repository) GetDoctorByID(ctx context.Context, id string) (*types.Doctor, error) {
	query := `SELECT ` + doctorColumns + `
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE d.id = $1`

	d, err := scanDoctor(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get doctor", "Doctor not found.")
	}
	return d, nil
}

// GetDoctorByUserID retrieves the doctor profile of an identity
func (r *Repository) GetDoctorByUserID(ctx context.Context, userID string) (*types.Doctor, error) {
	query := `SELECT ` + doctorColumns + `
		FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1`

	d, err := scanDoctor(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, mapError(err, "get doctor", "Doctor not found.")
	}
	return d, nil
}

// GetDoctors lists doctors, optionally filtered by a case-insensitive
// substring of the specialization
func (r *Repository) GetDoctors(ctx context.Context, specialization string) ([]*types.Doctor, error) {
	query := `SELECT ` + doctorColumns + `
		FROM doctors d JOIN users u ON u.id = d.user_id`
	args := []interface{}{}

	if specialization != "" {
		query += ` WHERE d.specialization ILIKE $1`
		args = append(args, likePattern(specialization))
	}
	query += ` ORDER BY d.name ASC, d.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to get doctors")
		return nil, fmt.Errorf("failed to get doctors: %w", err)
	}
	defer rows.Close()

	doctors := make([]*types.Doctor, 0)
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating doctors: %w", err)
	}
	return doctors, nil
}

// UpdateDoctor applies partial updates to a doctor. An email change is
// written to the backing identity in the same transaction.
func (r *Repository) UpdateDoctor(ctx context.Context, id string, updates *types.DoctorUpdates) error {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", argIndex))
		args = append(args, *updates.Name)
		argIndex++
	}
	if updates.Specialization != nil {
		setParts = append(setParts, fmt.Sprintf("specialization = $%d", argIndex))
		args = append(args, *updates.Specialization)
		argIndex++
	}
	if updates.Phone != nil {
		setParts = append(setParts, fmt.Sprintf("phone = $%d", argIndex))
		args = append(args, *updates.Phone)
		argIndex++
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var userID string
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM doctors WHERE id = $1 FOR UPDATE`, id).Scan(&userID)
		if err != nil {
			return mapError(err, "get doctor", "Doctor not found.")
		}

		if len(setParts) > 0 {
			query := fmt.Sprintf("UPDATE doctors SET %s WHERE id = $%d", strings.Join(setParts, ", "), argIndex)
			if _, err := tx.ExecContext(ctx, query, append(args, id)...); err != nil {
				return mapError(err, "update doctor", "Doctor not found.")
			}
		}

		if updates.Email != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE users SET email = $1 WHERE id = $2`, *updates.Email, userID); err != nil {
				return mapError(err, "update doctor email", "User not found.")
			}
		}
		return nil
	})
}

// Patients

// GetPatientByUserID retrieves the patient profile of an identity
func (r *Repository) GetPatientByUserID(ctx context.Context, userID string) (*types.Patient, error) {
	query := `
		SELECT p.id, p.user_id, p.full_name, p.age, p.gender, p.phone, p.medical_history, u.email, p.created_at
		FROM patients p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`

	p := &types.Patient{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Age, &p.Gender, &p.Phone, &p.MedicalHistory, &p.Email, &p.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, "get patient", "Patient not found.")
	}
	return p, nil
}

// GetPatients lists all patients with their email, oldest first
func (r *Repository) GetPatients(ctx context.Context) ([]*types.Patient, error) {
	query := `
		SELECT p.id, p.user_id, p.full_name, p.age, p.gender, p.phone, p.medical_history, u.email, p.created_at
		FROM patients p JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at ASC, p.id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.WithError(err).Error("Failed to get patients")
		return nil, fmt.Errorf("failed to get patients: %w", err)
	}
	defer rows.Close()

	patients := make([]*types.Patient, 0)
	for rows.Next() {
		p := &types.Patient{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.FullName, &p.Age, &p.Gender, &p.Phone, &p.MedicalHistory, &p.Email, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}
	return patients, nil
}

// Slots

// CreateSlot inserts a slot for an existing doctor
func (r *Repository) CreateSlot(ctx context.Context, slot *types.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}

	query := `
		INSERT INTO slots (id, doctor_id, date, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, slot.ID, slot.DoctorID, slot.Date, slot.StartTime, slot.EndTime).
		Scan(&slot.CreatedAt)
	if err != nil {
		r.logger.WithError(err).WithField("doctor_id", slot.DoctorID).Error("Failed to create slot")
		return mapError(err, "create slot", "Doctor not found.")
	}

	r.logger.WithFields(map[string]interface{}{
		"slot_id":   slot.ID,
		"doctor_id": slot.DoctorID,
	}).Debug("Created slot")
	return nil
}

// GetSlotByID retrieves a slot with its doctor
func (r *Repository) GetSlotByID(ctx context.Context, id string) (*types.Slot, error) {
	query := `SELECT ` + slotColumns + `, ` + doctorColumns + `
		FROM slots s
		JOIN doctors d ON d.id = s.doctor_id
		JOIN users u ON u.id = d.user_id
		WHERE s.id = $1`

	s := &types.Slot{}
	d := &types.Doctor{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &s.CreatedAt,
		&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.Phone, &d.Email, &d.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err, "get slot", "Slot not found.")
	}
	s.Doctor = d
	return s, nil
}

// GetDoctorSlots lists a doctor's slots ordered by date then start time
func (r *Repository) GetDoctorSlots(ctx context.Context, doctorID string) ([]*types.Slot, error) {
	query := `SELECT ` + slotColumns + `
		FROM slots s
		WHERE s.doctor_id = $1
		ORDER BY s.date ASC, s.start_time ASC, s.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, doctorID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to get doctor slots")
		return nil, fmt.Errorf("failed to get doctor slots: %w", err)
	}
	defer rows.Close()

	slots := make([]*types.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}
	return slots, nil
}

// UpdateSlot replaces the date and times of a slot
func (r *Repository) UpdateSlot(ctx context.Context, slot *types.Slot) error {
	query := `UPDATE slots SET date = $1, start_time = $2, end_time = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, slot.Date, slot.StartTime, slot.EndTime, slot.ID)
	if err != nil {
		r.logger.WithError(err).WithField("slot_id", slot.ID).Error("Failed to update slot")
		return fmt.Errorf("failed to update slot: %w", err)
	}
	return r.expectOneRow(result, "Slot not found.")
}

// DeleteSlot removes a slot; appointments go with it via ON DELETE CASCADE
func (r *Repository) DeleteSlot(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		r.logger.WithError(err).WithField("slot_id", id).Error("Failed to delete slot")
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return r.expectOneRow(result, "Slot not found.")
}

// Appointments

// CreateAppointment inserts a new appointment
func (r *Repository) CreateAppointment(ctx context.Context, apt *types.Appointment) error {
	if apt.ID == "" {
		apt.ID = uuid.New().String()
	}

	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, slot_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, apt.ID, apt.PatientID, apt.DoctorID, apt.SlotID, string(apt.Status)).
		Scan(&apt.CreatedAt, &apt.UpdatedAt)
	if err != nil {
		r.logger.WithError(err).WithField("slot_id", apt.SlotID).Error("Failed to create appointment")
		return mapError(err, "create appointment", "Slot not found.")
	}
	return nil
}

// GetAppointmentByID retrieves an appointment with its patient name, doctor
// and slot
func (r *Repository) GetAppointmentByID(ctx context.Context, id string) (*types.Appointment, error) {
	apt, err := scanAppointment(r.db.QueryRowContext(ctx, appointmentSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get appointment", "Appointment not found.")
	}
	return apt, nil
}

// UpdateAppointmentStatus overwrites the status of an appointment
func (r *Repository) UpdateAppointmentStatus(ctx context.Context, id string, status types.AppointmentStatus) error {
	query := `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		r.logger.WithError(err).WithField("appointment_id", id).Error("Failed to update appointment status")
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	return r.expectOneRow(result, "Appointment not found.")
}

// GetAppointments retrieves appointments matching every set filter, newest
// first
func (r *Repository) GetAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	if filters == nil {
		filters = &types.AppointmentFilters{}
	}

	query := appointmentSelect + ` WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filters.PatientUserID != "" {
		query += fmt.Sprintf(" AND p.user_id = $%d", argIndex)
		args = append(args, filters.PatientUserID)
		argIndex++
	}

	if filters.DoctorUserID != "" {
		query += fmt.Sprintf(" AND d.user_id = $%d", argIndex)
		args = append(args, filters.DoctorUserID)
		argIndex++
	}

	if filters.DoctorID != "" {
		query += fmt.Sprintf(" AND a.doctor_id = $%d", argIndex)
		args = append(args, filters.DoctorID)
		argIndex++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND a.status = $%d", argIndex)
		args = append(args, string(filters.Status))
		argIndex++
	}

	if filters.Date != "" {
		query += fmt.Sprintf(" AND s.date = $%d", argIndex)
		args = append(args, filters.Date)
	}

	query += " ORDER BY a.created_at DESC, a.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to get appointments")
		return nil, fmt.Errorf("failed to get appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]*types.Appointment, 0)
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan appointment")
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, apt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	return appointments, nil
}
