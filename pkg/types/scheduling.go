package types

import "time"

// Date and time layouts used for slots. Times are stored at minute precision.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusPending  AppointmentStatus = "PENDING"
	StatusApproved AppointmentStatus = "APPROVED"
	StatusRejected AppointmentStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Doctor represents a clinic doctor profile backed by an identity
type Doctor struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"-" db:"user_id"`
	Name           string    `json:"name" db:"name"`
	Specialization string    `json:"specialization" db:"specialization"`
	Phone          string    `json:"phone" db:"phone"`
	Email          string    `json:"email" db:"email"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Patient represents a self-registered patient profile
type Patient struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"-" db:"user_id"`
	FullName       string    `json:"full_name" db:"full_name"`
	Age            int       `json:"age" db:"age"`
	Gender         string    `json:"gender" db:"gender"`
	Phone          string    `json:"phone" db:"phone"`
	MedicalHistory string    `json:"medical_history,omitempty" db:"medical_history"`
	Email          string    `json:"email" db:"email"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Slot is a bookable time window owned by a doctor
type Slot struct {
	ID        string    `json:"id" db:"id"`
	DoctorID  string    `json:"doctor_id" db:"doctor_id"`
	Date      string    `json:"date" db:"date"`
	StartTime string    `json:"start_time" db:"start_time"`
	EndTime   string    `json:"end_time" db:"end_time"`
	Doctor    *Doctor   `json:"doctor,omitempty"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}

// Appointment is a patient's request to occupy a slot
type Appointment struct {
	ID          string            `json:"id" db:"id"`
	PatientID   string            `json:"patient_id" db:"patient_id"`
	DoctorID    string            `json:"doctor_id" db:"doctor_id"`
	SlotID      string            `json:"slot_id" db:"slot_id"`
	Status      AppointmentStatus `json:"status" db:"status"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
	PatientName string            `json:"patient"`
	Doctor      *Doctor           `json:"doctor,omitempty"`
	Slot        *Slot             `json:"slot,omitempty"`
}

// AppointmentFilters represents filters for appointment queries.
// PatientUserID and DoctorUserID scope by the owning identity.
type AppointmentFilters struct {
	PatientUserID string            `json:"-"`
	DoctorUserID  string            `json:"-"`
	DoctorID      string            `json:"doctor_id,omitempty"`
	Status        AppointmentStatus `json:"status,omitempty"`
	Date          string            `json:"date,omitempty"`
}

// SlotInput carries the caller-editable fields of a slot
type SlotInput struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AppointmentRequest is the body of a booking request. DoctorID is accepted
// for compatibility but never trusted.
type AppointmentRequest struct {
	SlotID   string `json:"slot_id"`
	DoctorID string `json:"doctor_id,omitempty"`
}

// DoctorInput is used by admins to create a doctor together with its identity
type DoctorInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Phone          string `json:"phone"`
}

// DoctorUpdates represents partial updates to a doctor
type DoctorUpdates struct {
	Name           *string `json:"name,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
}
