package types

import "time"

// UserRole represents the role claim carried by an identity
type UserRole string

const (
	RolePatient UserRole = "PATIENT"
	RoleDoctor  UserRole = "DOCTOR"
	RoleAdmin   UserRole = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// User represents a stored identity
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Caller is the authenticated principal of a request. A nil *Caller is an
// anonymous request.
type Caller struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
}

// UserClaims represents JWT token claims
type UserClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// Credentials represents login credentials for a given role
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PatientRegistration represents patient self-registration data
type PatientRegistration struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"full_name"`
	Age            *int   `json:"age"`
	Gender         string `json:"gender"`
	Phone          string `json:"phone"`
	MedicalHistory string `json:"medical_history"`
}

// AuthToken represents authentication token response
type AuthToken struct {
	AccessToken string    `json:"access"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Role        UserRole  `json:"role"`
	UserID      string    `json:"user_id"`
	PatientID   string    `json:"patient_id,omitempty"`
	DoctorID    string    `json:"doctor_id,omitempty"`
}
