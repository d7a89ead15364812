package iam

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// ProfileLookup resolves the profile attached to an identity
type ProfileLookup interface {
	GetPatientByUserID(ctx context.Context, userID string) (*types.Patient, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*types.Doctor, error)
}

// Service implements the IdentityProvider interface
type Service struct {
	users     interfaces.UserRepository
	profiles  ProfileLookup
	passwords interfaces.PasswordManager
	tokens    interfaces.TokenManager
	logger    *logger.Logger
	metrics   *monitoring.MetricsCollector
}

// New creates a new identity service
func New(
	users interfaces.UserRepository,
	profiles ProfileLookup,
	passwords interfaces.PasswordManager,
	tokens interfaces.TokenManager,
	log *logger.Logger,
	metrics *monitoring.MetricsCollector,
) *Service {
	return &Service{
		users:     users,
		profiles:  profiles,
		passwords: passwords,
		tokens:    tokens,
		logger:    log,
		metrics:   metrics,
	}
}

func invalidCredentials() error {
	return types.NewAuthenticationError(ErrCodeInvalidCredentials, "Invalid credentials")
}

// RegisterPatient creates a PATIENT identity together with its profile
func (s *Service) RegisterPatient(ctx context.Context, reg *types.PatientRegistration) (*types.Patient, error) {
	if err := validateRegistration(reg); err != nil {
		return nil, err
	}

	hash, err := s.passwords.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		Email:        strings.TrimSpace(reg.Email),
		PasswordHash: hash,
		Role:         types.RolePatient,
		IsActive:     true,
	}
	patient := &types.Patient{
		FullName:       strings.TrimSpace(reg.FullName),
		Age:            *reg.Age,
		Gender:         strings.TrimSpace(reg.Gender),
		Phone:          strings.TrimSpace(reg.Phone),
		MedicalHistory: reg.MedicalHistory,
	}

	if err := s.users.CreateWithPatient(ctx, user, patient); err != nil {
		return nil, err
	}

	s.logger.Audit(user.ID, "patients:register", patient.ID, true, nil)
	return patient, nil
}

// Authenticate checks credentials for the given role and issues an access
// token. Every mismatch yields the same error.
func (s *Service) Authenticate(ctx context.Context, creds *types.Credentials, role types.UserRole) (*types.AuthToken, error) {
	if creds == nil || strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		details := map[string]interface{}{}
		if creds == nil || strings.TrimSpace(creds.Email) == "" {
			details["email"] = "This field is required."
		}
		if creds == nil || creds.Password == "" {
			details["password"] = "This field is required."
		}
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Invalid login request.", details)
	}

	token, err := s.authenticate(ctx, creds, role)
	if err != nil {
		status := "failure"
		if types.ErrorTypeOf(err) == types.ErrorTypeInternal {
			status = "error"
		}
		s.metrics.RecordAuthAttempt(string(role), status)
		s.logger.Security("authentication_failed", "", map[string]interface{}{
			"email": creds.Email,
			"role":  string(role),
		})
		return nil, err
	}

	s.metrics.RecordAuthAttempt(string(role), "success")
	s.logger.Audit(token.UserID, "identity:authenticate", token.UserID, true, map[string]interface{}{"role": string(role)})
	return token, nil
}

func (s *Service) authenticate(ctx context.Context, creds *types.Credentials, role types.UserRole) (*types.AuthToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(creds.Email))
	if err != nil {
		if types.IsNotFound(err) {
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if user.Role != role || !user.IsActive {
		return nil, invalidCredentials()
	}

	ok, err := s.passwords.VerifyPassword(user.PasswordHash, creds.Password)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Stored password hash could not be verified")
		return nil, invalidCredentials()
	}
	if !ok {
		return nil, invalidCredentials()
	}

	access, issuedAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	token := &types.AuthToken{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		IssuedAt:    issuedAt,
		Role:        user.Role,
		UserID:      user.ID,
	}

	switch role {
	case types.RolePatient:
		patient, err := s.profiles.GetPatientByUserID(ctx, user.ID)
		if err != nil {
			return nil, profileError(err)
		}
		token.PatientID = patient.ID
	case types.RoleDoctor:
		doctor, err := s.profiles.GetDoctorByUserID(ctx, user.ID)
		if err != nil {
			return nil, profileError(err)
		}
		token.DoctorID = doctor.ID
	}
	return token, nil
}

// an identity without its profile cannot act in its role
func profileError(err error) error {
	if types.IsNotFound(err) {
		return invalidCredentials()
	}
	return err
}

// Resolve turns a bearer token into a caller. The identity must still exist
// and be active.
func (s *Service) Resolve(ctx context.Context, token string) (*types.Caller, error) {
	claims, err := s.tokens.ValidateJWT(token)
	if err != nil {
		return nil, err
	}
	if !claims.Role.Valid() {
		return nil, types.NewAuthenticationError(ErrCodeInvalidToken, "Token carries an unknown role.")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.NewAuthenticationError(ErrCodeInvalidToken, "User not found.")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, types.NewAuthenticationError(ErrCodeInvalidToken, "User is inactive.")
	}

	return &types.Caller{UserID: user.ID, Role: user.Role}, nil
}

// CreateIdentity stores a bare identity with a hashed password. Doctor
// identities are created together with their profile by the admin service.
func (s *Service) CreateIdentity(ctx context.Context, email, password string, role types.UserRole) (*types.User, error) {
	if !role.Valid() {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Unknown role.", map[string]interface{}{"role": string(role)})
	}
	details := map[string]interface{}{}
	ValidateEmail(email, details)
	ValidatePassword(password, details)
	if len(details) > 0 {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Invalid identity.", details)
	}

	user, err := s.NewUser(email, password, role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// NewUser builds an unsaved active identity with a hashed password
func (s *Service) NewUser(email, password string, role types.UserRole) (*types.User, error) {
	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &types.User{
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}, nil
}

func validateRegistration(reg *types.PatientRegistration) error {
	if reg == nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Request body is required.", nil)
	}

	details := map[string]interface{}{}
	ValidateEmail(reg.Email, details)
	ValidatePassword(reg.Password, details)

	required := map[string]string{
		"full_name": reg.FullName,
		"gender":    reg.Gender,
		"phone":     reg.Phone,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			details[field] = "This field is required."
		}
	}

	switch {
	case reg.Age == nil:
		details["age"] = "This field is required."
	case *reg.Age < 0:
		details["age"] = "Ensure this value is greater than or equal to 0."
	}

	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Invalid registration.", details)
	}
	return nil
}

// ValidateEmail reports a missing or malformed email into details
func ValidateEmail(email string, details map[string]interface{}) {
	email = strings.TrimSpace(email)
	if email == "" {
		details["email"] = "This field is required."
		return
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		details["email"] = "Enter a valid email address."
	}
}

// ValidatePassword reports a missing or short password into details
func ValidatePassword(password string, details map[string]interface{}) {
	switch {
	case password == "":
		details["password"] = "This field is required."
	case len(password) < MinPasswordLength:
		details["password"] = fmt.Sprintf("This password is too short. It must contain at least %d characters.", MinPasswordLength)
	}
}
