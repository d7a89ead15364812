package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunnysuhas/Hospital-Appointment/internal/iam"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// UserFactory builds unsaved identities with hashed passwords
type UserFactory interface {
	NewUser(email, password string, role types.UserRole) (*types.User, error)
}

// Service implements the AdminService interface
type Service struct {
	users      interfaces.UserRepository
	repository interfaces.SchedulingRepository
	factory    UserFactory
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
}

// NewService creates the admin management service
func NewService(
	users interfaces.UserRepository,
	repo interfaces.SchedulingRepository,
	factory UserFactory,
	log *logger.Logger,
	metrics *monitoring.MetricsCollector,
) *Service {
	return &Service{
		users:      users,
		repository: repo,
		factory:    factory,
		logger:     log,
		metrics:    metrics,
	}
}

func (s *Service) authorize(op rbac.Operation, caller *types.Caller, resourceID string) error {
	decision, err := rbac.Evaluate(op, caller, resourceID, nil)
	if err != nil {
		s.metrics.RecordAuthorizationDenial(string(op), string(decision.Request.Role))
		s.logger.Audit(decision.Request.UserID, string(op), resourceID, false, decision.Fields())
	}
	return err
}

// CreateDoctor creates a DOCTOR identity together with its profile
func (s *Service) CreateDoctor(ctx context.Context, caller *types.Caller, in *types.DoctorInput) (*types.Doctor, error) {
	if err := s.authorize(rbac.OpAdminDoctors, caller, ""); err != nil {
		return nil, err
	}
	if err := validateDoctorInput(in); err != nil {
		return nil, err
	}

	user, err := s.factory.NewUser(in.Email, in.Password, types.RoleDoctor)
	if err != nil {
		return nil, err
	}
	doctor := &types.Doctor{
		Name:           strings.TrimSpace(in.Name),
		Specialization: strings.TrimSpace(in.Specialization),
		Phone:          strings.TrimSpace(in.Phone),
	}
	if err := s.users.CreateWithDoctor(ctx, user, doctor); err != nil {
		return nil, err
	}

	s.logger.Audit(caller.UserID, "admin:doctors:create", doctor.ID, true, map[string]interface{}{
		"specialization": doctor.Specialization,
	})
	return doctor, nil
}

// GetDoctors lists every doctor
func (s *Service) GetDoctors(ctx context.Context, caller *types.Caller) ([]*types.Doctor, error) {
	if err := s.authorize(rbac.OpAdminDoctors, caller, ""); err != nil {
		return nil, err
	}
	return s.repository.GetDoctors(ctx, "")
}

// GetDoctor returns one doctor
func (s *Service) GetDoctor(ctx context.Context, caller *types.Caller, doctorID string) (*types.Doctor, error) {
	if err := s.authorize(rbac.OpAdminDoctors, caller, doctorID); err != nil {
		return nil, err
	}
	return s.repository.GetDoctorByID(ctx, doctorID)
}

// UpdateDoctor applies partial updates to a doctor and its identity email
func (s *Service) UpdateDoctor(ctx context.Context, caller *types.Caller, doctorID string, updates *types.DoctorUpdates) (*types.Doctor, error) {
	if err := s.authorize(rbac.OpAdminDoctors, caller, doctorID); err != nil {
		return nil, err
	}
	if err := validateDoctorUpdates(updates); err != nil {
		return nil, err
	}

	if err := s.repository.UpdateDoctor(ctx, doctorID, updates); err != nil {
		return nil, err
	}

	s.logger.Audit(caller.UserID, "admin:doctors:update", doctorID, true, nil)
	return s.repository.GetDoctorByID(ctx, doctorID)
}

// DeleteDoctor removes a doctor's identity. Its profile, slots and their
// appointments go with it.
func (s *Service) DeleteDoctor(ctx context.Context, caller *types.Caller, doctorID string) error {
	if err := s.authorize(rbac.OpAdminDoctors, caller, doctorID); err != nil {
		return err
	}

	doctor, err := s.repository.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, doctor.UserID); err != nil {
		return fmt.Errorf("failed to delete doctor identity: %w", err)
	}

	s.logger.Audit(caller.UserID, "admin:doctors:delete", doctorID, true, map[string]interface{}{
		"user_id": doctor.UserID,
	})
	return nil
}

// GetPatients lists every patient with its email
func (s *Service) GetPatients(ctx context.Context, caller *types.Caller) ([]*types.Patient, error) {
	if err := s.authorize(rbac.OpAdminPatients, caller, ""); err != nil {
		return nil, err
	}
	return s.repository.GetPatients(ctx)
}

func validateDoctorInput(in *types.DoctorInput) error {
	if in == nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Request body is required.", nil)
	}

	details := map[string]interface{}{}
	iam.ValidateEmail(in.Email, details)
	iam.ValidatePassword(in.Password, details)
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "This field is required."
	}
	if strings.TrimSpace(in.Specialization) == "" {
		details["specialization"] = "This field is required."
	}

	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Invalid doctor.", details)
	}
	return nil
}

func validateDoctorUpdates(u *types.DoctorUpdates) error {
	if u == nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Request body is required.", nil)
	}

	details := map[string]interface{}{}
	if u.Email != nil {
		trimmed := strings.TrimSpace(*u.Email)
		u.Email = &trimmed
		iam.ValidateEmail(trimmed, details)
	}
	blank := func(field string, v *string) {
		if v != nil && strings.TrimSpace(*v) == "" {
			details[field] = "This field may not be blank."
		}
	}
	blank("name", u.Name)
	blank("specialization", u.Specialization)

	if len(details) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Invalid doctor.", details)
	}
	return nil
}
