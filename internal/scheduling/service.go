package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Service implements the AppointmentService interface
type Service struct {
	repository interfaces.SchedulingRepository
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
	guard      guard
}

// NewService creates the appointment lifecycle engine
func NewService(repo interfaces.SchedulingRepository, log *logger.Logger, metrics *monitoring.MetricsCollector) *Service {
	return &Service{
		repository: repo,
		logger:     log,
		metrics:    metrics,
		guard:      guard{logger: log, metrics: metrics},
	}
}

// RequestAppointment books a slot for the calling patient. The doctor is
// always taken from the slot. A slot may carry any number of requests.
func (s *Service) RequestAppointment(ctx context.Context, caller *types.Caller, req *types.AppointmentRequest) (*types.Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.Request")
	defer span.End()

	if err := s.guard.admit(span, rbac.OpRequestAppointment, caller, ""); err != nil {
		return nil, err
	}

	if req == nil || strings.TrimSpace(req.SlotID) == "" {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Invalid appointment request.",
			map[string]interface{}{"slot_id": "This field is required."})
	}
	slotID := strings.TrimSpace(req.SlotID)
	span.SetAttributes(attribute.String("hospital.slot_id", slotID))

	patient, err := s.repository.GetPatientByUserID(ctx, caller.UserID)
	if err != nil {
		span.RecordError(err)
		if types.IsNotFound(err) {
			return nil, types.NewForbiddenError(rbac.ErrorCodeNotAllowed, "No patient profile for this account.")
		}
		return nil, fmt.Errorf("failed to resolve patient profile: %w", err)
	}

	slot, err := s.repository.GetSlotByID(ctx, slotID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if req.DoctorID != "" && req.DoctorID != slot.DoctorID {
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"slot_id":          slot.ID,
			"slot_doctor_id":   slot.DoctorID,
			"client_doctor_id": req.DoctorID,
		}).Debug("Ignoring client supplied doctor")
	}

	apt := &types.Appointment{
		ID:        uuid.New().String(),
		PatientID: patient.ID,
		DoctorID:  slot.DoctorID,
		SlotID:    slot.ID,
		Status:    types.StatusPending,
	}
	if err := s.repository.CreateAppointment(ctx, apt); err != nil {
		span.RecordError(err)
		return nil, err
	}

	created, err := s.repository.GetAppointmentByID(ctx, apt.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.RecordAppointmentTransition("request", string(created.Status))
	s.logger.Audit(caller.UserID, string(rbac.OpRequestAppointment), created.ID, true, map[string]interface{}{
		"slot_id":   slot.ID,
		"doctor_id": slot.DoctorID,
	})
	return created, nil
}

// GetAppointment returns an appointment to its patient, its doctor or an admin
func (s *Service) GetAppointment(ctx context.Context, caller *types.Caller, aptID string) (*types.Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.Get")
	defer span.End()
	span.SetAttributes(attribute.String("hospital.appointment_id", aptID))

	apt, err := s.loadGuarded(ctx, span, rbac.OpViewAppointment, caller, aptID)
	if err != nil {
		return nil, err
	}
	return apt, nil
}

// ApproveAppointment moves an appointment to APPROVED
func (s *Service) ApproveAppointment(ctx context.Context, caller *types.Caller, aptID string) (*types.Appointment, error) {
	return s.transition(ctx, caller, aptID, rbac.OpApproveAppointment, "approve", types.StatusApproved)
}

// RejectAppointment moves an appointment to REJECTED
func (s *Service) RejectAppointment(ctx context.Context, caller *types.Caller, aptID string) (*types.Appointment, error) {
	return s.transition(ctx, caller, aptID, rbac.OpRejectAppointment, "reject", types.StatusRejected)
}

// transition applies a status change from any current status, so a decision
// can be reversed and repeating one is a no-op.
func (s *Service) transition(ctx context.Context, caller *types.Caller, aptID string, op rbac.Operation, action string, status types.AppointmentStatus) (*types.Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.Transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("hospital.appointment_id", aptID),
		attribute.String("hospital.target_status", string(status)),
	)

	apt, err := s.loadGuarded(ctx, span, op, caller, aptID)
	if err != nil {
		return nil, err
	}

	previous := apt.Status
	if err := s.repository.UpdateAppointmentStatus(ctx, apt.ID, status); err != nil {
		span.RecordError(err)
		return nil, err
	}

	updated, err := s.repository.GetAppointmentByID(ctx, apt.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.RecordAppointmentTransition(action, string(updated.Status))
	s.logger.Audit(caller.UserID, string(op), updated.ID, true, map[string]interface{}{
		"from": string(previous),
		"to":   string(updated.Status),
	})
	return updated, nil
}

// ListAppointments returns the caller's view of appointments, newest first.
// Patients and doctors only ever see their own; filters apply to admins.
func (s *Service) ListAppointments(ctx context.Context, caller *types.Caller, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "appointments.List")
	defer span.End()

	if rbac.IsAuthenticated(caller) && !caller.Role.Valid() {
		return []*types.Appointment{}, nil
	}
	if err := s.guard.admit(span, rbac.OpListAppointments, caller, ""); err != nil {
		return nil, err
	}

	var scoped *types.AppointmentFilters
	switch caller.Role {
	case types.RolePatient:
		scoped = &types.AppointmentFilters{PatientUserID: caller.UserID}
	case types.RoleDoctor:
		scoped = &types.AppointmentFilters{DoctorUserID: caller.UserID}
	case types.RoleAdmin:
		valid, err := validateAdminFilters(filters)
		if err != nil {
			return nil, err
		}
		scoped = valid
	default:
		return []*types.Appointment{}, nil
	}

	apts, err := s.repository.GetAppointments(ctx, scoped)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("hospital.appointments", len(apts)))
	return apts, nil
}

// loadGuarded admits the caller's role, loads the appointment, then checks
// ownership. Admins bypass the ownership check.
func (s *Service) loadGuarded(ctx context.Context, span trace.Span, op rbac.Operation, caller *types.Caller, aptID string) (*types.Appointment, error) {
	if err := s.guard.admit(span, op, caller, aptID); err != nil {
		return nil, err
	}

	apt, err := s.repository.GetAppointmentByID(ctx, aptID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	owns, err := s.owns(ctx, span, caller, apt)
	if err != nil {
		return nil, err
	}
	if err := s.guard.authorize(span, op, caller, apt.ID, func(*types.Caller) bool { return owns }); err != nil {
		return nil, err
	}
	return apt, nil
}

// owns reports whether the caller's profile is a party to apt
func (s *Service) owns(ctx context.Context, span trace.Span, caller *types.Caller, apt *types.Appointment) (bool, error) {
	switch caller.Role {
	case types.RolePatient:
		patient, err := s.repository.GetPatientByUserID(ctx, caller.UserID)
		if types.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			span.RecordError(err)
			return false, fmt.Errorf("failed to resolve patient profile: %w", err)
		}
		return patient.ID == apt.PatientID, nil
	case types.RoleDoctor:
		doctor, err := s.repository.GetDoctorByUserID(ctx, caller.UserID)
		if types.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			span.RecordError(err)
			return false, fmt.Errorf("failed to resolve doctor profile: %w", err)
		}
		return doctor.ID == apt.DoctorID, nil
	}
	return false, nil
}
