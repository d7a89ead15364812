package scheduling

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Catalog implements the CatalogService interface
type Catalog struct {
	repository interfaces.SchedulingRepository
	logger     *logger.Logger
	metrics    *monitoring.MetricsCollector
	guard      guard
}

// NewCatalog creates the doctor directory and slot catalog
func NewCatalog(repo interfaces.SchedulingRepository, log *logger.Logger, metrics *monitoring.MetricsCollector) *Catalog {
	return &Catalog{
		repository: repo,
		logger:     log,
		metrics:    metrics,
		guard:      guard{logger: log, metrics: metrics},
	}
}

// GetDoctors lists doctors, optionally filtered by a specialization substring
func (c *Catalog) GetDoctors(ctx context.Context, specialization string) ([]*types.Doctor, error) {
	ctx, span := schedulingTracer.Start(ctx, "catalog.GetDoctors")
	defer span.End()
	span.SetAttributes(attribute.String("hospital.specialization", specialization))

	doctors, err := c.repository.GetDoctors(ctx, strings.TrimSpace(specialization))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return doctors, nil
}

// GetDoctor returns one doctor's public profile
func (c *Catalog) GetDoctor(ctx context.Context, doctorID string) (*types.Doctor, error) {
	ctx, span := schedulingTracer.Start(ctx, "catalog.GetDoctor")
	defer span.End()
	span.SetAttributes(attribute.String("hospital.doctor_id", doctorID))

	doctor, err := c.repository.GetDoctorByID(ctx, doctorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return doctor, nil
}

// GetDoctorSlots lists every slot of a doctor, booked or not
func (c *Catalog) GetDoctorSlots(ctx context.Context, doctorID string) ([]*types.Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "catalog.GetDoctorSlots")
	defer span.End()
	span.SetAttributes(attribute.String("hospital.doctor_id", doctorID))

	if _, err := c.repository.GetDoctorByID(ctx, doctorID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	slots, err := c.repository.GetDoctorSlots(ctx, doctorID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return slots, nil
}

// CreateSlot adds a slot owned by the calling doctor
func (c *Catalog) CreateSlot(ctx context.Context, caller *types.Caller, in *types.SlotInput) (*types.Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "catalog.CreateSlot")
	defer span.End()

	if err := c.guard.admit(span, rbac.OpCreateSlot, caller, ""); err != nil {
		return nil, err
	}

	doctor, err := c.callerDoctor(ctx, span, caller)
	if err != nil {
		return nil, err
	}

	valid, err := validateSlotInput(in)
	if err != nil {
		return nil, err
	}

	slot := &types.Slot{
		ID:        uuid.New().String(),
		DoctorID:  doctor.ID,
		Date:      valid.Date,
		StartTime: valid.StartTime,
		EndTime:   valid.EndTime,
	}
	if err := c.repository.CreateSlot(ctx, slot); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.metrics.RecordSlotOperation("create")
	c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"slot_id":   slot.ID,
		"doctor_id": doctor.ID,
		"date":      slot.Date,
	}).Info("Slot created")
	return slot, nil
}

// GetMySlots lists the calling doctor's slots
func (c *Catalog) GetMySlots(ctx context.Context, caller *types.Caller) ([]*types.Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "catalog.GetMySlots")
	defer span.End()

	if err := c.guard.admit(span, rbac.OpListOwnSlots, caller, ""); err != nil {
		return nil, err
	}

	doctor, err := c.callerDoctor(ctx, span, caller)
	if err != nil {
		return nil, err
	}
	return c.repository.GetDoctorSlots(ctx, doctor.ID)
}

// GetSlot returns one of the calling doctor's slots
func (c *Catalog) GetSlot(ctx context.Context, caller *types.Caller, slotID string) (*types.Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "catalog.GetSlot")
	defer span.End()

	return c.ownedSlot(ctx, span, caller, slotID)
}

// UpdateSlot replaces the date and times of one of the calling doctor's slots
func (c *Catalog) UpdateSlot(ctx context.Context, caller *types.Caller, slotID string, in *types.SlotInput) (*types.Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "catalog.UpdateSlot")
	defer span.End()

	slot, err := c.ownedSlot(ctx, span, caller, slotID)
	if err != nil {
		return nil, err
	}

	valid, err := validateSlotInput(in)
	if err != nil {
		return nil, err
	}

	slot.Date = valid.Date
	slot.StartTime = valid.StartTime
	slot.EndTime = valid.EndTime
	if err := c.repository.UpdateSlot(ctx, slot); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.metrics.RecordSlotOperation("update")
	c.logger.WithContext(ctx).WithField("slot_id", slot.ID).Info("Slot updated")
	return slot, nil
}

// DeleteSlot removes one of the calling doctor's slots and its appointments
func (c *Catalog) DeleteSlot(ctx context.Context, caller *types.Caller, slotID string) error {
	ctx, span := schedulingTracer.Start(ctx, "catalog.DeleteSlot")
	defer span.End()

	slot, err := c.ownedSlot(ctx, span, caller, slotID)
	if err != nil {
		return err
	}

	if err := c.repository.DeleteSlot(ctx, slot.ID); err != nil {
		span.RecordError(err)
		return err
	}

	c.metrics.RecordSlotOperation("delete")
	c.logger.Audit(caller.UserID, string(rbac.OpManageSlot), slot.ID, true, map[string]interface{}{"action": "delete"})
	return nil
}

// ownedSlot loads a slot scoped to the calling doctor. Another doctor's slot
// is reported as not found.
func (c *Catalog) ownedSlot(ctx context.Context, span trace.Span, caller *types.Caller, slotID string) (*types.Slot, error) {
	span.SetAttributes(attribute.String("hospital.slot_id", slotID))

	if err := c.guard.admit(span, rbac.OpManageSlot, caller, slotID); err != nil {
		return nil, err
	}

	doctor, err := c.callerDoctor(ctx, span, caller)
	if err != nil {
		return nil, err
	}

	slot, err := c.repository.GetSlotByID(ctx, slotID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if slot.DoctorID != doctor.ID {
		c.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"slot_id":   slotID,
			"doctor_id": doctor.ID,
		}).Debug("Slot belongs to another doctor")
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Not found.")
	}
	return slot, nil
}

// callerDoctor resolves the doctor profile behind a DOCTOR identity
func (c *Catalog) callerDoctor(ctx context.Context, span trace.Span, caller *types.Caller) (*types.Doctor, error) {
	doctor, err := c.repository.GetDoctorByUserID(ctx, caller.UserID)
	if err != nil {
		span.RecordError(err)
		if types.IsNotFound(err) {
			return nil, types.NewForbiddenError(rbac.ErrorCodeNotAllowed, "No doctor profile for this account.")
		}
		return nil, fmt.Errorf("failed to resolve doctor profile: %w", err)
	}
	span.SetAttributes(attribute.String("hospital.doctor_id", doctor.ID))
	return doctor, nil
}
