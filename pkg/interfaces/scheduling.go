package interfaces

import (
	"context"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// CatalogService defines the doctor directory and slot catalog operations
type CatalogService interface {
	// Public directory
	GetDoctors(ctx context.Context, specialization string) ([]*types.Doctor, error)
	GetDoctor(ctx context.Context, doctorID string) (*types.Doctor, error)
	GetDoctorSlots(ctx context.Context, doctorID string) ([]*types.Slot, error)

	// Slots owned by the calling doctor
	CreateSlot(ctx context.Context, caller *types.Caller, in *types.SlotInput) (*types.Slot, error)
	GetMySlots(ctx context.Context, caller *types.Caller) ([]*types.Slot, error)
	GetSlot(ctx context.Context, caller *types.Caller, slotID string) (*types.Slot, error)
	UpdateSlot(ctx context.Context, caller *types.Caller, slotID string, in *types.SlotInput) (*types.Slot, error)
	DeleteSlot(ctx context.Context, caller *types.Caller, slotID string) error
}

// AppointmentService defines the appointment lifecycle operations
type AppointmentService interface {
	RequestAppointment(ctx context.Context, caller *types.Caller, req *types.AppointmentRequest) (*types.Appointment, error)
	GetAppointment(ctx context.Context, caller *types.Caller, aptID string) (*types.Appointment, error)
	ApproveAppointment(ctx context.Context, caller *types.Caller, aptID string) (*types.Appointment, error)
	RejectAppointment(ctx context.Context, caller *types.Caller, aptID string) (*types.Appointment, error)
	ListAppointments(ctx context.Context, caller *types.Caller, filters *types.AppointmentFilters) ([]*types.Appointment, error)
}

// SchedulingRepository defines the interface for booking data persistence.
// Deleting a slot removes its appointments.
type SchedulingRepository interface {
	// Doctors
	GetDoctorByID(ctx context.Context, id string) (*types.Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID string) (*types.Doctor, error)
	GetDoctors(ctx context.Context, specialization string) ([]*types.Doctor, error)
	UpdateDoctor(ctx context.Context, id string, updates *types.DoctorUpdates) error

	// Patients
	GetPatientByUserID(ctx context.Context, userID string) (*types.Patient, error)
	GetPatients(ctx context.Context) ([]*types.Patient, error)

	// Slots
	CreateSlot(ctx context.Context, slot *types.Slot) error
	GetSlotByID(ctx context.Context, id string) (*types.Slot, error)
	GetDoctorSlots(ctx context.Context, doctorID string) ([]*types.Slot, error)
	UpdateSlot(ctx context.Context, slot *types.Slot) error
	DeleteSlot(ctx context.Context, id string) error

	// Appointments
	CreateAppointment(ctx context.Context, apt *types.Appointment) error
	GetAppointmentByID(ctx context.Context, id string) (*types.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status types.AppointmentStatus) error
	GetAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error)
}

// AdminService defines admin-only management of doctors and patients
type AdminService interface {
	CreateDoctor(ctx context.Context, caller *types.Caller, in *types.DoctorInput) (*types.Doctor, error)
	GetDoctors(ctx context.Context, caller *types.Caller) ([]*types.Doctor, error)
	GetDoctor(ctx context.Context, caller *types.Caller, doctorID string) (*types.Doctor, error)
	UpdateDoctor(ctx context.Context, caller *types.Caller, doctorID string, updates *types.DoctorUpdates) (*types.Doctor, error)
	DeleteDoctor(ctx context.Context, caller *types.Caller, doctorID string) error
	GetPatients(ctx context.Context, caller *types.Caller) ([]*types.Patient, error)
}
