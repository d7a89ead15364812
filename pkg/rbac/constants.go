package rbac

import "github.com/sunnysuhas/Hospital-Appointment/pkg/types"

// Role definitions. Roles are matched exactly; there is no hierarchy.
const (
	RolePatient = types.RolePatient
	RoleDoctor  = types.RoleDoctor
	RoleAdmin   = types.RoleAdmin
)

// Operation names a guarded action of the booking service
type Operation string

// Directory and slot catalog operations
const (
	OpListDoctors   Operation = "doctors:list"
	OpViewDoctor    Operation = "doctors:view"
	OpListSlots     Operation = "slots:list"
	OpCreateSlot    Operation = "slots:create"
	OpListOwnSlots  Operation = "slots:list_own"
	OpManageSlot    Operation = "slots:manage"
	OpRegister      Operation = "patients:register"
	OpAuthenticate  Operation = "identity:authenticate"
	OpAdminDoctors  Operation = "admin:doctors"
	OpAdminPatients Operation = "admin:patients"
)

// Appointment lifecycle operations
const (
	OpRequestAppointment Operation = "appointments:request"
	OpListAppointments   Operation = "appointments:list"
	OpViewAppointment    Operation = "appointments:view"
	OpApproveAppointment Operation = "appointments:approve"
	OpRejectAppointment  Operation = "appointments:reject"
)

// Error codes for RBAC decisions
const (
	ErrorCodeNotAllowed      = "NOT_ALLOWED"
	ErrorCodeNotAuthenticate = "NOT_AUTHENTICATED"
	ErrorCodeUnknownOp       = "UNKNOWN_OPERATION"
)

// NotAllowedMessage is the generic denial message; it never says whether the
// target exists.
const NotAllowedMessage = "Not allowed."
