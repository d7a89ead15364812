package rbac

import (
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Rule is the allow-list for one operation. Roles are granted outright,
// OwnerRoles only when the owner predicate holds for the caller.
type Rule struct {
	Public     bool
	Roles      []types.UserRole
	OwnerRoles []types.UserRole
}

// OwnerFunc reports whether the caller owns the resource being acted on
type OwnerFunc func(caller *types.Caller) bool

// Policies maps each operation to its rule. ADMIN appears explicitly
// wherever it may act on doctor-owned resources.
var Policies = map[Operation]Rule{
	OpListDoctors:  {Public: true},
	OpViewDoctor:   {Public: true},
	OpListSlots:    {Public: true},
	OpRegister:     {Public: true},
	OpAuthenticate: {Public: true},

	OpCreateSlot:   {Roles: []types.UserRole{RoleDoctor}},
	OpListOwnSlots: {Roles: []types.UserRole{RoleDoctor}},
	OpManageSlot:   {OwnerRoles: []types.UserRole{RoleDoctor}},

	OpRequestAppointment: {Roles: []types.UserRole{RolePatient}},
	OpListAppointments:   {Roles: []types.UserRole{RolePatient, RoleDoctor, RoleAdmin}},
	OpViewAppointment: {
		Roles:      []types.UserRole{RoleAdmin},
		OwnerRoles: []types.UserRole{RolePatient, RoleDoctor},
	},
	OpApproveAppointment: {
		Roles:      []types.UserRole{RoleAdmin},
		OwnerRoles: []types.UserRole{RoleDoctor},
	},
	OpRejectAppointment: {
		Roles:      []types.UserRole{RoleAdmin},
		OwnerRoles: []types.UserRole{RoleDoctor},
	},

	OpAdminDoctors:  {Roles: []types.UserRole{RoleAdmin}},
	OpAdminPatients: {Roles: []types.UserRole{RoleAdmin}},
}

// IsAuthenticated reports whether the request carries a resolved identity
func IsAuthenticated(caller *types.Caller) bool {
	return caller != nil && caller.UserID != ""
}

// IsPatient requires an authenticated caller with exactly the PATIENT role
func IsPatient(caller *types.Caller) bool {
	return IsAuthenticated(caller) && caller.Role == RolePatient
}

// IsDoctor requires an authenticated caller with exactly the DOCTOR role
func IsDoctor(caller *types.Caller) bool {
	return IsAuthenticated(caller) && caller.Role == RoleDoctor
}

// IsAdmin requires an authenticated caller with exactly the ADMIN role
func IsAdmin(caller *types.Caller) bool {
	return IsAuthenticated(caller) && caller.Role == RoleAdmin
}

// Authorize checks the caller against the rule for op. owns may be nil for
// operations without owner roles.
func Authorize(op Operation, caller *types.Caller, owns OwnerFunc) error {
	rule, ok := Policies[op]
	if !ok {
		return types.NewForbiddenError(ErrorCodeUnknownOp, NotAllowedMessage)
	}
	if rule.Public {
		return nil
	}
	if !IsAuthenticated(caller) {
		return types.NewAuthenticationError(ErrorCodeNotAuthenticate, "Authentication credentials were not provided.")
	}
	if hasRole(rule.Roles, caller.Role) {
		return nil
	}
	if hasRole(rule.OwnerRoles, caller.Role) && owns != nil && owns(caller) {
		return nil
	}
	return types.NewForbiddenError(ErrorCodeNotAllowed, NotAllowedMessage)
}

// Admit is the role-level half of Authorize: it passes any caller whose role
// could be allowed, with or without ownership. Callers check ownership once
// the resource is loaded.
func Admit(op Operation, caller *types.Caller) error {
	return Authorize(op, caller, func(*types.Caller) bool { return true })
}

func hasRole(roles []types.UserRole, role types.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
