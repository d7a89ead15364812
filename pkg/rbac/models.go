package rbac

import (
	"time"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// AccessRequest represents a request for a guarded operation
type AccessRequest struct {
	UserID     string         `json:"user_id"`
	Role       types.UserRole `json:"role"`
	Operation  Operation      `json:"operation"`
	ResourceID string         `json:"resource_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// AccessDecision represents the result of an access control decision
type AccessDecision struct {
	Allowed bool          `json:"allowed"`
	Reason  string        `json:"reason"`
	Request AccessRequest `json:"request"`
}

// Fields flattens the decision for structured audit logging
func (d *AccessDecision) Fields() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     d.Request.UserID,
		"role":        string(d.Request.Role),
		"operation":   string(d.Request.Operation),
		"resource_id": d.Request.ResourceID,
		"allowed":     d.Allowed,
		"reason":      d.Reason,
	}
}

// Evaluate runs Authorize and records the outcome as a decision
func Evaluate(op Operation, caller *types.Caller, resourceID string, owns OwnerFunc) (*AccessDecision, error) {
	req := AccessRequest{
		Operation:  op,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
	}
	if caller != nil {
		req.UserID = caller.UserID
		req.Role = caller.Role
	}

	err := Authorize(op, caller, owns)
	decision := &AccessDecision{Allowed: err == nil, Request: req}
	switch {
	case err == nil:
		decision.Reason = "granted"
	case types.ErrorTypeOf(err) == types.ErrorTypeAuthentication:
		decision.Reason = "unauthenticated"
	default:
		decision.Reason = "role_or_ownership"
	}
	return decision, err
}
