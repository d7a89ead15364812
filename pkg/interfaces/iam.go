package interfaces

import (
	"context"
	"time"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// IdentityProvider authenticates callers and resolves bearer credentials
type IdentityProvider interface {
	RegisterPatient(ctx context.Context, reg *types.PatientRegistration) (*types.Patient, error)
	Authenticate(ctx context.Context, creds *types.Credentials, role types.UserRole) (*types.AuthToken, error)
	Resolve(ctx context.Context, token string) (*types.Caller, error)
	CreateIdentity(ctx context.Context, email, password string, role types.UserRole) (*types.User, error)
}

// UserRepository defines the interface for identity persistence. Deleting a
// user removes the profile attached to it and everything that profile owns.
type UserRepository interface {
	Create(ctx context.Context, user *types.User) error
	CreateWithPatient(ctx context.Context, user *types.User, patient *types.Patient) error
	CreateWithDoctor(ctx context.Context, user *types.User, doctor *types.Doctor) error
	GetByID(ctx context.Context, id string) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	UpdateEmail(ctx context.Context, id, email string) error
	Delete(ctx context.Context, id string) error
}

// PasswordManager defines the interface for password operations
type PasswordManager interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hashedPassword, password string) (bool, error)
}

// TokenManager issues and validates signed access tokens
type TokenManager interface {
	Issue(user *types.User) (string, time.Time, error)
	ValidateJWT(token string) (*types.UserClaims, error)
	TTL() time.Duration
}
