package iam

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/config"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/repository"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) CreateWithPatient(ctx context.Context, user *types.User, patient *types.Patient) error {
	args := m.Called(ctx, user, patient)
	return args.Error(0)
}

func (m *MockUserRepository) CreateWithDoctor(ctx context.Context, user *types.User, doctor *types.Doctor) error {
	args := m.Called(ctx, user, doctor)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, id, email string) error {
	args := m.Called(ctx, id, email)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		SecretKey:      "test-secret-key",
		AccessTokenTTL: 3600,
		Issuer:         "hospital-appointment",
		Audience:       "hospital-users",
	}
}

type identityFixture struct {
	store   *repository.MemoryStore
	metrics *monitoring.MetricsCollector
	service *Service
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	metrics := monitoring.NewMetricsCollector("iam-test")
	service := New(store, store, NewPasswordManagerWithCost(bcrypt.MinCost), NewTokenManager(testJWTConfig()), logger.Discard(), metrics)
	return &identityFixture{store: store, metrics: metrics, service: service}
}

func validRegistration() *types.PatientRegistration {
	age := 34
	return &types.PatientRegistration{
		Email:    "asha@example.com",
		Password: "s3cure-pass",
		FullName: "Asha K",
		Age:      &age,
		Gender:   "F",
		Phone:    "5550100",
	}
}

func TestService_RegisterPatient(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	patient, err := f.service.RegisterPatient(ctx, validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, patient.ID)
	assert.Equal(t, "Asha K", patient.FullName)
	assert.Equal(t, "asha@example.com", patient.Email)

	user, err := f.store.GetByEmail(ctx, "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.RolePatient, user.Role)
	assert.NotEqual(t, "s3cure-pass", user.PasswordHash)

	// duplicate email, any case
	dup := validRegistration()
	dup.Email = "Asha@Example.com"
	_, err = f.service.RegisterPatient(ctx, dup)
	assert.Equal(t, types.ErrorTypeConflict, types.ErrorTypeOf(err))
}

func TestService_RegisterPatient_Validation(t *testing.T) {
	f := newIdentityFixture(t)
	negative := -1

	tests := []struct {
		name   string
		mutate func(*types.PatientRegistration)
		field  string
	}{
		{"missing email", func(r *types.PatientRegistration) { r.Email = "" }, "email"},
		{"bad email", func(r *types.PatientRegistration) { r.Email = "not-an-email" }, "email"},
		{"short password", func(r *types.PatientRegistration) { r.Password = "short" }, "password"},
		{"missing name", func(r *types.PatientRegistration) { r.FullName = " " }, "full_name"},
		{"missing age", func(r *types.PatientRegistration) { r.Age = nil }, "age"},
		{"negative age", func(r *types.PatientRegistration) { r.Age = &negative }, "age"},
		{"missing gender", func(r *types.PatientRegistration) { r.Gender = "" }, "gender"},
		{"missing phone", func(r *types.PatientRegistration) { r.Phone = "" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistration()
			tt.mutate(reg)

			_, err := f.service.RegisterPatient(context.Background(), reg)
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrorTypeValidation, appErr.Type)
			assert.Contains(t, appErr.Details, tt.field)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	patient, err := f.service.RegisterPatient(ctx, validRegistration())
	require.NoError(t, err)

	token, err := f.service.Authenticate(ctx, &types.Credentials{Email: "asha@example.com", Password: "s3cure-pass"}, types.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, int64(3600), token.ExpiresIn)
	assert.Equal(t, types.RolePatient, token.Role)
	assert.Equal(t, patient.ID, token.PatientID)
	assert.Empty(t, token.DoctorID)

	caller, err := f.service.Resolve(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, token.UserID, caller.UserID)
	assert.Equal(t, types.RolePatient, caller.Role)

	count, err := testutil.GatherAndCount(f.metrics.Registry(), "auth_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_Authenticate_InvalidCredentials(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	_, err := f.service.RegisterPatient(ctx, validRegistration())
	require.NoError(t, err)

	tests := []struct {
		name  string
		creds *types.Credentials
		role  types.UserRole
	}{
		{"wrong password", &types.Credentials{Email: "asha@example.com", Password: "wrong-pass"}, types.RolePatient},
		{"unknown email", &types.Credentials{Email: "nobody@example.com", Password: "s3cure-pass"}, types.RolePatient},
		{"wrong role", &types.Credentials{Email: "asha@example.com", Password: "s3cure-pass"}, types.RoleDoctor},
		{"admin endpoint", &types.Credentials{Email: "asha@example.com", Password: "s3cure-pass"}, types.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Authenticate(ctx, tt.creds, tt.role)
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrorTypeAuthentication, appErr.Type)
			assert.Equal(t, "Invalid credentials", appErr.Message)
		})
	}

	_, err = f.service.Authenticate(ctx, &types.Credentials{}, types.RolePatient)
	assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))
}

func TestService_Authenticate_DoctorProfile(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	user, err := f.service.NewUser("doctor1@hospital.com", "doctor-pass", types.RoleDoctor)
	require.NoError(t, err)
	doctor := &types.Doctor{Name: "Dr. Rao", Specialization: "Cardiology"}
	require.NoError(t, f.store.CreateWithDoctor(ctx, user, doctor))

	token, err := f.service.Authenticate(ctx, &types.Credentials{Email: "doctor1@hospital.com", Password: "doctor-pass"}, types.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, doctor.ID, token.DoctorID)

	// a DOCTOR identity with no profile cannot log in
	_, err = f.service.CreateIdentity(ctx, "orphan@hospital.com", "doctor-pass", types.RoleDoctor)
	require.NoError(t, err)
	_, err = f.service.Authenticate(ctx, &types.Credentials{Email: "orphan@hospital.com", Password: "doctor-pass"}, types.RoleDoctor)
	assert.Equal(t, types.ErrorTypeAuthentication, types.ErrorTypeOf(err))
}

func TestService_Resolve_DeletedUser(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	admin, err := f.service.CreateIdentity(ctx, "admin@hospital.com", "admin-pass", types.RoleAdmin)
	require.NoError(t, err)
	token, err := f.service.Authenticate(ctx, &types.Credentials{Email: "admin@hospital.com", Password: "admin-pass"}, types.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, f.store.Delete(ctx, admin.ID))
	_, err = f.service.Resolve(ctx, token.AccessToken)
	assert.Equal(t, types.ErrorTypeAuthentication, types.ErrorTypeOf(err))

	_, err = f.service.Resolve(ctx, "garbage")
	assert.Equal(t, types.ErrorTypeAuthentication, types.ErrorTypeOf(err))
}

func TestService_CreateIdentity_Validation(t *testing.T) {
	f := newIdentityFixture(t)

	_, err := f.service.CreateIdentity(context.Background(), "admin@hospital.com", "admin-pass", types.UserRole("ROOT"))
	assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))

	_, err = f.service.CreateIdentity(context.Background(), "admin", "x", types.RoleAdmin)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Details, "email")
	assert.Contains(t, appErr.Details, "password")
}

func TestService_Authenticate_RepositoryFailure(t *testing.T) {
	users := &MockUserRepository{}
	metrics := monitoring.NewMetricsCollector("iam-test")
	service := New(users, repository.NewMemoryStore(), NewPasswordManagerWithCost(bcrypt.MinCost), NewTokenManager(testJWTConfig()), logger.Discard(), metrics)

	users.On("GetByEmail", mock.Anything, "asha@example.com").Return(nil, errors.New("connection refused"))

	_, err := service.Authenticate(context.Background(), &types.Credentials{Email: "asha@example.com", Password: "s3cure-pass"}, types.RolePatient)
	require.Error(t, err)
	assert.Equal(t, types.ErrorTypeInternal, types.ErrorTypeOf(err))
	users.AssertExpectations(t)
}
