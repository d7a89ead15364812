//go:build integration

package scheduling_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sunnysuhas/Hospital-Appointment/internal/iam"
	"github.com/sunnysuhas/Hospital-Appointment/internal/scheduling"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/config"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/database"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

var testDB *database.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, db, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup test database: %v\n", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	db.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// startPostgres runs a throwaway postgres container and applies the schema
func startPostgres(ctx context.Context) (testcontainers.Container, *database.DB, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "clinic_test",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, nil, fmt.Errorf("failed to get postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return container, nil, fmt.Errorf("failed to get postgres port: %w", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:testpass@%s:%s/clinic_test?sslmode=disable", host, port.Port()),
		Host:         host,
		Name:         "clinic_test",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
	db, err := database.NewConnection(cfg, logger.Discard())
	if err != nil {
		return container, nil, err
	}
	if err := db.CreateSchema(ctx); err != nil {
		db.Close()
		return container, nil, err
	}
	return container, db, nil
}

func TestPostgres_AppointmentLifecycle(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()
	users := iam.NewUserRepository(testDB, log)
	repo := scheduling.NewRepository(testDB, log)

	suffix := time.Now().Format("150405.000000")
	patientUser := &types.User{Email: "pat-" + suffix + "@example.com", Role: types.RolePatient, IsActive: true}
	patient := &types.Patient{FullName: "Asha K", Age: 34, Gender: "F"}
	require.NoError(t, users.CreateWithPatient(ctx, patientUser, patient))

	doctorUser := &types.User{Email: "doc-" + suffix + "@hospital.com", Role: types.RoleDoctor, IsActive: true}
	doctor := &types.Doctor{Name: "Dr. Rao", Specialization: "Cardiology"}
	require.NoError(t, users.CreateWithDoctor(ctx, doctorUser, doctor))

	// emails are unique regardless of case
	dup := &types.User{Email: "PAT-" + suffix + "@EXAMPLE.com", Role: types.RolePatient, IsActive: true}
	err := users.CreateWithPatient(ctx, dup, &types.Patient{FullName: "Dup"})
	assert.Equal(t, types.ErrorTypeConflict, types.ErrorTypeOf(err))

	slot := &types.Slot{DoctorID: doctor.ID, Date: "2024-03-01", StartTime: "09:00", EndTime: "09:30"}
	require.NoError(t, repo.CreateSlot(ctx, slot))

	apt := &types.Appointment{PatientID: patient.ID, DoctorID: doctor.ID, SlotID: slot.ID, Status: types.StatusPending}
	require.NoError(t, repo.CreateAppointment(ctx, apt))
	require.NoError(t, repo.UpdateAppointmentStatus(ctx, apt.ID, types.StatusApproved))

	stored, err := repo.GetAppointmentByID(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, stored.Status)
	assert.Equal(t, "Asha K", stored.PatientName)
	assert.Equal(t, "09:00", stored.Slot.StartTime)

	mine, err := repo.GetAppointments(ctx, &types.AppointmentFilters{PatientUserID: patientUser.ID, Status: types.StatusApproved})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, apt.ID, mine[0].ID)

	// removing the doctor's identity takes slots and appointments with it
	require.NoError(t, users.Delete(ctx, doctorUser.ID))
	_, err = repo.GetSlotByID(ctx, slot.ID)
	assert.True(t, types.IsNotFound(err))
	_, err = repo.GetAppointmentByID(ctx, apt.ID)
	assert.True(t, types.IsNotFound(err))
}
