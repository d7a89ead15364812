package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/repository"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// clinic is a small populated store with one caller per role
type clinic struct {
	store   *repository.MemoryStore
	metrics *monitoring.MetricsCollector
	catalog *Catalog
	service *Service

	patient      *types.Caller
	otherPatient *types.Caller
	doctor       *types.Caller
	otherDoctor  *types.Caller
	admin        *types.Caller
	orphanDoctor *types.Caller

	patientID      string
	otherPatientID string
	doctorID       string
	otherDoctorID  string
}

func newClinic(t *testing.T) *clinic {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	clock := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	c := &clinic{store: store, metrics: monitoring.NewMetricsCollector("scheduling-test")}
	log := logger.Discard()
	c.catalog = NewCatalog(store, log, c.metrics)
	c.service = NewService(store, log, c.metrics)

	addPatient := func(email, name string) (*types.Caller, string) {
		user := &types.User{Email: email, Role: types.RolePatient, IsActive: true}
		patient := &types.Patient{FullName: name, Age: 30}
		require.NoError(t, store.CreateWithPatient(ctx, user, patient))
		return &types.Caller{UserID: user.ID, Role: types.RolePatient}, patient.ID
	}
	addDoctor := func(email, name, specialization string) (*types.Caller, string) {
		user := &types.User{Email: email, Role: types.RoleDoctor, IsActive: true}
		doctor := &types.Doctor{Name: name, Specialization: specialization}
		require.NoError(t, store.CreateWithDoctor(ctx, user, doctor))
		return &types.Caller{UserID: user.ID, Role: types.RoleDoctor}, doctor.ID
	}

	c.patient, c.patientID = addPatient("asha@example.com", "Asha K")
	c.otherPatient, c.otherPatientID = addPatient("ravi@example.com", "Ravi M")
	c.doctor, c.doctorID = addDoctor("doctor1@hospital.com", "Dr. Rao", "Cardiology")
	c.otherDoctor, c.otherDoctorID = addDoctor("doctor2@hospital.com", "Dr. Iyer", "Dermatology")

	admin := &types.User{Email: "admin@hospital.com", Role: types.RoleAdmin, IsActive: true}
	require.NoError(t, store.Create(ctx, admin))
	c.admin = &types.Caller{UserID: admin.ID, Role: types.RoleAdmin}

	orphan := &types.User{Email: "orphan@hospital.com", Role: types.RoleDoctor, IsActive: true}
	require.NoError(t, store.Create(ctx, orphan))
	c.orphanDoctor = &types.Caller{UserID: orphan.ID, Role: types.RoleDoctor}

	return c
}

func (c *clinic) slot(t *testing.T, owner *types.Caller, date, start, end string) *types.Slot {
	t.Helper()
	slot, err := c.catalog.CreateSlot(context.Background(), owner, &types.SlotInput{Date: date, StartTime: start, EndTime: end})
	require.NoError(t, err)
	return slot
}

func (c *clinic) book(t *testing.T, patient *types.Caller, slotID string) *types.Appointment {
	t.Helper()
	apt, err := c.service.RequestAppointment(context.Background(), patient, &types.AppointmentRequest{SlotID: slotID})
	require.NoError(t, err)
	return apt
}
