package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// MemoryStore is an in-process implementation of both the scheduling and the
// user repositories. Foreign keys cascade the same way the Postgres schema
// does: deleting a user removes its profile, deleting a doctor removes its
// slots, deleting a slot removes its appointments.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[string]*types.User
	doctors      map[string]*types.Doctor
	patients     map[string]*types.Patient
	slots        map[string]*types.Slot
	appointments map[string]*storedAppointment

	seq int64
	now func() time.Time
}

type storedAppointment struct {
	apt types.Appointment
	seq int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*types.User),
		doctors:      make(map[string]*types.Doctor),
		patients:     make(map[string]*types.Patient),
		slots:        make(map[string]*types.Slot),
		appointments: make(map[string]*storedAppointment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source, for tests
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Users

// Create stores a bare identity
func (s *MemoryStore) Create(ctx context.Context, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUserLocked(user)
}

// CreateWithPatient stores an identity together with its patient profile
func (s *MemoryStore) CreateWithPatient(ctx context.Context, user *types.User, patient *types.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertUserLocked(user); err != nil {
		return err
	}
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	patient.UserID = user.ID
	patient.Email = user.Email
	patient.CreatedAt = user.CreatedAt

	stored := *patient
	s.patients[stored.ID] = &stored
	return nil
}

// CreateWithDoctor stores an identity together with its doctor profile
func (s *MemoryStore) CreateWithDoctor(ctx context.Context, user *types.User, doctor *types.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertUserLocked(user); err != nil {
		return err
	}
	if doctor.ID == "" {
		doctor.ID = uuid.New().String()
	}
	doctor.UserID = user.ID
	doctor.Email = user.Email
	doctor.CreatedAt = user.CreatedAt

	stored := *doctor
	s.doctors[stored.ID] = &stored
	return nil
}

func (s *MemoryStore) insertUserLocked(user *types.User) error {
	if s.emailTakenLocked(user.Email, "") {
		return types.NewConflictError(types.ErrCodeConflict, "A user with that email already exists.")
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}

	stored := *user
	s.users[stored.ID] = &stored
	return nil
}

func (s *MemoryStore) emailTakenLocked(email, exceptID string) bool {
	for _, u := range s.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

// GetByID retrieves a user by ID
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
	}
	out := *u
	return &out, nil
}

// GetByEmail retrieves a user by email, ignoring case
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
}

// UpdateEmail changes a user's email, keeping emails unique
func (s *MemoryStore) UpdateEmail(ctx context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateEmailLocked(id, email)
}

func (s *MemoryStore) updateEmailLocked(id, email string) error {
	u, ok := s.users[id]
	if !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
	}
	if s.emailTakenLocked(email, id) {
		return types.NewConflictError(types.ErrCodeConflict, "A user with that email already exists.")
	}
	u.Email = email
	return nil
}

// Delete removes a user and everything hanging off its profile
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
	}
	delete(s.users, id)

	for did, d := range s.doctors {
		if d.UserID == id {
			s.deleteDoctorLocked(did)
		}
	}
	for pid, p := range s.patients {
		if p.UserID == id {
			delete(s.patients, pid)
			for aid, a := range s.appointments {
				if a.apt.PatientID == pid {
					delete(s.appointments, aid)
				}
			}
		}
	}
	return nil
}

func (s *MemoryStore) deleteDoctorLocked(doctorID string) {
	delete(s.doctors, doctorID)
	for sid, slot := range s.slots {
		if slot.DoctorID == doctorID {
			s.deleteSlotLocked(sid)
		}
	}
	for aid, a := range s.appointments {
		if a.apt.DoctorID == doctorID {
			delete(s.appointments, aid)
		}
	}
}

func (s *MemoryStore) deleteSlotLocked(slotID string) {
	delete(s.slots, slotID)
	for aid, a := range s.appointments {
		if a.apt.SlotID == slotID {
			delete(s.appointments, aid)
		}
	}
}

// Doctors

func (s *MemoryStore) doctorViewLocked(d *types.Doctor) *types.Doctor {
	out := *d
	if u, ok := s.users[d.UserID]; ok {
		out.Email = u.Email
	}
	return &out
}

// GetDoctorByID retrieves a doctor by ID
func (s *MemoryStore) GetDoctorByID(ctx context.Context, id string) (*types.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Doctor not found.")
	}
	return s.doctorViewLocked(d), nil
}

// GetDoctorByUserID retrieves the doctor profile of an identity
func (s *MemoryStore) GetDoctorByUserID(ctx context.Context, userID string) (*types.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.doctors {
		if d.UserID == userID {
			return s.doctorViewLocked(d), nil
		}
	}
	return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Doctor not found.")
}

// GetDoctors lists doctors whose specialization contains the given text,
// ignoring case. An empty filter lists all doctors.
func (s *MemoryStore) GetDoctors(ctx context.Context, specialization string) ([]*types.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(specialization)
	doctors := make([]*types.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		if needle != "" && !strings.Contains(strings.ToLower(d.Specialization), needle) {
			continue
		}
		doctors = append(doctors, s.doctorViewLocked(d))
	}

	sort.Slice(doctors, func(i, j int) bool {
		if doctors[i].Name != doctors[j].Name {
			return doctors[i].Name < doctors[j].Name
		}
		return doctors[i].ID < doctors[j].ID
	})
	return doctors, nil
}

// UpdateDoctor applies partial updates to a doctor and its identity email
func (s *MemoryStore) UpdateDoctor(ctx context.Context, id string, updates *types.DoctorUpdates) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[id]
	if !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Doctor not found.")
	}
	if updates.Email != nil {
		if err := s.updateEmailLocked(d.UserID, *updates.Email); err != nil {
			return err
		}
	}
	if updates.Name != nil {
		d.Name = *updates.Name
	}
	if updates.Specialization != nil {
		d.Specialization = *updates.Specialization
	}
	if updates.Phone != nil {
		d.Phone = *updates.Phone
	}
	return nil
}

// Patients

func (s *MemoryStore) patientViewLocked(p *types.Patient) *types.Patient {
	out := *p
	if u, ok := s.users[p.UserID]; ok {
		out.Email = u.Email
	}
	return &out
}

// GetPatientByUserID retrieves the patient profile of an identity
func (s *MemoryStore) GetPatientByUserID(ctx context.Context, userID string) (*types.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.patients {
		if p.UserID == userID {
			return s.patientViewLocked(p), nil
		}
	}
	return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Patient not found.")
}

// GetPatients lists all patients, oldest registration first
func (s *MemoryStore) GetPatients(ctx context.Context) ([]*types.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patients := make([]*types.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		patients = append(patients, s.patientViewLocked(p))
	}
	sort.Slice(patients, func(i, j int) bool {
		if !patients[i].CreatedAt.Equal(patients[j].CreatedAt) {
			return patients[i].CreatedAt.Before(patients[j].CreatedAt)
		}
		return patients[i].ID < patients[j].ID
	})
	return patients, nil
}

// Slots

func (s *MemoryStore) slotViewLocked(slot *types.Slot) *types.Slot {
	out := *slot
	if d, ok := s.doctors[slot.DoctorID]; ok {
		out.Doctor = s.doctorViewLocked(d)
	}
	return &out
}

// CreateSlot stores a new slot for an existing doctor
func (s *MemoryStore) CreateSlot(ctx context.Context, slot *types.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doctors[slot.DoctorID]; !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Doctor not found.")
	}
	if slot.ID == "" {
		slot.ID = uuid.New().String()
	}
	slot.CreatedAt = s.now()

	stored := *slot
	stored.Doctor = nil
	s.slots[stored.ID] = &stored
	return nil
}

// GetSlotByID retrieves a slot with its doctor
func (s *MemoryStore) GetSlotByID(ctx context.Context, id string) (*types.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Slot not found.")
	}
	return s.slotViewLocked(slot), nil
}

// GetDoctorSlots lists a doctor's slots ordered by date then start time
func (s *MemoryStore) GetDoctorSlots(ctx context.Context, doctorID string) ([]*types.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]*types.Slot, 0)
	for _, slot := range s.slots {
		if slot.DoctorID == doctorID {
			out := *slot
			slots = append(slots, &out)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].CreatedAt.Before(slots[j].CreatedAt)
	})
	return slots, nil
}

// UpdateSlot replaces the date and times of an existing slot
func (s *MemoryStore) UpdateSlot(ctx context.Context, slot *types.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.slots[slot.ID]
	if !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Slot not found.")
	}
	stored.Date = slot.Date
	stored.StartTime = slot.StartTime
	stored.EndTime = slot.EndTime
	return nil
}

// DeleteSlot removes a slot and its appointments
func (s *MemoryStore) DeleteSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[id]; !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Slot not found.")
	}
	s.deleteSlotLocked(id)
	return nil
}

// Appointments

func (s *MemoryStore) appointmentViewLocked(a *storedAppointment) *types.Appointment {
	out := a.apt
	if p, ok := s.patients[out.PatientID]; ok {
		out.PatientName = p.FullName
	}
	if d, ok := s.doctors[out.DoctorID]; ok {
		out.Doctor = s.doctorViewLocked(d)
	}
	if slot, ok := s.slots[out.SlotID]; ok {
		view := *slot
		out.Slot = &view
	}
	return &out
}

// CreateAppointment stores a new appointment. Referenced rows must exist.
func (s *MemoryStore) CreateAppointment(ctx context.Context, apt *types.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[apt.PatientID]; !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Patient not found.")
	}
	if _, ok := s.doctors[apt.DoctorID]; !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Doctor not found.")
	}
	if _, ok := s.slots[apt.SlotID]; !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Slot not found.")
	}

	if apt.ID == "" {
		apt.ID = uuid.New().String()
	}
	now := s.now()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	s.seq++
	stored := &storedAppointment{apt: *apt, seq: s.seq}
	stored.apt.Doctor = nil
	stored.apt.Slot = nil
	stored.apt.PatientName = ""
	s.appointments[apt.ID] = stored
	return nil
}

// GetAppointmentByID retrieves an appointment with its doctor, slot and
// patient name
func (s *MemoryStore) GetAppointmentByID(ctx context.Context, id string) (*types.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found.")
	}
	return s.appointmentViewLocked(a), nil
}

// UpdateAppointmentStatus overwrites the status; the last write wins
func (s *MemoryStore) UpdateAppointmentStatus(ctx context.Context, id string, status types.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return types.NewNotFoundError(types.ErrCodeNotFound, "Appointment not found.")
	}
	a.apt.Status = status
	a.apt.UpdatedAt = s.now()
	return nil
}

// GetAppointments lists appointments matching every set filter, newest first
func (s *MemoryStore) GetAppointments(ctx context.Context, filters *types.AppointmentFilters) ([]*types.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filters == nil {
		filters = &types.AppointmentFilters{}
	}

	matched := make([]*storedAppointment, 0)
	for _, a := range s.appointments {
		if !s.matchesLocked(a, filters) {
			continue
		}
		matched = append(matched, a)
	}

	sort.Slice(matched, func(i, j int) bool {
		ci, cj := matched[i].apt.CreatedAt, matched[j].apt.CreatedAt
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return matched[i].seq > matched[j].seq
	})

	out := make([]*types.Appointment, 0, len(matched))
	for _, a := range matched {
		out = append(out, s.appointmentViewLocked(a))
	}
	return out, nil
}

func (s *MemoryStore) matchesLocked(a *storedAppointment, f *types.AppointmentFilters) bool {
	if f.PatientUserID != "" {
		p, ok := s.patients[a.apt.PatientID]
		if !ok || p.UserID != f.PatientUserID {
			return false
		}
	}
	if f.DoctorUserID != "" {
		d, ok := s.doctors[a.apt.DoctorID]
		if !ok || d.UserID != f.DoctorUserID {
			return false
		}
	}
	if f.DoctorID != "" && a.apt.DoctorID != f.DoctorID {
		return false
	}
	if f.Status != "" && a.apt.Status != f.Status {
		return false
	}
	if f.Date != "" {
		slot, ok := s.slots[a.apt.SlotID]
		if !ok || slot.Date != f.Date {
			return false
		}
	}
	return true
}

// Ping satisfies the health checker contract
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
