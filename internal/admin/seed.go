package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Specializations are the clinic departments seeded with one doctor each
var Specializations = []string{
	"Cardiology",
	"Neurology",
	"Orthopedics",
	"Pediatrics",
	"Dermatology",
	"Oncology",
	"Psychiatry",
	"Gynecology",
	"Urology",
	"Ophthalmology",
	"ENT (Ear, Nose, Throat)",
	"General Medicine",
	"Emergency Medicine",
	"Radiology",
	"Anesthesiology",
	"Internal Medicine",
	"Surgery",
	"Gastroenterology",
	"Pulmonology",
	"Endocrinology",
}

// SeedResult summarizes one seeding run
type SeedResult struct {
	AdminCreated   bool
	DoctorsCreated int
	DoctorsSkipped int
}

// Seed creates the admin identity and one sample doctor per specialization.
// Existing emails are left untouched, so it is safe to run repeatedly. It
// runs outside any caller's authority and is meant for bootstrap only.
func (s *Service) Seed(ctx context.Context, adminEmail, adminPassword, doctorPassword string) (*SeedResult, error) {
	result := &SeedResult{}

	created, err := s.ensureUser(ctx, adminEmail, func() error {
		user, err := s.factory.NewUser(adminEmail, adminPassword, types.RoleAdmin)
		if err != nil {
			return err
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}
	result.AdminCreated = created
	s.logger.WithFields(map[string]interface{}{"email": adminEmail, "created": created}).Info("Admin identity seeded")

	for i, specialization := range Specializations {
		n := i + 1
		email := fmt.Sprintf("doctor%d@hospital.com", n)
		doctor := &types.Doctor{
			Name:           fmt.Sprintf("Dr. %s Specialist %d", strings.Fields(specialization)[0], n),
			Specialization: specialization,
			Phone:          fmt.Sprintf("+123456789%02d", n),
		}

		created, err := s.ensureUser(ctx, email, func() error {
			user, err := s.factory.NewUser(email, doctorPassword, types.RoleDoctor)
			if err != nil {
				return err
			}
			return s.users.CreateWithDoctor(ctx, user, doctor)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to seed %s: %w", email, err)
		}

		if created {
			result.DoctorsCreated++
			s.logger.WithFields(map[string]interface{}{"email": email, "specialization": specialization}).Info("Doctor seeded")
		} else {
			result.DoctorsSkipped++
			s.logger.WithField("email", email).Debug("Doctor already exists")
		}
	}

	return result, nil
}

// ensureUser runs create unless an identity with email already exists
func (s *Service) ensureUser(ctx context.Context, email string, create func() error) (bool, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return false, nil
	case !types.IsNotFound(err):
		return false, err
	}

	if err := create(); err != nil {
		return false, err
	}
	return true, nil
}
