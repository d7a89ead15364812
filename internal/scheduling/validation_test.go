package scheduling

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

func TestValidateSlotInput(t *testing.T) {
	tests := []struct {
		name   string
		in     *types.SlotInput
		fields []string
	}{
		{"nil body", nil, nil},
		{"all missing", &types.SlotInput{}, []string{"date", "start_time", "end_time"}},
		{"bad date", &types.SlotInput{Date: "01-06-2024", StartTime: "09:00", EndTime: "09:30"}, []string{"date"}},
		{"bad time", &types.SlotInput{Date: "2024-06-01", StartTime: "9am", EndTime: "09:30"}, []string{"start_time"}},
		{"end before start", &types.SlotInput{Date: "2024-06-01", StartTime: "10:00", EndTime: "09:30"}, []string{"end_time"}},
		{"zero length", &types.SlotInput{Date: "2024-06-01", StartTime: "10:00", EndTime: "10:00:00"}, []string{"end_time"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateSlotInput(tt.in)
			require.Error(t, err)
			assert.Equal(t, types.ErrorTypeValidation, types.ErrorTypeOf(err))

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			for _, field := range tt.fields {
				assert.Contains(t, appErr.Details, field)
			}
		})
	}
}

func TestValidateSlotInput_Normalizes(t *testing.T) {
	out, err := validateSlotInput(&types.SlotInput{Date: " 2024-06-01 ", StartTime: "09:00:00", EndTime: "9:30"})
	require.NoError(t, err)
	assert.Equal(t, &types.SlotInput{Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30"}, out)
}

func TestValidateAdminFilters(t *testing.T) {
	out, err := validateAdminFilters(nil)
	require.NoError(t, err)
	assert.Equal(t, &types.AppointmentFilters{}, out)

	doctorID := "5b0f7c1e-3c52-4a8e-9d1a-2f4b6c8d0e11"
	out, err = validateAdminFilters(&types.AppointmentFilters{DoctorID: " " + doctorID + " ", Status: "approved", Date: "2024-06-01"})
	require.NoError(t, err)
	assert.Equal(t, doctorID, out.DoctorID)
	assert.Equal(t, types.StatusApproved, out.Status)
	assert.Equal(t, "2024-06-01", out.Date)

	// scoping fields never pass through from a client
	out, err = validateAdminFilters(&types.AppointmentFilters{PatientUserID: "u1", DoctorUserID: "u2"})
	require.NoError(t, err)
	assert.Empty(t, out.PatientUserID)
	assert.Empty(t, out.DoctorUserID)

	_, err = validateAdminFilters(&types.AppointmentFilters{DoctorID: "abc", Status: "DONE", Date: "tomorrow"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrorTypeValidation, appErr.Type)
	assert.Contains(t, appErr.Details, "doctor_id")
	assert.Contains(t, appErr.Details, "status")
	assert.Contains(t, appErr.Details, "date")
}
