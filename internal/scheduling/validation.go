package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// accepted wall-clock layouts; values are stored as HH:MM
var timeLayouts = []string{types.TimeLayout, "15:04:05"}

func parseClock(value string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validateSlotInput checks a slot body and returns it normalized
func validateSlotInput(in *types.SlotInput) (*types.SlotInput, error) {
	if in == nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Request body is required.", nil)
	}

	details := map[string]interface{}{}
	out := &types.SlotInput{}

	date := strings.TrimSpace(in.Date)
	if date == "" {
		details["date"] = "This field is required."
	} else if d, err := time.Parse(types.DateLayout, date); err != nil {
		details["date"] = "Date has wrong format. Use YYYY-MM-DD."
	} else {
		out.Date = d.Format(types.DateLayout)
	}

	start, startOK := parseClock(in.StartTime)
	end, endOK := parseClock(in.EndTime)
	if in.StartTime == "" {
		details["start_time"] = "This field is required."
	} else if !startOK {
		details["start_time"] = "Time has wrong format. Use hh:mm."
	}
	if in.EndTime == "" {
		details["end_time"] = "This field is required."
	} else if !endOK {
		details["end_time"] = "Time has wrong format. Use hh:mm."
	}

	if startOK && endOK {
		out.StartTime = start.Format(types.TimeLayout)
		out.EndTime = end.Format(types.TimeLayout)
		if out.StartTime >= out.EndTime {
			details["end_time"] = "End time must be after start time."
		}
	}

	if len(details) > 0 {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Invalid slot.", details)
	}
	return out, nil
}

// validateAdminFilters checks the optional admin appointment filters
func validateAdminFilters(f *types.AppointmentFilters) (*types.AppointmentFilters, error) {
	out := &types.AppointmentFilters{}
	if f == nil {
		return out, nil
	}

	details := map[string]interface{}{}
	if doctorID := strings.TrimSpace(f.DoctorID); doctorID != "" {
		if _, err := uuid.Parse(doctorID); err != nil {
			details["doctor_id"] = "Must be a valid UUID."
		} else {
			out.DoctorID = doctorID
		}
	}

	if f.Status != "" {
		status := types.AppointmentStatus(strings.ToUpper(string(f.Status)))
		if !status.Valid() {
			details["status"] = "Must be one of PENDING, APPROVED, REJECTED."
		}
		out.Status = status
	}

	if f.Date != "" {
		d, err := time.Parse(types.DateLayout, strings.TrimSpace(f.Date))
		if err != nil {
			details["date"] = "Date has wrong format. Use YYYY-MM-DD."
		} else {
			out.Date = d.Format(types.DateLayout)
		}
	}

	if len(details) > 0 {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Invalid filters.", details)
	}
	return out, nil
}
