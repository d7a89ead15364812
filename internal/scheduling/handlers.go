package scheduling

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/api"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Handler exposes the catalog and the appointment engine over HTTP
type Handler struct {
	catalog      interfaces.CatalogService
	appointments interfaces.AppointmentService
	logger       *logger.Logger
}

// NewHandler creates the scheduling HTTP handler
func NewHandler(catalog interfaces.CatalogService, appointments interfaces.AppointmentService, log *logger.Logger) *Handler {
	return &Handler{catalog: catalog, appointments: appointments, logger: log}
}

// RegisterRoutes mounts the scheduling routes on an /api subrouter
func (h *Handler) RegisterRoutes(api *mux.Router) {
	// Public doctor directory
	api.HandleFunc("/doctors", h.listDoctorsHandler).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}", h.getDoctorHandler).Methods(http.MethodGet)
	api.HandleFunc("/doctors/{id}/slots", h.listDoctorSlotsHandler).Methods(http.MethodGet)

	// Doctor-owned slots
	api.HandleFunc("/slots", h.listMySlotsHandler).Methods(http.MethodGet)
	api.HandleFunc("/slots", h.createSlotHandler).Methods(http.MethodPost)
	api.HandleFunc("/slots/{id}", h.getSlotHandler).Methods(http.MethodGet)
	api.HandleFunc("/slots/{id}", h.updateSlotHandler).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/slots/{id}", h.deleteSlotHandler).Methods(http.MethodDelete)

	// Appointments
	api.HandleFunc("/appointments", h.listAppointmentsHandler).Methods(http.MethodGet)
	api.HandleFunc("/appointments", h.requestAppointmentHandler).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}", h.getAppointmentHandler).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{id}/approve", h.approveAppointmentHandler).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{id}/reject", h.rejectAppointmentHandler).Methods(http.MethodPost)

	h.logger.WithComponent("scheduling").Info("Scheduling routes configured")
}

func (h *Handler) listDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.catalog.GetDoctors(r.Context(), r.URL.Query().Get("specialization"))
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, doctors)
}

func (h *Handler) getDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.catalog.GetDoctor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, doctor)
}

func (h *Handler) listDoctorSlotsHandler(w http.ResponseWriter, r *http.Request) {
	slots, err := h.catalog.GetDoctorSlots(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, slots)
}

func (h *Handler) listMySlotsHandler(w http.ResponseWriter, r *http.Request) {
	slots, err := h.catalog.GetMySlots(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, slots)
}

func (h *Handler) createSlotHandler(w http.ResponseWriter, r *http.Request) {
	var in types.SlotInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}

	slot, err := h.catalog.CreateSlot(r.Context(), rbac.CallerFromContext(r.Context()), &in)
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusCreated, slot)
}

func (h *Handler) getSlotHandler(w http.ResponseWriter, r *http.Request) {
	slot, err := h.catalog.GetSlot(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, slot)
}

func (h *Handler) updateSlotHandler(w http.ResponseWriter, r *http.Request) {
	var in types.SlotInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}

	slot, err := h.catalog.UpdateSlot(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"], &in)
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, slot)
}

func (h *Handler) deleteSlotHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteSlot(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters := &types.AppointmentFilters{
		DoctorID: query.Get("doctor"),
		Status:   types.AppointmentStatus(query.Get("status")),
		Date:     query.Get("date"),
	}
	if filters.DoctorID == "" {
		filters.DoctorID = query.Get("doctor_id")
	}

	apts, err := h.appointments.ListAppointments(r.Context(), rbac.CallerFromContext(r.Context()), filters)
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, apts)
}

func (h *Handler) requestAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var req types.AppointmentRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}

	apt, err := h.appointments.RequestAppointment(r.Context(), rbac.CallerFromContext(r.Context()), &req)
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusCreated, apt)
}

func (h *Handler) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	apt, err := h.appointments.GetAppointment(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, apt)
}

func (h *Handler) approveAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	apt, err := h.appointments.ApproveAppointment(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, apt)
}

func (h *Handler) rejectAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	apt, err := h.appointments.RejectAppointment(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, apt)
}
