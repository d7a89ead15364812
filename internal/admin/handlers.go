package admin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/api"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Handler exposes doctor and patient administration over HTTP
type Handler struct {
	service interfaces.AdminService
	logger  *logger.Logger
}

// NewHandler creates the admin HTTP handler
func NewHandler(service interfaces.AdminService, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// RegisterRoutes mounts the admin routes on an /api subrouter
func (h *Handler) RegisterRoutes(router *mux.Router) {
	adminRouter := router.PathPrefix("/admin").Subrouter()

	adminRouter.HandleFunc("/doctors", h.listDoctorsHandler).Methods(http.MethodGet)
	adminRouter.HandleFunc("/doctors", h.createDoctorHandler).Methods(http.MethodPost)
	adminRouter.HandleFunc("/doctors/{id}", h.getDoctorHandler).Methods(http.MethodGet)
	adminRouter.HandleFunc("/doctors/{id}", h.updateDoctorHandler).Methods(http.MethodPut, http.MethodPatch)
	adminRouter.HandleFunc("/doctors/{id}", h.deleteDoctorHandler).Methods(http.MethodDelete)
	adminRouter.HandleFunc("/patients", h.listPatientsHandler).Methods(http.MethodGet)

	h.logger.WithComponent("admin").Info("Admin routes configured")
}

func (h *Handler) createDoctorHandler(w http.ResponseWriter, r *http.Request) {
	var in types.DoctorInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}

	doctor, err := h.service.CreateDoctor(r.Context(), rbac.CallerFromContext(r.Context()), &in)
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusCreated, doctor)
}

func (h *Handler) listDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.service.GetDoctors(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, doctors)
}

func (h *Handler) getDoctorHandler(w http.ResponseWriter, r *http.Request) {
	doctor, err := h.service.GetDoctor(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, doctor)
}

func (h *Handler) updateDoctorHandler(w http.ResponseWriter, r *http.Request) {
	var updates types.DoctorUpdates
	if err := api.DecodeJSON(r, &updates); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}

	doctor, err := h.service.UpdateDoctor(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"], &updates)
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, doctor)
}

func (h *Handler) deleteDoctorHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDoctor(r.Context(), rbac.CallerFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPatientsHandler(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.GetPatients(r.Context(), rbac.CallerFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusOK, patients)
}
