package iam

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/api"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Public identity routes. The gateway rate limits these paths.
const (
	RegisterPath     = "/patient/register"
	PatientLoginPath = "/patient/login"
	DoctorLoginPath  = "/doctor/login"
	AdminLoginPath   = "/admin/login"
)

// Handler exposes registration and login over HTTP
type Handler struct {
	identity interfaces.IdentityProvider
	logger   *logger.Logger
}

// NewHandler creates the identity HTTP handler
func NewHandler(identity interfaces.IdentityProvider, log *logger.Logger) *Handler {
	return &Handler{identity: identity, logger: log}
}

// RegisterRoutes mounts the identity routes on an /api subrouter
func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc(RegisterPath, h.registerPatientHandler).Methods(http.MethodPost)
	api.HandleFunc(PatientLoginPath, h.loginHandler(types.RolePatient)).Methods(http.MethodPost)
	api.HandleFunc(DoctorLoginPath, h.loginHandler(types.RoleDoctor)).Methods(http.MethodPost)
	api.HandleFunc(AdminLoginPath, h.loginHandler(types.RoleAdmin)).Methods(http.MethodPost)

	h.logger.WithComponent("iam").Info("Identity routes configured")
}

// registerPatientHandler handles patient self-registration
func (h *Handler) registerPatientHandler(w http.ResponseWriter, r *http.Request) {
	var reg types.PatientRegistration
	if err := api.DecodeJSON(r, &reg); err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}

	patient, err := h.identity.RegisterPatient(r.Context(), &reg)
	if err != nil {
		api.WriteError(w, r, h.logger, err)
		return
	}
	api.WriteJSON(w, h.logger, http.StatusCreated, patient)
}

// loginHandler handles login for one role
func (h *Handler) loginHandler(role types.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds types.Credentials
		if err := api.DecodeJSON(r, &creds); err != nil {
			api.WriteError(w, r, h.logger, err)
			return
		}

		token, err := h.identity.Authenticate(r.Context(), &creds, role)
		if err != nil {
			api.WriteError(w, r, h.logger, err)
			return
		}
		api.WriteJSON(w, h.logger, http.StatusOK, token)
	}
}
