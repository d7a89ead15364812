// Package api holds the JSON response conventions shared by every HTTP
// handler of the booking service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// maximum accepted request body
const maxBodyBytes = 1 << 20

// StatusFor maps an error to its HTTP status code
func StatusFor(err error) int {
	switch types.ErrorTypeOf(err) {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes data as a JSON response
func WriteJSON(w http.ResponseWriter, log *logger.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

// WriteError writes err as {"error","code","status"} plus any field details.
// Internal errors never leak their cause to the client.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status := StatusFor(err)

	response := map[string]interface{}{
		"status": status,
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Type != types.ErrorTypeInternal {
		response["error"] = appErr.Message
		response["code"] = appErr.Code
		if len(appErr.Details) > 0 {
			response["details"] = appErr.Details
		}
	} else {
		response["error"] = "Internal server error."
		response["code"] = types.ErrCodeInternalError
	}

	entry := log.WithContext(r.Context()).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	WriteJSON(w, log, status, response)
}

// DecodeJSON decodes the request body into dst. An empty body decodes to the
// zero value so field validation can report what is missing.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return types.NewValidationError(types.ErrCodeInvalidInput, "Malformed JSON body.", nil)
}
