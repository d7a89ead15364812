package iam

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
)

func newIdentityRouter(t *testing.T) (*mux.Router, *identityFixture) {
	t.Helper()
	f := newIdentityFixture(t)
	router := mux.NewRouter()
	NewHandler(f.service, logger.Discard()).RegisterRoutes(router.PathPrefix("/api").Subrouter())
	return router, f
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	router, _ := newIdentityRouter(t)

	rec := postJSON(t, router, "/api/patient/register", validRegistration())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var patient map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patient))
	assert.Equal(t, "Asha K", patient["full_name"])
	assert.NotContains(t, rec.Body.String(), "password")

	rec = postJSON(t, router, "/api/patient/login", map[string]string{"email": "asha@example.com", "password": "s3cure-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var token map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	assert.NotEmpty(t, token["access"])
	assert.Equal(t, patient["id"], token["patient_id"])

	// same credentials on the doctor endpoint
	rec = postJSON(t, router, "/api/doctor/login", map[string]string{"email": "asha@example.com", "password": "s3cure-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RegisterErrors(t *testing.T) {
	router, _ := newIdentityRouter(t)

	rec := postJSON(t, router, "/api/patient/register", map[string]string{"email": "asha@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "full_name")

	require.Equal(t, http.StatusCreated, postJSON(t, router, "/api/patient/register", validRegistration()).Code)
	assert.Equal(t, http.StatusConflict, postJSON(t, router, "/api/patient/register", validRegistration()).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
