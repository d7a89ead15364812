package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// MockIdentityProvider is a mock implementation of IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) RegisterPatient(ctx context.Context, reg *types.PatientRegistration) (*types.Patient, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockIdentityProvider) Authenticate(ctx context.Context, creds *types.Credentials, role types.UserRole) (*types.AuthToken, error) {
	args := m.Called(ctx, creds, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AuthToken), args.Error(1)
}

func (m *MockIdentityProvider) Resolve(ctx context.Context, token string) (*types.Caller, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Caller), args.Error(1)
}

func (m *MockIdentityProvider) CreateIdentity(ctx context.Context, email, password string, role types.UserRole) (*types.User, error) {
	args := m.Called(ctx, email, password, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func newTestMiddleware(identity *MockIdentityProvider, limiter *RateLimiter, origins ...string) *Middleware {
	var rl interfaces.RateLimiter
	if limiter != nil {
		rl = limiter
	}
	return NewMiddleware(identity, rl, monitoring.NewMetricsCollector("gateway-test"), logger.Discard(), origins, "/api/patient/login")
}

// callerEcho reports the resolved caller's user id, or "anonymous"
var callerEcho = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	caller := rbac.CallerFromContext(r.Context())
	if caller == nil {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(caller.UserID))
})

func TestCORSMiddleware(t *testing.T) {
	mw := newTestMiddleware(&MockIdentityProvider{}, nil, "http://localhost:5173")
	handler := mw.corsMiddleware(callerEcho)

	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, "/api/doctors", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	wildcard := newTestMiddleware(&MockIdentityProvider{}, nil, "*").corsMiddleware(callerEcho)
	rec = httptest.NewRecorder()
	wildcard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	mw := newTestMiddleware(&MockIdentityProvider{}, nil)

	rec := httptest.NewRecorder()
	mw.securityHeadersMiddleware(callerEcho).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	expectedHeaders := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"X-XSS-Protection":          "1; mode=block",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Content-Security-Policy":   "default-src 'self'",
		"Referrer-Policy":           "strict-origin-when-cross-origin",
	}
	for header, expected := range expectedHeaders {
		assert.Equal(t, expected, rec.Header().Get(header), header)
	}
}

func TestAuthMiddleware(t *testing.T) {
	identity := &MockIdentityProvider{}
	identity.On("Resolve", mock.Anything, "good-token").
		Return(&types.Caller{UserID: "user-1", Role: types.RolePatient}, nil)
	identity.On("Resolve", mock.Anything, "bad-token").
		Return(nil, types.NewAuthenticationError("TOKEN_NOT_VALID", "Given token not valid for any token type."))

	handler := newTestMiddleware(identity, nil).authMiddleware(callerEcho)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusOK, "anonymous"},
		{"valid token", "Bearer good-token", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer good-token", http.StatusOK, "user-1"},
		{"invalid token", "Bearer bad-token", http.StatusUnauthorized, "TOKEN_NOT_VALID"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, types.ErrCodeUnauthorized},
		{"missing token", "Bearer ", http.StatusUnauthorized, types.ErrCodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	mw := newTestMiddleware(&MockIdentityProvider{}, nil)
	handler := mw.RequireAuth(callerEcho)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/doctors", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/doctors", nil)
	req = req.WithContext(rbac.ContextWithCaller(req.Context(), &types.Caller{UserID: "admin-1", Role: types.RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Body.String())
}

func TestRateLimitMiddleware(t *testing.T) {
	mw := newTestMiddleware(&MockIdentityProvider{}, NewRateLimiter(2, time.Minute))
	handler := mw.rateLimitMiddleware(callerEcho)

	login := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/patient/login", nil)
		req.RemoteAddr = ip + ":40000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, login("10.0.0.1"))
	assert.Equal(t, http.StatusOK, login("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.1"))
	assert.Equal(t, http.StatusOK, login("10.0.0.2"))

	// unlisted paths are never throttled
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/doctors", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	count, err := testutil.GatherAndCount(mw.metrics.Registry(), "rate_limited_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRateLimitMiddleware_ForwardedForSpoofing(t *testing.T) {
	mw := newTestMiddleware(&MockIdentityProvider{}, NewRateLimiter(2, time.Minute))
	handler := mw.rateLimitMiddleware(callerEcho)

	throttled := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/patient/login", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 18, throttled)
}

func TestClientIP(t *testing.T) {
	mw := newTestMiddleware(&MockIdentityProvider{}, nil)
	require.NoError(t, mw.TrustProxies([]string{"10.0.0.0/8", "192.0.2.1"}))

	tests := []struct {
		name      string
		remote    string
		forwarded string
		realIP    string
		want      string
	}{
		{"direct peer", "203.0.113.5:1234", "", "", "203.0.113.5"},
		{"untrusted peer ignores forwarded", "203.0.113.5:1234", "198.51.100.7", "198.51.100.8", "203.0.113.5"},
		{"trusted proxy", "192.0.2.1:1234", "198.51.100.7", "", "198.51.100.7"},
		{"spoofed left-most hop", "10.1.2.3:1234", "6.6.6.6, 198.51.100.7, 10.9.9.9", "", "198.51.100.7"},
		{"real ip header", "10.1.2.3:1234", "", "198.51.100.9", "198.51.100.9"},
		{"only proxies forwarded", "10.1.2.3:1234", "10.2.2.2", "", "10.1.2.3"},
		{"garbage forwarded", "10.1.2.3:1234", "not-an-ip", "", "10.1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-Ip", tt.realIP)
			}
			assert.Equal(t, tt.want, mw.clientIP(req))
		})
	}
}

func TestTrustProxies_Invalid(t *testing.T) {
	mw := newTestMiddleware(&MockIdentityProvider{}, nil)
	assert.Error(t, mw.TrustProxies([]string{"10.0.0.0/33"}))
	assert.Error(t, mw.TrustProxies([]string{"proxy.internal"}))
}
