package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/api"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/rbac"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/types"
)

// Middleware holds the request filters shared by every route
type Middleware struct {
	identity       interfaces.IdentityProvider
	limiter        interfaces.RateLimiter
	metrics        *monitoring.MetricsCollector
	logger         *logger.Logger
	allowedOrigins []string
	limitedPaths   map[string]bool
	trustedProxies []netip.Prefix
}

// NewMiddleware creates the gateway middleware. limiter may be nil to
// disable rate limiting. limitedPaths are full request paths.
func NewMiddleware(
	identity interfaces.IdentityProvider,
	limiter interfaces.RateLimiter,
	metrics *monitoring.MetricsCollector,
	log *logger.Logger,
	allowedOrigins []string,
	limitedPaths ...string,
) *Middleware {
	paths := make(map[string]bool, len(limitedPaths))
	for _, p := range limitedPaths {
		paths[p] = true
	}
	return &Middleware{
		identity:       identity,
		limiter:        limiter,
		metrics:        metrics,
		logger:         log,
		allowedOrigins: allowedOrigins,
		limitedPaths:   paths,
	}
}

// TrustProxies sets the addresses or CIDR ranges whose forwarding headers
// are believed when deriving the client address
func (m *Middleware) TrustProxies(proxies []string) error {
	prefixes := make([]netip.Prefix, 0, len(proxies))
	for _, p := range proxies {
		prefix, err := parseProxy(p)
		if err != nil {
			return err
		}
		prefixes = append(prefixes, prefix)
	}
	m.trustedProxies = prefixes
	return nil
}

func parseProxy(p string) (netip.Prefix, error) {
	p = strings.TrimSpace(p)
	if strings.Contains(p, "/") {
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(p)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// corsMiddleware handles CORS headers
func (m *Middleware) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := m.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Max-Age", "86400")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) allowOrigin(origin string) string {
	for _, allowed := range m.allowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// securityHeadersMiddleware adds security headers
func (m *Middleware) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// authMiddleware resolves a bearer token into the request's caller.
// Requests without an Authorization header continue anonymously.
func (m *Middleware) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			api.WriteError(w, r, m.logger, types.NewAuthenticationError(types.ErrCodeUnauthorized, "Authorization header must contain two space-delimited values."))
			return
		}

		caller, err := m.identity.Resolve(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if types.ErrorTypeOf(err) == types.ErrorTypeAuthentication {
				m.logger.Security("invalid_token", "", map[string]interface{}{
					"path":      r.URL.Path,
					"client_ip": m.clientIP(r),
				})
			}
			api.WriteError(w, r, m.logger, err)
			return
		}

		ctx := rbac.ContextWithCaller(r.Context(), caller)
		ctx = logger.ContextWithUserID(ctx, caller.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rbac.IsAuthenticated(rbac.CallerFromContext(r.Context())) {
			api.WriteError(w, r, m.logger, types.NewAuthenticationError(rbac.ErrorCodeNotAuthenticate, "Authentication credentials were not provided."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware throttles the configured paths per client address
func (m *Middleware) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil || r.Method != http.MethodPost || !m.limitedPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		ip := m.clientIP(r)
		allowed, err := m.limiter.Allow(r.Context(), r.URL.Path+":"+ip)
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Warn("Rate limit check failed")
		}
		if !allowed {
			m.metrics.RecordRateLimited(r.URL.Path)
			m.logger.Security("rate_limit_exceeded", "", map[string]interface{}{
				"path":      r.URL.Path,
				"client_ip": ip,
			})
			api.WriteError(w, r, m.logger, &types.AppError{
				Type:    types.ErrorTypeRateLimit,
				Code:    types.ErrCodeRateLimitExceeded,
				Message: "Request was throttled.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP is the peer address unless the peer is a trusted proxy. Behind
// trusted proxies it is the right-most X-Forwarded-For hop that is not
// itself trusted, or X-Real-Ip when no such hop exists.
func (m *Middleware) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !m.trusted(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if _, err := netip.ParseAddr(hop); err != nil {
				break
			}
			if !m.trusted(hop) {
				return hop
			}
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-Ip")); real != "" {
		if _, err := netip.ParseAddr(real); err == nil {
			return real
		}
	}
	return peer
}

func (m *Middleware) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range m.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
