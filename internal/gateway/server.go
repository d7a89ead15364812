package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sunnysuhas/Hospital-Appointment/pkg/config"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
)

// APIPrefix is the path prefix of every domain route
const APIPrefix = "/api"

// Routes is implemented by each package's HTTP handler
type Routes interface {
	RegisterRoutes(api *mux.Router)
}

// Server assembles the booking service HTTP surface
type Server struct {
	router     *mux.Router
	handler    http.Handler
	server     *http.Server
	middleware *Middleware
	monitoring *monitoring.MonitoringMiddleware
	metrics    *monitoring.MetricsCollector
	health     *monitoring.HealthManager
	cfg        *config.Config
	logger     *logger.Logger
	startTime  time.Time
}

// NewServer creates the server. public routes accept anonymous callers and
// resolve them when a token is present; protected routes require one.
func NewServer(
	cfg *config.Config,
	mw *Middleware,
	mon *monitoring.MonitoringMiddleware,
	metrics *monitoring.MetricsCollector,
	health *monitoring.HealthManager,
	log *logger.Logger,
	public []Routes,
	protected []Routes,
) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		middleware: mw,
		monitoring: mon,
		metrics:    metrics,
		health:     health,
		cfg:        cfg,
		logger:     log,
		startTime:  time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes(public, protected)

	// CORS and security headers wrap the router so that unmatched and
	// preflight requests get them too
	s.handler = mw.securityHeadersMiddleware(mw.corsMiddleware(s.router))

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupMiddleware sets up middleware
func (s *Server) setupMiddleware() {
	if s.monitoring != nil {
		s.router.Use(s.monitoring.HTTPMiddleware)
	}
	s.router.Use(s.middleware.rateLimitMiddleware)
	s.router.Use(s.middleware.authMiddleware)
}

// setupRoutes sets up the routing
func (s *Server) setupRoutes(public, protected []Routes) {
	healthPath := s.cfg.Monitoring.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}
	s.router.HandleFunc(healthPath, s.health.HTTPHandler()).Methods(http.MethodGet)

	if s.cfg.Monitoring.Enabled {
		metricsPath := s.cfg.Monitoring.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		s.router.Handle(metricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	apiRouter := s.router.PathPrefix(APIPrefix).Subrouter()
	for _, routes := range public {
		routes.RegisterRoutes(apiRouter)
	}

	authenticated := apiRouter.NewRoute().Subrouter()
	authenticated.Use(s.middleware.RequireAuth)
	for _, routes := range protected {
		routes.RegisterRoutes(authenticated)
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("Starting booking service")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout
func (s *Server) Stop(ctx context.Context) error {
	timeout := time.Duration(s.cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.WithField("uptime", time.Since(s.startTime).String()).Info("Stopping booking service")
	return s.server.Shutdown(ctx)
}
