package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sunnysuhas/Hospital-Appointment/internal/admin"
	"github.com/sunnysuhas/Hospital-Appointment/internal/gateway"
	"github.com/sunnysuhas/Hospital-Appointment/internal/iam"
	"github.com/sunnysuhas/Hospital-Appointment/internal/scheduling"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/config"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/database"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/interfaces"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/logger"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/monitoring"
	"github.com/sunnysuhas/Hospital-Appointment/pkg/repository"
)

const serviceName = "hospital-appointment"

var version = "dev"

// stores groups the persistence each service needs
type stores struct {
	users    interfaces.UserRepository
	booking  interfaces.SchedulingRepository
	profiles iam.ProfileLookup
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	metrics := monitoring.NewMetricsCollector(serviceName)
	health := monitoring.NewHealthManager(serviceName, version)
	health.SetTimeout(3 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tracing *monitoring.TracingManager
	if cfg.Monitoring.Enabled {
		tracing, err = monitoring.NewTracingManager(&monitoring.TracingConfig{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Environment:    os.Getenv("ENVIRONMENT"),
			SamplingRate:   cfg.Monitoring.SampleRate,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize tracing")
		}
	}

	var st stores
	switch cfg.Database.Driver {
	case config.DriverMemory:
		store := repository.NewMemoryStore()
		st = stores{users: store, booking: store, profiles: store}
		health.RegisterChecker("store", monitoring.NewPingHealthChecker("memory", store))
		logger.Warn("Using in-memory store; data is lost on restart")
	default:
		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		if err := db.CreateSchema(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to create schema")
		}

		booking := scheduling.NewRepository(db, logger)
		st = stores{users: iam.NewUserRepository(db, logger), booking: booking, profiles: booking}
		health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	}

	limiter := newRateLimiter(ctx, cfg, health, logger)

	// Services
	identity := iam.New(st.users, st.profiles, iam.NewPasswordManager(), iam.NewTokenManager(&cfg.JWT), logger, metrics)
	catalog := scheduling.NewCatalog(st.booking, logger, metrics)
	appointments := scheduling.NewService(st.booking, logger, metrics)
	adminService := admin.NewService(st.users, st.booking, identity, logger, metrics)

	mw := gateway.NewMiddleware(identity, limiter, metrics, logger, cfg.CORS.AllowedOrigins,
		gateway.APIPrefix+iam.RegisterPath,
		gateway.APIPrefix+iam.PatientLoginPath,
		gateway.APIPrefix+iam.DoctorLoginPath,
		gateway.APIPrefix+iam.AdminLoginPath,
	)
	if err := mw.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
		logger.WithError(err).Fatal("Invalid rate_limit.trusted_proxies")
	}

	server := gateway.NewServer(cfg, mw, monitoring.NewMonitoringMiddleware(metrics, tracing, logger), metrics, health, logger,
		[]gateway.Routes{
			iam.NewHandler(identity, logger),
			scheduling.NewHandler(catalog, appointments, logger),
		},
		[]gateway.Routes{
			admin.NewHandler(adminService, logger),
		},
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start booking service")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down booking service...")
	if err := server.Stop(context.Background()); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
	if tracing != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}
	logger.Info("Booking service stopped")
}

// newRateLimiter prefers Redis so that replicas share one window, and falls
// back to an in-process token bucket
func newRateLimiter(ctx context.Context, cfg *config.Config, health *monitoring.HealthManager, log *logger.Logger) interfaces.RateLimiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	if cfg.Redis.Enabled {
		opts := &redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}
		if cfg.Redis.URL != "" {
			parsed, err := redis.ParseURL(cfg.Redis.URL)
			if err != nil {
				log.WithError(err).Fatal("Invalid REDIS_URL")
			}
			opts = parsed
		}
		client := redis.NewClient(opts)
		health.RegisterChecker("redis", monitoring.NewRedisHealthChecker(client))
		log.WithField("addr", opts.Addr).Info("Rate limiting with Redis")
		return gateway.NewRedisRateLimiter(client, cfg.RateLimit.RequestsPerMin, time.Minute, log)
	}

	// burst tokens, refilled at requests_per_min
	rpm := max(cfg.RateLimit.RequestsPerMin, 1)
	burst := cfg.RateLimit.BurstSize
	if burst <= 0 {
		burst = rpm
	}
	limiter := gateway.NewRateLimiter(burst, time.Minute*time.Duration(burst)/time.Duration(rpm))
	limiter.StartCleanup(ctx, time.Hour)
	return limiter
}
