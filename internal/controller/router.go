package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/cassiomorais/reminders/internal/event"
	"github.com/cassiomorais/reminders/internal/infrastructure/config"
	"github.com/cassiomorais/reminders/internal/infrastructure/observability"
	customMW "github.com/cassiomorais/reminders/internal/middleware"
	"github.com/cassiomorais/reminders/internal/repository/postgres"
	"github.com/cassiomorais/reminders/internal/service"
)

type RouterDeps struct {
	Pool            *pgxpool.Pool
	RedisClient     *redis.Client
	Dispatcher      *event.Dispatcher
	EventStore      event.Store
	Recovery        *service.RecoveryService
	IdempotencyRepo *postgres.IdempotencyRepository
	Metrics         *observability.Metrics
	CORSConfig      config.CORSConfig
	JWTSecret       string
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSConfig.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: deps.CORSConfig.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	monitoringH := NewMonitoringController(deps.Dispatcher, deps.EventStore, deps.Recovery)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/monitoring/events", func(r chi.Router) {
		r.Use(customMW.RequireAdmin(deps.JWTSecret))
		r.Use(customMW.RateLimit(120))

		r.Get("/metrics", monitoringH.Metrics)
		r.Get("/types", monitoringH.EventTypes)
		r.Get("/subscriptions", monitoringH.Subscriptions)
		r.Get("/stored", monitoringH.StoredEvents)
		r.Get("/stored/{eventID}", monitoringH.StoredEvent)
		r.Get("/stats", monitoringH.Stats)

		// Mutating endpoints honor Idempotency-Key.
		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)
		r.With(idempotencyMW).Post("/recover", monitoringH.Recover)
		r.Post("/reset-metrics", monitoringH.ResetMetrics)
	})

	return r
}
