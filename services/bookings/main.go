package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/diagnosis/venue-bookings/pkg/cache"
	"github.com/diagnosis/venue-bookings/pkg/config"
	"github.com/diagnosis/venue-bookings/pkg/database"
	"github.com/diagnosis/venue-bookings/pkg/events"
	"github.com/diagnosis/venue-bookings/pkg/logger"
	mw "github.com/diagnosis/venue-bookings/pkg/middleware"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/handlers"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/policy"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/repository"
	"github.com/diagnosis/venue-bookings/services/bookings/internal/service"
)

func main() {
	cfg := config.Load()
	logger.SetDefault(logger.New(os.Stdout, cfg.Log.Level))

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL, "bookings")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	store, err := cache.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize repositories
	venueRepo := repository.NewVenueRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	membershipRepo := repository.NewMembershipRepository(pool)
	planRepo := repository.NewPlanRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	// Initialize services
	authz := policy.NewAuthorizer(membershipRepo)
	bookingService := service.NewBookingService(venueRepo, sessionRepo, membershipRepo, bookingRepo, authz, eventBus)
	venueService := service.NewVenueService(venueRepo, sessionRepo, membershipRepo, planRepo, authz)

	h := handlers.New(bookingService, venueService)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)
	r.Use(mw.Metrics("bookings"))

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.RequireJWT(cfg.Auth.JWTSecret))
		r.Use(mw.Idempotency(store, cfg.Redis.IdempotencyTTL))
		h.Mount(r)
	})

	port := config.ServicePort("bookings", "8082")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}
