package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	httpAdapter "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/http"
	mw "github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/http/middleware"
	"github.com/autoassistgroup/helpdesk-backend/internal/adapters/primary/websocket"
	"github.com/autoassistgroup/helpdesk-backend/internal/adapters/secondary/email"
	"github.com/autoassistgroup/helpdesk-backend/internal/adapters/secondary/postgres"
	"github.com/autoassistgroup/helpdesk-backend/internal/auth"
	"github.com/autoassistgroup/helpdesk-backend/internal/config"
	"github.com/autoassistgroup/helpdesk-backend/internal/core/services"
	"github.com/autoassistgroup/helpdesk-backend/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Run Migrations (opt-in; deployments usually migrate separately)
	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg, logger); err != nil {
			logger.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	// 4. Initialize Database Pool
	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 5. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run()

	// 6. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 7. Dependency Injection (Wiring the Hexagon)

	errorHandler := httpAdapter.NewErrorHandler(logger)

	defaultOrgID, err := uuid.Parse(cfg.App.DefaultOrgID)
	if err != nil {
		logger.Error("invalid default organization id in configuration", "error", err)
		os.Exit(1)
	}

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	replyRepo := postgres.NewReplyRepository(pool)
	authzRepo := postgres.NewAuthorizationRepository(pool)
	analyticsRepo := postgres.NewAnalyticsRepository(pool)

	// Notifier (Secondary Adapter)
	notifier := email.NewMockSMTPNotifier(userRepo, cfg.Email.FromAddress, cfg.Email.FromName, logger)

	// Services (Core)
	authService := services.NewAuthService(userRepo, defaultOrgID)
	authzService := services.NewAuthorizationService(authzRepo, logger)
	ticketService := services.NewTicketService(ticketRepo, userRepo, authzService, hub, notifier, logger)
	replyService := services.NewReplyService(replyRepo, ticketRepo, userRepo, authzService, hub, logger)
	adminService := services.NewAdminService(userRepo, authzRepo, analyticsRepo, authzService, logger)

	// Handlers (Primary Adapters)
	authHandler := httpAdapter.NewAuthHandler(authService, tokenManager, errorHandler, logger)
	replyHandler := httpAdapter.NewReplyHandler(replyService, errorHandler, logger)
	ticketHandler := httpAdapter.NewTicketHandler(ticketService, replyHandler, errorHandler, logger)
	adminHandler := httpAdapter.NewAdminHandler(adminService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, cfg.App.Version)

	// 8. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(corsOptions(cfg)))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health check endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if authRateLimiter != nil {
				r.Use(authRateLimiter.Middleware)
			}
			r.Mount("/auth", authHandler.Router())
		})

		// WebSocket route (authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Get("/auth/me", authHandler.HandleMe)
			r.Route("/tickets", ticketHandler.RegisterRoutes)
			r.Mount("/admin", adminHandler.Router())
		})
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	// Flush queued email notifications before exiting.
	ticketService.Shutdown()

	logger.Info("server shutdown complete")
}

// runMigrations applies pending schema migrations from the configured
// directory.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database schema up to date")
			return nil
		}
		return err
	}

	logger.Info("database migrations applied")
	return nil
}

func corsOptions(cfg *config.Config) cors.Options {
	allowed := []string{"*"}
	if cfg.IsProduction() {
		allowed = cfg.WebSocket.AllowedOrigins
	}
	return cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}
