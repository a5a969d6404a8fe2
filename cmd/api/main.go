package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/background"
	"github.com/finiti/glossary-api/internal/config"
	"github.com/finiti/glossary-api/internal/database"
	"github.com/finiti/glossary-api/internal/handlers"
	middlewareCustom "github.com/finiti/glossary-api/internal/middleware"
	"github.com/finiti/glossary-api/internal/models"
	"github.com/finiti/glossary-api/internal/repositories"
	"github.com/finiti/glossary-api/internal/routes"
	"github.com/finiti/glossary-api/internal/services"
	pkgauth "github.com/finiti/glossary-api/pkg/auth"
	pkghttp "github.com/finiti/glossary-api/pkg/http"
	pkglogger "github.com/finiti/glossary-api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	termRepo := repositories.NewTermRepository(db)

	// Token manager and audit logging
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.FrontendBaseURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Services
	authService := services.NewAuthService(
		userRepo,
		refreshTokenRepo,
		tokenManager,
		emailService,
		cfg.Auth.RefreshTokenExpiry,
		cfg.Auth.ResetTokenExpiry,
		logger,
		auditLogger,
	)
	adminGlossaryService := services.NewAdminGlossaryService(termRepo, userRepo, logger, auditLogger)
	publicGlossaryService := services.NewPublicGlossaryService(termRepo, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	adminGlossaryHandler := handlers.NewAdminGlossaryHandler(adminGlossaryService)
	publicGlossaryHandler := handlers.NewPublicGlossaryHandler(publicGlossaryService)

	// Bootstrap the first Admin account if configured
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := seedAdminUser(seedCtx, userRepo, &cfg.Admin, logger); err != nil {
		logger.Error("failed to seed admin user", slog.Any("error", err))
	}
	seedCancel()

	// Background cleanup of expired refresh tokens
	cleanupManager := background.NewCleanupManager(refreshTokenRepo, logger, cfg.Auth.CleanupInterval)

	// Router
	corsConfig := middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger, &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, adminGlossaryHandler, publicGlossaryHandler, tokenManager)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// seedAdminUser creates the first Admin account when none exists yet. The
// seeded account carries the first-login flags so the operator-provided
// credentials must be replaced before normal use.
func seedAdminUser(ctx context.Context, userRepo *repositories.UserRepository, cfg *config.AdminSeedConfig, logger *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin seeding")
		return nil
	}

	exists, err := userRepo.ExistsAdmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if exists {
		logger.Info("admin account already exists, skipping seeding")
		return nil
	}

	hashedPassword, err := pkgauth.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:           cfg.Username,
		Email:              cfg.Email,
		PasswordHash:       hashedPassword,
		Role:               string(auth.RoleAdmin),
		IsActive:           true,
		MustChangePassword: true,
		MustUpdateProfile:  true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin account seeded", slog.String("email", cfg.Email))
	return nil
}
