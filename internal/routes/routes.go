package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/finiti/glossary-api/internal/auth"
	"github.com/finiti/glossary-api/internal/handlers"
	"github.com/finiti/glossary-api/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminGlossaryHandler *handlers.AdminGlossaryHandler,
	publicGlossaryHandler *handlers.PublicGlossaryHandler,
	tokenManager *auth.TokenManager,
) {
	authRateLimit := middleware.DefaultAuthRateLimit()
	adminRateLimit := middleware.DefaultAdminRateLimit()

	// Public auth routes. Credential endpoints sit behind the per-IP limiter
	// so an attacker cannot brute-force passwords or reset tokens.
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/refresh", authHandler.Refresh)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/reset-password/request", authHandler.ResetPasswordRequest)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/reset-password/confirm", authHandler.ResetPasswordConfirm)
	router.With(middleware.RateLimitByIP(authRateLimit)).Post("/auth/complete-profile-update", authHandler.CompleteProfileUpdate)
	router.Post("/auth/logout", authHandler.Logout)

	// Public glossary - anonymous read access to published entries
	router.Get("/public/glossary/get-terms-list", publicGlossaryHandler.GetTermsList)
	router.Get("/public/glossary/{id}", publicGlossaryHandler.GetTerm)

	// Admin glossary - authentication required, finer access checks happen in
	// the service layer against the stored role and row ownership
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))
		r.Use(middleware.RateLimitByPrincipal(adminRateLimit))

		r.Get("/admin/glossary/get-terms-list", adminGlossaryHandler.GetTermsList)
		r.Get("/admin/glossary/get-term-history/{stableId}", adminGlossaryHandler.GetTermHistory)
		r.Post("/admin/glossary/create-term", adminGlossaryHandler.CreateTerm)
		r.Put("/admin/glossary/update-term/{id}", adminGlossaryHandler.UpdateTerm)
		r.Post("/admin/glossary/publish-term/{id}", adminGlossaryHandler.PublishTerm)
		r.Post("/admin/glossary/archive-term/{id}", adminGlossaryHandler.ArchiveTerm)
		r.Post("/admin/glossary/restore-term/{stableId}/{version}", adminGlossaryHandler.RestoreTerm)
		r.Delete("/admin/glossary/delete-term/{id}", adminGlossaryHandler.DeleteTerm)
	})
}
