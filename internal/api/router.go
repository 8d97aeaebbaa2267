package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/api/handler"
	"github.com/gigmarket/portal-core/internal/api/middleware"
	"github.com/gigmarket/portal-core/internal/authz"
	"github.com/gigmarket/portal-core/internal/provider"
	"github.com/gigmarket/portal-core/internal/session"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Bootstrap *session.Bootstrap
	Provider  provider.Provider
	Gate      *admission.Gate
	Admins    admission.Repository
	DB        handler.DBPinger
	Version   string

	JWTSecret      string
	ServiceKeyHash string

	SignInRateLimit float64
	SignInRateBurst int
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DB, deps.Version)
	r.Get("/healthz", healthHandler.ServeHTTP)
	r.Method("GET", "/metrics", promhttp.Handler())

	authenticate := middleware.Authenticate(deps.JWTSecret, deps.Gate)
	// Credential endpoints share one limiter so sign-up attempts cannot be
	// used to bypass the sign-in throttle.
	throttled := middleware.RateLimit(deps.SignInRateLimit, deps.SignInRateBurst)

	sessionHandler := handler.NewSessionHandler(deps.Bootstrap, deps.Provider)
	r.Route("/v1/session", func(r chi.Router) {
		r.With(throttled).Post("/", sessionHandler.SignIn)
		r.With(throttled).Post("/signup", sessionHandler.SignUp)
		r.With(throttled).Post("/refresh", sessionHandler.Refresh)
		r.Delete("/", sessionHandler.SignOut)
		r.With(authenticate).Get("/", sessionHandler.Current)
	})

	authzHandler := handler.NewAuthzHandler()
	r.With(authenticate).Get("/v1/authz/check", authzHandler.Check)

	adminHandler := handler.NewAdministratorHandler(deps.Admins)
	r.Route("/v1/administrators", func(r chi.Router) {
		r.With(authenticate, middleware.RequirePermission(authz.ResourceSettings, authz.ActionView)).
			Get("/", adminHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.ServiceKey(deps.ServiceKeyHash))
			r.Post("/", adminHandler.Create)
			r.Delete("/{id}", adminHandler.Deactivate)
		})
	})

	return r
}
