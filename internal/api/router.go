package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/hackgods/appointment-booking/internal/appointment"
	"github.com/hackgods/appointment-booking/internal/auth"
	"github.com/hackgods/appointment-booking/internal/availability"
	"github.com/hackgods/appointment-booking/internal/user"
)

type RouterConfig struct {
	Users        *user.Service
	Tokens       *auth.TokenService
	Appointments *appointment.Service
	Availability *availability.Service
	Health       *HealthHandler
	LoginLimiter *RateLimiter
	CORSOrigins  []string
	CookieSecure bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(RecoverMiddleware)
	r.Use(SecurityHeaders)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	gate := NewGate(cfg.Tokens, cfg.Users, cfg.CookieSecure)
	uh := &userHandlers{users: cfg.Users, tokens: cfg.Tokens, cookieSecure: cfg.CookieSecure}
	staffOrAdmin := RequireRoles(user.RoleStaff, user.RoleAdmin)

	r.Route("/user", func(r chi.Router) {
		r.Post("/signup", uh.signup)
		if cfg.LoginLimiter != nil {
			r.With(cfg.LoginLimiter.Limit).Post("/login", uh.login)
		} else {
			r.Post("/login", uh.login)
		}

		r.Group(func(r chi.Router) {
			r.Use(gate.Authenticate)
			r.Post("/logout", uh.logout)
			r.Get("/", uh.me)
		})
	})

	r.Route("/appointment", func(r chi.Router) {
		r.Use(gate.Authenticate)

		r.With(RequireRoles(user.RoleUser)).Post("/create", createAppointmentHandler(cfg.Appointments))
		r.Get("/", listAppointmentsHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.With(staffOrAdmin).Patch("/{id}", updateAppointmentStatusHandler(cfg.Appointments))
		r.Delete("/{id}", cancelAppointmentHandler(cfg.Appointments))
	})

	r.Route("/availability", func(r chi.Router) {
		r.Use(gate.Authenticate)

		r.With(staffOrAdmin).Post("/create", createSlotHandler(cfg.Availability))
		r.With(staffOrAdmin).Put("/update", updateSlotHandler(cfg.Availability))
		r.Get("/list", listSlotsHandler(cfg.Availability))
		r.With(staffOrAdmin).Delete("/delete/{id}", deleteSlotHandler(cfg.Availability))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
