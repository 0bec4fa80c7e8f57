package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nandinigandhi21/EventHive-TheCoders/internal/api/handlers"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/config"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/logger"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/proxy"
	"github.com/nandinigandhi21/EventHive-TheCoders/internal/tracing"
	"github.com/nandinigandhi21/EventHive-TheCoders/middleware"
)

// Deps are the long-lived pieces the router hands to its handlers.
type Deps struct {
	Config   *config.Config
	Sessions handlers.SessionStore
	// Redis backs the shared rate limiter. Nil falls back to a per-process limiter.
	Redis *redis.Client
	// Readiness overrides the default upstream probe.
	Readiness []handlers.ReadinessChecker
}

func NewRouter(d Deps) (http.Handler, error) {
	cfg := d.Config
	r := chi.NewRouter()

	// 1. Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(cfg.JWTSecret))
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Tracing(tracing.ServiceName))
	r.Use(middleware.Metrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderXRequestID, middleware.HeaderDashboardSession},
		ExposedHeaders:   []string{middleware.HeaderXRequestID, middleware.HeaderDashboardSession},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 2. Health and metrics
	checkers := d.Readiness
	if len(checkers) == 0 {
		checkers = []handlers.ReadinessChecker{handlers.NewHTTPReadinessChecker("event-api", cfg.UpstreamAPIURL+"/events")}
		if d.Redis != nil {
			checkers = append(checkers, handlers.NewRedisReadinessChecker(d.Redis))
		}
	}
	ready := handlers.NewReadinessHandler(checkers...)
	r.Get("/api/healthz", ready.Healthz)
	r.Get("/api/readyz", ready.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	limit := rateLimiter(cfg, d.Redis)

	// 3. Auth pass-through: /api/auth/login -> /api/login
	authProxy, err := proxy.New(cfg.AuthUpstreamURL, proxy.Options{
		StripPrefix:    "/api/auth",
		UpstreamPrefix: "/api",
		Allow:          []string{"signup", "verify-otp", "login"},
	})
	if err != nil {
		return nil, fmt.Errorf("invalid auth upstream url: %w", err)
	}
	r.Mount("/api/auth", limit("auth", middleware.KeyByIP)(authProxy))

	// 4. Dashboard
	h := handlers.NewDashboardHandler(d.Sessions, 2*cfg.GatewayReadTimeout+cfg.GatewayWriteTimeout)
	r.Route("/api/dashboard", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(limit("dashboard", middleware.KeyByUser))

		r.Delete("/session", h.CloseSession)

		r.Group(func(r chi.Router) {
			r.Use(h.Session)

			r.Get("/session", h.GetSession)
			r.Get("/notifications", h.Notifications)
			r.With(middleware.RequireRole("admin")).Get("/metrics", h.Metrics)

			r.Route("/views/{view}", func(r chi.Router) {
				r.Get("/", h.GetView)
				r.Post("/refresh", h.RefreshView)
				r.Post("/records/{id}/toggle", h.Toggle)
				r.Put("/records/{id}/role", h.ChangeRole)
				r.Delete("/records/{id}", h.Delete)
			})
		})
	})

	logger.Log.Info().
		Str("auth_upstream", cfg.AuthUpstreamURL).
		Str("api_upstream", cfg.UpstreamAPIURL).
		Int("views", len(cfg.Views)).
		Msg("routes mounted")

	return r, nil
}

// rateLimiter picks the shared Redis limiter when available. Disabled
// limiting yields a pass-through.
func rateLimiter(cfg *config.Config, rdb *redis.Client) func(name string, key func(*http.Request) string) func(http.Handler) http.Handler {
	var shared *middleware.RedisRateLimiter
	if rdb != nil {
		shared = middleware.NewRedisRateLimiter(rdb)
	}
	return func(name string, key func(*http.Request) string) func(http.Handler) http.Handler {
		if !cfg.RLEnabled {
			return func(next http.Handler) http.Handler { return next }
		}
		rl := middleware.RateLimitConfig{Name: name, Limit: cfg.RLLimit, Window: cfg.RLWindow, KeyFn: key}
		if shared != nil {
			return shared.Middleware(rl)
		}
		return middleware.LocalRateLimit(rl)
	}
}
