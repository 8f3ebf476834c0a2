package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/laundry-backend/internal/config"
	"github.com/AnshRaj112/laundry-backend/internal/handlers"
	"github.com/AnshRaj112/laundry-backend/internal/metrics"
	"github.com/AnshRaj112/laundry-backend/internal/middleware"
	"github.com/AnshRaj112/laundry-backend/internal/services"
)

// Deps is everything the HTTP surface needs. Redis is optional and only
// enables the shared rate limiter outside production.
type Deps struct {
	Config *config.Config
	Auth   *services.AuthGateway
	Orders *services.OrderService
	Hub    *services.Hub
	Redis  redis.Cmdable
	Logger *zap.Logger
}

// NewRouter builds the root router with the middleware stack and every route.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if d.Config.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(d.Config.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit → AuthRateLimit
	// Non-production: Redis-backed limiter when Redis is configured
	if d.Config.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(d.Config.AllowedHost()) {
			r.Use(mw)
		}
		d.Logger.Info("production security enabled")
	} else if d.Redis != nil {
		r.Use(middleware.RedisRateLimit(d.Redis, d.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	SetupRoutes(r, d)
	return r
}

func SetupRoutes(r chi.Router, d Deps) {
	auth := handlers.NewAuthHandler(d.Auth, d.Logger)
	orders := handlers.NewOrderHandler(d.Orders, d.Logger)
	realtime := handlers.NewRealtimeHandler(d.Hub, d.Orders, d.Auth, d.Config.AllowedOrigins, d.Logger)

	requireAuth := middleware.RequireAuth(d.Auth)
	optionalAuth := middleware.OptionalAuth(d.Auth)

	// Auth
	r.Post("/api/auth/signup", auth.Signup)
	r.Post("/api/auth/login", auth.Login)
	r.With(requireAuth).Get("/api/auth/me", auth.Me)
	r.With(requireAuth).Put("/api/auth/profile", auth.UpdateProfile)
	r.With(requireAuth).Put("/api/auth/password", auth.ChangePassword)

	// Orders
	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", orders.List)
		r.With(requireAuth).Get("/me", orders.Mine)
		r.With(optionalAuth).Post("/", orders.Create)
		r.With(optionalAuth, middleware.OrderLookupRateLimit()).Get("/{id}", orders.Get)
		r.Put("/{id}", orders.Update)
		r.Put("/{id}/status", orders.UpdateStatus)
		r.Delete("/{id}", orders.Delete)
	})

	// Realtime order events
	r.Get("/ws/orders", realtime.Serve)
}
