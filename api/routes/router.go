package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/flashback-frames-backend/api/controllers"
	"github.com/angelmondragon/flashback-frames-backend/api/middleware"
	"github.com/angelmondragon/flashback-frames-backend/internal/auth"
	"github.com/angelmondragon/flashback-frames-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/flashback-frames-backend/internal/checkout"
	"github.com/angelmondragon/flashback-frames-backend/internal/orders"
	products "github.com/angelmondragon/flashback-frames-backend/internal/products"
	"github.com/angelmondragon/flashback-frames-backend/pkg/auth/session"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/redis"
)

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Dependencies are the collaborators the HTTP surface is built from. Nil
// stores disable the middleware that needs them.
type Dependencies struct {
	Health      map[string]controllers.Pinger
	Sessions    session.AccessSessionChecker
	Idempotency redis.IdempotencyStore
	RateLimit   rateLimitStore
	Metrics     http.Handler

	Auth     auth.Service
	Products products.Service
	Carts    cart.Service
	Orders   orders.Service
	Checkout checkoutsvc.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	limits := controllers.CheckoutLimits{
		MaxImageBytes: cfg.Media.MaxImageBytes(),
		MaxItems:      cfg.Checkout.MaxItems,
	}
	admin := string(enums.UserRoleAdmin)
	requireAdmin := func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(admin, logg))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, limits.MaxBodyBytes(), logg))

		r.Route("/auth", func(r chi.Router) {
			if deps.RateLimit != nil {
				r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimit, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			} else {
				r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
			}
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
				r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, false, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
			r.Group(func(r chi.Router) {
				requireAdmin(r)
				r.Post("/", controllers.CreateProduct(deps.Products, logg))
				r.Put("/{productId}", controllers.UpdateProduct(deps.Products, logg))
				r.Delete("/{productId}", controllers.DeleteProduct(deps.Products, logg))
			})
		})

		r.Route("/carts/{cartId}", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Carts, logg))
			r.Put("/", controllers.PutCart(deps.Carts, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateCODOrder(deps.Checkout, limits, logg))
			r.Get("/track/{identifier}", controllers.TrackOrder(deps.Orders, logg))
			r.Group(func(r chi.Router) {
				requireAdmin(r)
				r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
				r.Put("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
				r.Delete("/{orderId}", controllers.AdminDeleteOrder(deps.Orders, logg))
			})
		})

		r.Route("/payment", func(r chi.Router) {
			r.Post("/create-order", controllers.CreateHostedSession(deps.Checkout, logg))
			r.Post("/verify-and-create", controllers.VerifyAndCreate(deps.Checkout, limits, logg))
			r.Route("/phonepe", func(r chi.Router) {
				r.Post("/initiate", controllers.InitiateRedirect(deps.Checkout, limits, logg))
				r.Post("/callback", controllers.RedirectCallback(deps.Checkout, logg))
				r.Get("/status/{merchantTransactionId}", controllers.RedirectStatus(deps.Checkout, logg))
			})
		})

		r.Group(func(r chi.Router) {
			requireAdmin(r)
			r.Get("/admin/products", controllers.ListProducts(deps.Products, true, logg))
		})
	})

	return r
}
