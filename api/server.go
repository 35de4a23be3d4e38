/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. Logger:        zap request logging with a request-scoped logger
  3. Recovery:      Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the frontend
  5. Authenticate:  Session token -> actor in context

ROUTE GROUPS:
  /api/login, /api/logout, /api/me   Sessions
  /api/categories/*                  Categories
  /api/customers/*                   Customers
  /api/products/*                    Products and stock
  /api/users/*                       Accounts
  /api/logs/*                        Ledger corrections
  /api/sales/*                       Sales
  /healthz                           Liveness

ACCESS:
  Every route except login, logout and /healthz carries a RequireLevel
  guard, so callers without the level are rejected before the body is
  read. The inventory services check the actor's role again.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/logger"
)

// RouterOptions configures cross-cutting router behavior.
type RouterOptions struct {
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logger.Middleware(opts.Logger))
	r.Use(logger.Recovery(opts.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	r.Use(h.Authenticate)

	r.Get("/healthz", h.Healthz)

	read := RequireLevel(access.LevelRead)
	write := RequireLevel(access.LevelWrite)
	admin := RequireLevel(access.LevelAdmin)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(read).Get("/me", h.Me)

		r.Route("/categories", func(r chi.Router) {
			r.With(read).Get("/", h.ListCategories)
			r.With(admin).Post("/", h.CreateCategory)
			r.With(read).Get("/{id}", h.GetCategory)
			r.With(admin).Patch("/{id}", h.UpdateCategory)
			r.With(admin).Delete("/{id}", h.DeleteCategory)
		})

		r.Route("/customers", func(r chi.Router) {
			r.With(read).Get("/", h.ListCustomers)
			r.With(write).Post("/", h.CreateCustomer)
			r.With(read).Get("/{id}", h.GetCustomer)
			r.With(write).Patch("/{id}", h.UpdateCustomer)
			r.With(admin).Delete("/{id}", h.DeleteCustomer)
		})

		r.Route("/products", func(r chi.Router) {
			r.With(read).Get("/", h.ListProducts)
			r.With(write).Post("/", h.CreateProduct)
			r.With(read).Get("/{id}", h.GetProduct)
			r.With(read).Get("/{id}/stock", h.GetStock)
			r.With(write).Patch("/{id}", h.UpdateProduct)
			r.With(admin).Delete("/{id}", h.DeleteProduct)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(read).Get("/", h.ListUsers)
			r.With(admin).Post("/", h.CreateUser)
			r.With(read).Get("/{id}", h.GetUser)
			r.With(admin).Patch("/{id}", h.UpdateUser)
			r.With(admin).Delete("/{id}", h.DeleteUser)
		})

		r.Route("/logs", func(r chi.Router) {
			r.With(read).Get("/", h.ListLogs)
			r.With(admin).Post("/", h.CreateLog)
			r.With(read).Get("/{id}", h.GetLog)
			r.With(admin).Patch("/{id}", h.UpdateLog)
			r.With(admin).Delete("/{id}", h.DeleteLog)
		})

		r.Route("/sales", func(r chi.Router) {
			r.With(read).Get("/", h.ListSales)
			r.With(write).Post("/", h.CreateSale)
			r.With(read).Get("/{id}", h.GetSale)
			r.With(admin).Delete("/{id}", h.DeleteSale)
		})
	})

	return r
}
