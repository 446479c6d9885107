package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework handles routing
	"github.com/redis/go-redis/v9"

	"github.com/jainya01/CRM-sub000/internal/config"
	"github.com/jainya01/CRM-sub000/internal/handler"
	"github.com/jainya01/CRM-sub000/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance. Currently it exposes only a health
// check used by load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Unauthenticated
// operations live under /v1/auth; the protected /v1/me endpoint sits
// on the main group built by RegisterAPI.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register) // create account + token pair
	g.POST("/login", a.Login)       // exchange credentials for tokens
	g.POST("/refresh", a.Refresh)   // rotate the refresh token
	g.POST("/logout", a.Logout)     // revoke a refresh token (no JWT needed)
}

// RegisterAPI wires the protected back office surface: stock
// inventory, the sale ledger and the dashboard. Every route requires
// a valid access token and one of the back office roles. Sale
// creation is additionally open to agents; inventory mutation is
// reserved for admin and staff.
func RegisterAPI(e *echo.Echo, cfg config.Config, rdb *redis.Client,
	a *handler.AuthHandler, st *handler.StockHandler, sa *handler.SaleHandler, d *handler.DashboardHandler) {

	api := e.Group("/v1")
	api.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)) // distributed rate limit
	api.Use(middleware.JWTAuth(cfg.JWTSecret))                           // access token check
	api.Use(middleware.RequireRole("ADMIN", "STAFF", "AGENT"))           // any back office role

	api.GET("/me", a.Me)

	// Read endpoints go through the Redis response cache; writes bypass it.
	cacheCfg := config.LoadCacheConfig()
	cached := middleware.ResponseCache(cacheCfg, rdb)

	// Inventory. Mutation requires ADMIN or STAFF.
	staff := middleware.RequireRole("ADMIN", "STAFF")
	api.GET("/stock", st.List, cached)
	api.GET("/stock/sectors", st.Sectors, cached)
	api.GET("/stock/:id", st.Get)
	api.POST("/stock", st.Create, staff)
	api.POST("/stock/import", st.Import, staff)
	api.PUT("/stock/:id", st.Update, staff)
	api.DELETE("/stock/:id", st.Delete, staff)

	// Sale ledger. Any role can record a sale; the allocator guards
	// the seat counts.
	api.POST("/sales", sa.Create)
	api.GET("/sales", sa.List, cached)
	api.GET("/sales/:id", sa.Get)
	api.PUT("/sales/:id", sa.Update, staff)
	api.DELETE("/sales/:id", sa.Delete, staff)

	api.GET("/dashboard/summary", d.Summary, cached)
}
