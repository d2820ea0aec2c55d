// Package router wires the HTTP routes onto the Echo instance. Routes
// are grouped by surface: public catalog, authenticated booking/user,
// admin, and provider webhooks.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// RegisterRoutes exposes the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterShows registers the show surface. Browse endpoints are public
// and sit behind the Redis response cache; scheduling and the upstream
// now-playing proxy are admin-only.
func RegisterShows(e *echo.Echo, h *handler.ShowHandler, users *repository.UserRepo, jwtSecret string, rdb *redis.Client) {
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	pub := e.Group("/api/show")
	pub.GET("/all", h.ListAll, cache)
	pub.GET("/:movieId", h.Get, cache)

	admin := e.Group("/api/show")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireAdmin(users))
	admin.GET("/now-playing", h.NowPlaying)
	admin.POST("/add", h.Add)
}

// RegisterBookings registers the authenticated booking endpoints. The
// rate limiter fronts the whole group; seat reservation is the hot path
// during an on-sale.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/api/booking")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	g.POST("/create", h.Create)
	g.GET("/seats/:showId", h.OccupiedSeats)
	g.POST("/confirm", h.Confirm)
	g.POST("/refresh/:id", h.Refresh)
}

// RegisterUsers registers the signed-in user's own surface.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, jwtSecret string) {
	g := e.Group("/api/user")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.GET("/bookings", h.Bookings)
	g.POST("/update-favorite", h.ToggleFavorite)
	g.GET("/favorites", h.Favorites)
}

// RegisterAdmin registers the admin dashboard and listings.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, users *repository.UserRepo, jwtSecret string) {
	g := e.Group("/api/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireAdmin(users))
	g.GET("/is-admin", h.IsAdmin)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/all-shows", h.AllShows)
	g.GET("/all-bookings", h.AllBookings)
}

// RegisterWebhooks registers the provider callback endpoints. They are
// unauthenticated; each handler verifies its HMAC signature instead.
func RegisterWebhooks(e *echo.Echo, h *handler.WebhookHandler) {
	e.POST("/api/webhook/payment", h.Payment)
	e.POST("/api/webhook/identity", h.Identity)
}
