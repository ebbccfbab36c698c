package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/nomadica/circuit-sync/internal/config"
	"github.com/nomadica/circuit-sync/internal/handler"
	"github.com/nomadica/circuit-sync/internal/middleware"
)

// RegisterRoutes registers the health check on the provided Echo
// instance. Load balancers and monitoring probes hit this endpoint to
// verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterOperator registers the operator-facing endpoints: catalog
// management, external source CRUD, manual sync triggers, watchlist
// subscriptions and internal booking records. These live under /v1 and
// are expected to sit behind the operator's private network.
func RegisterOperator(e *echo.Echo, a *handler.AdminHandler, s *handler.SourceHandler, w *handler.WatchlistHandler, b *handler.BookingHandler) {
	g := e.Group("/v1")

	// Catalog management.
	g.POST("/circuits", a.CreateCircuit)
	g.POST("/circuits/:id/departures", a.CreateDeparture)

	// External source CRUD plus a synchronous manual trigger. The
	// trigger runs the same pipeline as the scheduler and returns the
	// sync outcome in the response body.
	g.POST("/sources", s.Create)
	g.GET("/sources", s.List)
	g.GET("/sources/:id", s.Get)
	g.PUT("/sources/:id", s.Update)
	g.DELETE("/sources/:id", s.Delete)
	g.POST("/sources/:id/sync", s.TriggerSync)

	// Agency watchlist subscriptions.
	g.POST("/agencies/:agencyID/watchlist", w.Subscribe)
	g.GET("/agencies/:agencyID/watchlist", w.List)
	g.PATCH("/agencies/:agencyID/watchlist/:circuitID", w.UpdateFlags)
	g.DELETE("/agencies/:agencyID/watchlist/:circuitID", w.Unsubscribe)

	// Bookings made through the operator's own channels.
	g.POST("/departures/:id/bookings", b.RecordBooking)
}

// RegisterPublic registers unauthenticated browse endpoints. These
// return sanitized availability data: sync errors and per-source
// bookkeeping are never exposed here. The routes are cached and rate
// limited when a Redis client is available.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, rdb *redis.Client, rl config.RateLimitConfig, cc config.CacheConfig) {
	g := e.Group("/v1/public")
	g.Use(middleware.NewTokenBucket(rl, rdb))
	g.Use(middleware.NewRedisCache(cc, rdb))

	g.GET("/circuits", p.GetCircuits)
	g.GET("/circuits/:id/departures", p.GetCircuitDepartures)
	g.GET("/departures/:id", p.GetDeparture)
}
