package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"asset-booking-backend/internal/metrics"
	"asset-booking-backend/internal/mw"
)

// RouterOptions tune the HTTP middleware.
type RouterOptions struct {
	RateLimit float64
	Burst     int
	CacheTTL  time.Duration
	// Cache is shared with writers outside the router. Nil creates one.
	Cache *cache.Cache
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.Default()

	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	rateLimiter := mw.RateLimiter(rate.Limit(opts.RateLimit), opts.Burst)
	cacheStore := opts.Cache
	if cacheStore == nil {
		cacheStore = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	caching := mw.Cache(cacheStore, opts.CacheTTL)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.Use(mw.Actor(), rateLimiter)
	{
		// Everything that reads or writes resources shares one cache, so a
		// successful command flushes the listings it made stale.
		res := api.Group("")
		res.Use(caching)

		res.GET("/resources", h.ListResources)
		res.GET("/resources/:id", h.GetResource)
		res.GET("/resources/:id/risk", h.GetResourceRisk)
		res.GET("/risk", h.GetRisk)

		res.POST("/resources/:id/book", h.Book)
		res.POST("/resources/:id/release", h.Release)
		res.PUT("/resources/:id/conflicts", h.RecordConflicts)

		res.POST("/resources/:id/maintenance/begin", h.BeginMaintenance)
		res.POST("/resources/:id/maintenance/execute", h.ExecuteMaintenance)
		res.POST("/resources/:id/maintenance/log", h.LogMaintenanceEvent)
		res.POST("/resources/:id/maintenance/plans", h.RequestMaintenance)
		res.POST("/plans/:plan_id/decision", h.DecidePlan)

		res.GET("/inventory/:kind", h.ExportInventory)
		res.PUT("/inventory/:kind", h.ImportInventory)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
