package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"asset-booking-backend/internal/booking"
	"asset-booking-backend/internal/inventory"
	"asset-booking-backend/internal/maintenance"
	"asset-booking-backend/internal/metrics"
	"asset-booking-backend/internal/store"
)

// Dispatcher is told about resources that became available.
type Dispatcher interface {
	Dispatch(resourceID string)
}

// Deps are the services the handlers call into.
type Deps struct {
	Repo          store.Repository
	Bookings      *booking.Manager
	Maintenance   *maintenance.Workflow
	Inventory     *inventory.Importer
	DB            *gorm.DB
	Notify        Dispatcher
	WebPush       *webpush.Options
	RiskThreshold int
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	repo          store.Repository
	bookings      *booking.Manager
	maintenance   *maintenance.Workflow
	inventory     *inventory.Importer
	db            *gorm.DB
	notify        Dispatcher
	webpush       *webpush.Options
	riskThreshold int
	now           func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		repo:          d.Repo,
		bookings:      d.Bookings,
		maintenance:   d.Maintenance,
		inventory:     d.Inventory,
		db:            d.DB,
		notify:        d.Notify,
		webpush:       d.WebPush,
		riskThreshold: d.RiskThreshold,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// recount refreshes the pool gauge after a command that may have changed a
// resource status.
func (h *Handler) recount(c *gin.Context) {
	metrics.RefreshResourceCounts(c.Request.Context(), h.repo)
}

// available queues availability notifications for ids.
func (h *Handler) available(ids ...string) {
	if h.notify == nil {
		return
	}
	for _, id := range ids {
		h.notify.Dispatch(id)
	}
}
