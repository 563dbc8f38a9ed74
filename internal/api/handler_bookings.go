package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"asset-booking-backend/internal/booking"
	"asset-booking-backend/internal/metrics"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/mw"
)

type bookRequest struct {
	model.BookingDraft
	ExpectedVersion   int64  `json:"expectedVersion"`
	BindCounterpartID string `json:"bindCounterpartId"`
}

// Book handles POST /api/resources/:id/book.
func (h *Handler) Book(c *gin.Context) {
	var req bookRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	start := time.Now()
	res, err := h.bookings.Book(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), req.BookingDraft, req.ExpectedVersion, req.BindCounterpartID)
	metrics.Observe("book", start, err)
	if res.Resource.ID != "" {
		h.recount(c)
	}
	respondCommand(c, err, res.Resource, res)
}

type releaseRequest struct {
	ExpectedVersion          int64 `json:"expectedVersion"`
	ReturnConditionConfirmed bool  `json:"returnConditionConfirmed"`
}

// Release handles POST /api/resources/:id/release.
func (h *Handler) Release(c *gin.Context) {
	var req releaseRequest
	if !bindJSON(c, &req) {
		return
	}
	start := time.Now()
	res, err := h.bookings.Release(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), req.ExpectedVersion, req.ReturnConditionConfirmed)
	metrics.Observe("release", start, err)
	if res.Resource.ID != "" {
		h.recount(c)
		h.available(freed(res)...)
	}
	respondCommand(c, err, res.Resource, res)
}

func freed(res booking.Result) []string {
	ids := []string{}
	if res.Resource.ID != "" {
		ids = append(ids, res.Resource.ID)
	}
	if res.Counterpart != nil {
		ids = append(ids, res.Counterpart.ID)
	}
	return ids
}

type conflictsRequest struct {
	ExpectedVersion int64    `json:"expectedVersion"`
	Conflicts       []string `json:"conflicts"`
}

// RecordConflicts handles PUT /api/resources/:id/conflicts.
func (h *Handler) RecordConflicts(c *gin.Context) {
	var req conflictsRequest
	if !bindJSON(c, &req) {
		return
	}
	start := time.Now()
	r, err := h.bookings.RecordConflicts(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), req.ExpectedVersion, req.Conflicts)
	metrics.Observe("record_conflicts", start, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
