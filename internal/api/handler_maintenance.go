package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"asset-booking-backend/internal/metrics"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/mw"
)

type versionRequest struct {
	ExpectedVersion int64 `json:"expectedVersion"`
}

// RequestMaintenance handles POST /api/resources/:id/maintenance/plans.
func (h *Handler) RequestMaintenance(c *gin.Context) {
	var draft model.PlanDraft
	if !bindRequiredJSON(c, &draft) {
		return
	}
	start := time.Now()
	r, plan, err := h.maintenance.RequestMaintenance(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), draft)
	metrics.Observe("request_maintenance", start, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": plan, "resource": r})
}

type decisionRequest struct {
	Decision model.PlanStatus `json:"decision" binding:"required"`
	Remarks  string           `json:"remarks"`
}

// DecidePlan handles POST /api/plans/:plan_id/decision.
func (h *Handler) DecidePlan(c *gin.Context) {
	var req decisionRequest
	if !bindRequiredJSON(c, &req) {
		return
	}
	start := time.Now()
	r, plan, err := h.maintenance.Decide(c.Request.Context(), mw.ActorFrom(c), c.Param("plan_id"), req.Decision, req.Remarks)
	metrics.Observe("decide", start, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan, "resource": r})
}

// ExecuteMaintenance handles POST /api/resources/:id/maintenance/execute.
func (h *Handler) ExecuteMaintenance(c *gin.Context) {
	var req versionRequest
	if !bindJSON(c, &req) {
		return
	}
	start := time.Now()
	r, err := h.maintenance.ExecuteMaintenance(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), req.ExpectedVersion)
	metrics.Observe("execute_maintenance", start, err)
	if err != nil {
		respondError(c, err)
		return
	}
	h.recount(c)
	h.available(r.ID)
	c.JSON(http.StatusOK, r)
}

// BeginMaintenance handles POST /api/resources/:id/maintenance/begin.
func (h *Handler) BeginMaintenance(c *gin.Context) {
	var req versionRequest
	if !bindJSON(c, &req) {
		return
	}
	start := time.Now()
	r, err := h.maintenance.BeginMaintenance(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), req.ExpectedVersion)
	metrics.Observe("begin_maintenance", start, err)
	if err != nil {
		respondError(c, err)
		return
	}
	h.recount(c)
	c.JSON(http.StatusOK, r)
}

// LogMaintenanceEvent handles POST /api/resources/:id/maintenance/log.
func (h *Handler) LogMaintenanceEvent(c *gin.Context) {
	var draft model.LogEntryDraft
	if !bindRequiredJSON(c, &draft) {
		return
	}
	start := time.Now()
	r, err := h.maintenance.LogMaintenanceEvent(c.Request.Context(), mw.ActorFrom(c), c.Param("id"), draft)
	metrics.Observe("log_maintenance", start, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
