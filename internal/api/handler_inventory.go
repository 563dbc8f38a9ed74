package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"asset-booking-backend/internal/inventory"
	"asset-booking-backend/internal/metrics"
	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/mw"
)

func kindParam(c *gin.Context) (model.Kind, bool) {
	kind := model.Kind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind " + strconv.Quote(string(kind))})
		return "", false
	}
	return kind, true
}

// ImportInventory handles PUT /api/inventory/:kind, replacing every resource
// of that kind with the posted rows.
func (h *Handler) ImportInventory(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	var rows []inventory.Row
	if !bindRequiredJSON(c, &rows) {
		return
	}
	start := time.Now()
	rep, err := h.inventory.Import(c.Request.Context(), mw.ActorFrom(c), kind, rows)
	metrics.Observe("import", start, err)
	if err != nil {
		respondError(c, err)
		return
	}
	h.recount(c)
	h.available(rep.Freed...)
	c.JSON(http.StatusOK, rep)
}

// ExportInventory handles GET /api/inventory/:kind.
func (h *Handler) ExportInventory(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	rows, err := h.inventory.Export(c.Request.Context(), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
