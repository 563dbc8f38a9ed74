package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"asset-booking-backend/internal/model"
	"asset-booking-backend/internal/risk"
	"asset-booking-backend/internal/store"
)

// ListResources handles GET /api/resources.
func (h *Handler) ListResources(c *gin.Context) {
	f := store.Filter{
		Kind:     model.Kind(c.Query("kind")),
		Status:   model.Status(c.Query("status")),
		Size:     c.Query("size"),
		Platform: c.Query("platform"),
		Query:    c.Query("q"),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind " + strconv.Quote(string(f.Kind))})
		return
	}
	switch f.Status {
	case "", model.StatusAvailable, model.StatusOccupied, model.StatusMaintenance:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + strconv.Quote(string(f.Status))})
		return
	}

	resources, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resources)
}

// GetResource handles GET /api/resources/:id.
func (h *Handler) GetResource(c *gin.Context) {
	r, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// GetResourceRisk handles GET /api/resources/:id/risk.
func (h *Handler) GetResourceRisk(c *gin.Context) {
	r, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resourceId": r.ID, "score": risk.Score(r, h.now())})
}

// GetRisk handles GET /api/risk, ranking resources above ?min (or the
// configured threshold).
func (h *Handler) GetRisk(c *gin.Context) {
	threshold := h.riskThreshold
	if raw := c.Query("min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > risk.MaxScore {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min must be an integer between 0 and 100"})
			return
		}
		threshold = n
	}

	resources, err := h.repo.List(c.Request.Context(), store.Filter{Kind: model.Kind(c.Query("kind"))})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, risk.Rank(resources, h.now(), threshold))
}
