package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealwire/social-engine/internal/models"
)

// listHistory returns post history entries, newest first.
// GET /api/v1/history?platform=telegram&deal_id=...&limit=50
func (r *Router) listHistory(c *gin.Context) {
	var filter models.PostHistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	entries, err := r.repo.ListPostHistory(c.Request.Context(), &filter)
	if err != nil {
		handleRepositoryError(c, err, "post history", "list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": entries,
		"count":   len(entries),
	})
}
