package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getDeal retrieves one catalog deal by ID.
// GET /api/v1/deals/:id
func (r *Router) getDeal(c *gin.Context) {
	id, ok := parseUUID(c, "id", "deal")
	if !ok {
		return
	}

	deal, err := r.repo.GetDealByID(c.Request.Context(), id)
	if err != nil {
		handleRepositoryError(c, err, "deal", "get")
		return
	}

	c.JSON(http.StatusOK, deal)
}
