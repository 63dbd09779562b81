package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dealwire/social-engine/internal/engine"
	"github.com/dealwire/social-engine/internal/logger"
)

// runCycle triggers a manual posting cycle and returns its outcome.
// Manual triggers bypass the next-run and quiet-hours gates but still honor
// the master enabled flag.
// POST /api/v1/cycle/run
func (r *Router) runCycle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), manualCycleTimeout)
	defer cancel()

	outcome, err := r.runner.RunCycle(ctx, engine.TriggerManual)
	if err != nil {
		r.logger.Error("manual cycle failed",
			logger.Error(err),
			logger.String("path", c.Request.URL.Path),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Cycle failed before selection: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, outcome)
}
