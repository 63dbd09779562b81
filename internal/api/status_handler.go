package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getStatus returns the scheduler state alongside the settings that govern
// the next cycle.
// GET /api/v1/status
func (r *Router) getStatus(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := r.repo.GetSchedulerState(ctx)
	if err != nil {
		handleRepositoryError(c, err, "scheduler state", "get")
		return
	}

	settings, err := r.repo.GetSettings(ctx)
	if err != nil {
		handleRepositoryError(c, err, "settings", "get")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":           settings.Enabled,
		"interval_minutes":  settings.IntervalMinutes,
		"enabled_platforms": settings.EnabledPlatforms,
		"state":             state,
	})
}

// getSettings returns the full engine settings record.
// GET /api/v1/settings
func (r *Router) getSettings(c *gin.Context) {
	settings, err := r.repo.GetSettings(c.Request.Context())
	if err != nil {
		handleRepositoryError(c, err, "settings", "get")
		return
	}

	c.JSON(http.StatusOK, settings)
}
