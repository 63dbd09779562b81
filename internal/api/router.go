// Package api exposes the engine's admin HTTP surface: manual cycle
// triggers, scheduler status, post history and settings inspection.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dealwire/social-engine/internal/config"
	"github.com/dealwire/social-engine/internal/database"
	"github.com/dealwire/social-engine/internal/engine"
	"github.com/dealwire/social-engine/internal/logger"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	healthCheckTimeout   = 2 * time.Second
	serviceVersion       = "1.0.0"
	manualCycleTimeout   = 2 * time.Minute
)

// CycleRunner is the engine surface the API drives for manual triggers.
type CycleRunner interface {
	RunCycle(ctx context.Context, trig engine.Trigger) (*engine.Outcome, error)
}

// Router holds the API dependencies.
type Router struct {
	repo        *database.Repository
	redisClient *redis.Client
	runner      CycleRunner
	registry    *prometheus.Registry
	cfg         *config.Config
	logger      logger.Logger
}

// NewRouter creates a new API router.
func NewRouter(
	repo *database.Repository,
	redisClient *redis.Client,
	runner CycleRunner,
	registry *prometheus.Registry,
	cfg *config.Config,
	log logger.Logger,
) *Router {
	return &Router{
		repo:        repo,
		redisClient: redisClient,
		runner:      runner,
		registry:    registry,
		cfg:         cfg,
		logger:      log,
	}
}

// SetupRoutes builds the gin engine with all routes and middleware.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(r.cfg.Server.CORSOrigins))

	// Health and metrics are public, no auth.
	router.GET("/healthz", r.healthCheck)
	if r.registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")

	cycle := v1.Group("/cycle")
	cycle.POST("/run", r.runCycle)

	v1.GET("/status", r.getStatus)
	v1.GET("/history", r.listHistory)
	v1.GET("/settings", r.getSettings)
	v1.GET("/deals/:id", r.getDeal)

	return router
}

// healthCheck returns the service health status.
// GET /healthz
func (r *Router) healthCheck(c *gin.Context) {
	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "social-engine",
		"version": serviceVersion,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbConnected := true
	if err := r.repo.Ping(ctx); err != nil {
		dbConnected = false
		health["status"] = healthStatusDegraded
	}
	health["database"] = gin.H{"connected": dbConnected}

	redisConnected := true
	if r.redisClient == nil {
		redisConnected = false
	} else if err := r.redisClient.Ping(ctx).Err(); err != nil {
		redisConnected = false
	}
	if !redisConnected && health["status"] == healthStatusHealthy {
		health["status"] = healthStatusDegraded
	}
	health["redis"] = gin.H{"connected": redisConnected}

	c.JSON(http.StatusOK, health)
}
