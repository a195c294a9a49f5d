package controllers

import (
	"net/http"
	"sort"
	"time"

	"github.com/babysphere/backend/internal/db"
	"github.com/babysphere/backend/internal/services"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthController reports service liveness
type HealthController struct {
	db     *db.Database
	checks map[string]services.HealthCheck
	logger *utils.Logger
}

// NewHealthController creates a new health controller. checks cover optional
// components; their failures degrade the status without failing the probe.
func NewHealthController(database *db.Database, checks map[string]services.HealthCheck, logger *utils.Logger) *HealthController {
	return &HealthController{
		db:     database,
		checks: checks,
		logger: logger.Named("health_controller"),
	}
}

// RegisterRoutes registers the health route
func (c *HealthController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", c.Health)
}

// Health reports whether the service and its dependencies are reachable
// @Summary Health check
// @Description Reports database health and the state of enabled transports
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy or degraded"
// @Failure 503 {object} map[string]interface{} "Database unreachable"
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	if err := c.db.VerifyConnection(); err != nil {
		c.logger.Warn("Health check failed", zap.Error(err))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
			"time":     time.Now().UTC(),
		})
		return
	}

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := c.checks[name](ctx.Request.Context()); err != nil {
			c.logger.Warn("Component unhealthy", zap.String("component", name), zap.Error(err))
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":     status,
		"database":   "ok",
		"components": components,
		"time":       time.Now().UTC(),
	})
}
