package controllers

import (
	"fmt"
	"net/http"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/services"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gin-gonic/gin"
)

// ThresholdRequest is one metric's safe range. Omitting max makes it one-sided.
type ThresholdRequest struct {
	Min *float64 `json:"min" binding:"required"`
	Max *float64 `json:"max"`
}

// UpdateThresholdsRequest replaces the whole threshold configuration
type UpdateThresholdsRequest struct {
	Thresholds map[string]ThresholdRequest `json:"thresholds" binding:"required,min=1,dive"`
}

// toConfig converts the request into a threshold configuration
func (r UpdateThresholdsRequest) toConfig() (alerting.ThresholdConfig, error) {
	cfg := make(alerting.ThresholdConfig, len(r.Thresholds))
	for name, t := range r.Thresholds {
		kind, err := sensor.ParseMetricKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrValidation, err)
		}
		threshold := alerting.LowerBound(*t.Min)
		if t.Max != nil {
			threshold = alerting.Range(*t.Min, *t.Max)
		}
		cfg[kind] = threshold
	}
	return cfg, nil
}

// AlertController exposes thresholds and alert history
type AlertController struct {
	alertService *services.AlertService
	logger       *utils.Logger
}

// NewAlertController creates a new alert controller
func NewAlertController(alertService *services.AlertService, logger *utils.Logger) *AlertController {
	return &AlertController{
		alertService: alertService,
		logger:       logger.Named("alert_controller"),
	}
}

// RegisterRoutes registers the alert routes
func (c *AlertController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/thresholds", c.GetThresholds)
	router.PUT("/thresholds", c.UpdateThresholds)
	router.GET("/history", c.GetHistory)
	router.DELETE("/history", c.ClearHistory)
}

// GetThresholds returns the active thresholds
// @Summary Get alert thresholds
// @Tags alerts
// @Produce json
// @Security Bearer
// @Success 200 {object} alerting.ThresholdConfig "Active thresholds"
// @Router /alerts/thresholds [get]
func (c *AlertController) GetThresholds(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"data": c.alertService.Thresholds()})
}

// UpdateThresholds replaces the threshold configuration
// @Summary Update alert thresholds
// @Description Replaces all thresholds. Invalid ranges are rejected and the previous configuration stays active.
// @Tags alerts
// @Accept json
// @Produce json
// @Security Bearer
// @Param thresholds body UpdateThresholdsRequest true "New thresholds"
// @Success 200 {object} alerting.ThresholdConfig "Active thresholds"
// @Failure 400 {object} utils.ErrorResponse "Invalid thresholds"
// @Router /alerts/thresholds [put]
func (c *AlertController) UpdateThresholds(ctx *gin.Context) {
	var req UpdateThresholdsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	cfg, err := req.toConfig()
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	if err := c.alertService.UpdateThresholds(ctx.Request.Context(), cfg); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": c.alertService.Thresholds()})
}

// GetHistory returns fired alerts, newest first
// @Summary Get alert history
// @Tags alerts
// @Produce json
// @Security Bearer
// @Success 200 {array} alerting.Event "Alert history"
// @Router /alerts/history [get]
func (c *AlertController) GetHistory(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"data": c.alertService.History()})
}

// ClearHistory empties the alert history
// @Summary Clear alert history
// @Tags alerts
// @Security Bearer
// @Success 204 "History cleared"
// @Router /alerts/history [delete]
func (c *AlertController) ClearHistory(ctx *gin.Context) {
	if err := c.alertService.ClearHistory(ctx.Request.Context()); err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.Status(http.StatusNoContent)
}
