package controllers

import (
	"net/http"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/services"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SeriesRequest defines the query parameters for a chart series
type SeriesRequest struct {
	Metric    string `form:"metric" binding:"required"`
	Timeframe string `form:"timeframe" binding:"omitempty,oneof=raw hourly daily weekly"`
	Date      string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	MaxPoints int    `form:"max_points" binding:"omitempty,min=1,max=500"`
}

// HistoryController serves chart series built from stored readings
type HistoryController struct {
	historyService *services.HistoryService
	logger         *utils.Logger
}

// NewHistoryController creates a new history controller
func NewHistoryController(historyService *services.HistoryService, logger *utils.Logger) *HistoryController {
	return &HistoryController{
		historyService: historyService,
		logger:         logger.Named("history_controller"),
	}
}

// RegisterRoutes registers the history routes
func (c *HistoryController) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/series", c.GetSeries)
}

// GetSeries returns an aggregated, downsampled chart series for one metric
// @Summary Get a chart series
// @Description Aggregates one metric over the window charted for a date and timeframe
// @Tags history
// @Produce json
// @Security Bearer
// @Param metric query string true "baby_temperature, ambient_temperature, humidity, spo2 or heart_rate"
// @Param timeframe query string false "raw, hourly, daily or weekly" default(raw)
// @Param date query string false "Day in the display time zone (YYYY-MM-DD), defaults to today"
// @Param max_points query int false "Number of buckets to keep, defaults to the configured budget"
// @Success 200 {object} aggregation.ChartSeries "Chart series"
// @Failure 400 {object} utils.ValidationErrorResponse "Invalid query"
// @Failure 500 {object} utils.ErrorResponse "Server error"
// @Router /history/series [get]
func (c *HistoryController) GetSeries(ctx *gin.Context) {
	var req SeriesRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	metric, err := sensor.ParseMetricKind(req.Metric)
	if err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	date, err := parseDate(req.Date, c.historyService.Location())
	if err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	series, err := c.historyService.Series(ctx.Request.Context(), services.SeriesQuery{
		Metric:    metric,
		Timeframe: timeframeOrRaw(req.Timeframe),
		Date:      date,
		MaxPoints: req.MaxPoints,
	})
	if err != nil {
		c.logger.Error("Failed to build series",
			zap.String("metric", req.Metric),
			zap.String("timeframe", req.Timeframe),
			zap.Error(err))
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": series})
}
