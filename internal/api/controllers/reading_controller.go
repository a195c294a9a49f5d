package controllers

import (
	"io"
	"net/http"
	"time"

	"github.com/babysphere/backend/internal/aggregation"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/services"
	"github.com/babysphere/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Request body limits
const (
	maxReadingBodyBytes = 64 << 10
	maxBatchBodyBytes   = 2 << 20
)

// ListReadingsRequest defines the query parameters for listing readings
type ListReadingsRequest struct {
	Date      string `form:"date" binding:"omitempty,datetime=2006-01-02"`
	Timeframe string `form:"timeframe" binding:"omitempty,oneof=raw hourly daily weekly"`
	Window    string `form:"window" binding:"omitempty,oneof=last_hour today last_24_hours last_week"`
}

// ReadingController handles reading ingestion and listing
type ReadingController struct {
	ingestService  *services.IngestService
	historyService *services.HistoryService
	logger         *utils.Logger
}

// NewReadingController creates a new reading controller
func NewReadingController(ingestService *services.IngestService, historyService *services.HistoryService, logger *utils.Logger) *ReadingController {
	return &ReadingController{
		ingestService:  ingestService,
		historyService: historyService,
		logger:         logger.Named("reading_controller"),
	}
}

// RegisterRoutes registers the reading routes
func (c *ReadingController) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("", c.IngestReading)
	router.POST("/batch", c.IngestBatch)
	router.GET("", c.ListReadings)
	router.GET("/latest", c.GetLatestReading)
}

// IngestReading accepts one raw reading document
// @Summary Ingest a reading
// @Description Validates, stores and evaluates one sensor reading. Metric values may be numbers or numeric strings.
// @Tags readings
// @Accept json
// @Produce json
// @Security Bearer
// @Param reading body map[string]interface{} true "Raw reading"
// @Success 202 {object} services.IngestResult "Reading accepted"
// @Failure 400 {object} utils.ErrorResponse "Invalid reading"
// @Router /readings [post]
func (c *ReadingController) IngestReading(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxReadingBodyBytes))
	if err != nil {
		utils.HandleError(ctx, utils.ErrBadRequest, c.logger)
		return
	}

	result, err := c.ingestService.IngestPayload(ctx.Request.Context(), payload, services.SourceHTTP, "")
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"data": result})
}

// IngestBatch accepts a JSON array of raw readings buffered by an offline monitor
// @Summary Ingest a batch of readings
// @Description Validates the whole batch, stores it and evaluates the readings oldest first
// @Tags readings
// @Accept json
// @Produce json
// @Security Bearer
// @Param readings body []map[string]interface{} true "Raw readings"
// @Success 202 {object} services.BatchResult "Batch accepted"
// @Failure 400 {object} utils.ErrorResponse "Invalid batch"
// @Router /readings/batch [post]
func (c *ReadingController) IngestBatch(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxBatchBodyBytes))
	if err != nil {
		utils.HandleError(ctx, utils.ErrBadRequest, c.logger)
		return
	}

	result, err := c.ingestService.IngestBatchPayload(ctx.Request.Context(), payload, services.SourceHTTP, "")
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"data": result})
}

// ListReadings returns stored readings, newest first
// @Summary List readings
// @Description Lists readings in the window charted for a date and timeframe, or in a relative window preset
// @Tags readings
// @Produce json
// @Security Bearer
// @Param date query string false "Day in the display time zone (YYYY-MM-DD), defaults to today"
// @Param timeframe query string false "raw, hourly, daily or weekly" default(raw)
// @Param window query string false "last_hour, today, last_24_hours or last_week; overrides date"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {object} utils.PaginatedResponse "Readings"
// @Failure 400 {object} utils.ValidationErrorResponse "Invalid query"
// @Router /readings [get]
func (c *ReadingController) ListReadings(ctx *gin.Context) {
	var req ListReadingsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.HandleValidationErrors(ctx, err)
		return
	}

	page := utils.GetPaginationFromContext(ctx)

	var (
		readings []sensor.Reading
		total    int
		err      error
	)
	if req.Window != "" {
		readings, total, err = c.historyService.ListReadingsPreset(ctx.Request.Context(), req.Window, page)
	} else {
		date, dateErr := parseDate(req.Date, c.historyService.Location())
		if dateErr != nil {
			utils.HandleValidationErrors(ctx, dateErr)
			return
		}
		readings, total, err = c.historyService.ListReadings(ctx.Request.Context(), date, timeframeOrRaw(req.Timeframe), page)
	}
	if err != nil {
		c.logger.Error("Failed to list readings", zap.Error(err))
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, utils.NewPaginatedResponse(readings, page, total))
}

// GetLatestReading returns the most recent reading
// @Summary Latest reading
// @Tags readings
// @Produce json
// @Security Bearer
// @Success 200 {object} sensor.Reading "Latest reading"
// @Failure 404 {object} utils.ErrorResponse "No readings stored"
// @Router /readings/latest [get]
func (c *ReadingController) GetLatestReading(ctx *gin.Context) {
	reading, err := c.historyService.Latest(ctx.Request.Context())
	if err != nil {
		utils.HandleError(ctx, err, c.logger)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": reading})
}

// parseDate reads a YYYY-MM-DD day in loc; empty means today
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}

func timeframeOrRaw(s string) aggregation.Timeframe {
	if s == "" {
		return aggregation.Raw
	}
	return aggregation.Timeframe(s)
}
