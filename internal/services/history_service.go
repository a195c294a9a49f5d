package services

import (
	"context"
	"fmt"
	"time"

	"github.com/babysphere/backend/internal/aggregation"
	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
)

// SeriesQuery selects one chart series
type SeriesQuery struct {
	Metric    sensor.MetricKind
	Timeframe aggregation.Timeframe
	Date      time.Time
	MaxPoints int
}

// HistoryService serves stored readings and chart series
type HistoryService struct {
	store     ReadingStore
	location  *time.Location
	maxPoints int
	now       func() time.Time
	logger    *utils.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(store ReadingStore, cfg *config.MonitorConfig, logger *utils.Logger) *HistoryService {
	return &HistoryService{
		store:     store,
		location:  cfg.Location(),
		maxPoints: cfg.MaxPoints,
		now:       time.Now,
		logger:    logger.Named("history_service"),
	}
}

// Location returns the display time zone
func (s *HistoryService) Location() *time.Location {
	return s.location
}

// Series loads the readings charted for q and aggregates them. A zero Date
// means today; a zero MaxPoints uses the configured budget.
func (s *HistoryService) Series(ctx context.Context, q SeriesQuery) (*aggregation.ChartSeries, error) {
	if !q.Metric.Valid() {
		return nil, fmt.Errorf("%w: unknown metric %q", utils.ErrValidation, q.Metric)
	}
	if q.Timeframe == "" {
		q.Timeframe = aggregation.Raw
	}
	if q.Date.IsZero() {
		q.Date = s.now()
	}
	if q.MaxPoints == 0 {
		q.MaxPoints = s.maxPoints
	}

	start, end := aggregation.Window(q.Date, q.Timeframe, s.location)
	readings, err := s.store.ReadingsBetween(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to load readings for series",
			zap.String("metric", string(q.Metric)),
			zap.String("timeframe", string(q.Timeframe)),
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err))
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	sensor.SortByTimestamp(readings)

	series := aggregation.BuildSeries(readings, aggregation.Options{
		Timeframe: q.Timeframe,
		Metric:    q.Metric,
		MaxPoints: q.MaxPoints,
		Location:  s.location,
	})
	return &series, nil
}

// ListReadings returns one page of the readings charted for date and timeframe, newest first
func (s *HistoryService) ListReadings(ctx context.Context, date time.Time, tf aggregation.Timeframe, page utils.PaginationRequest) ([]sensor.Reading, int, error) {
	if date.IsZero() {
		date = s.now()
	}
	start, end := aggregation.Window(date, tf, s.location)
	return s.ListReadingsBetween(ctx, start, end, page)
}

// ListReadingsPreset returns one page of readings in a named relative window
func (s *HistoryService) ListReadingsPreset(ctx context.Context, preset string, page utils.PaginationRequest) ([]sensor.Reading, int, error) {
	start, end, err := aggregation.PresetWindow(preset, s.now(), s.location)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", utils.ErrValidation, err)
	}
	return s.ListReadingsBetween(ctx, start, end, page)
}

// ListReadingsBetween returns one page of readings in [start, end), newest first
func (s *HistoryService) ListReadingsBetween(ctx context.Context, start, end time.Time, page utils.PaginationRequest) ([]sensor.Reading, int, error) {
	readings, total, err := s.store.ListReadings(ctx, start, end, page)
	if err != nil {
		s.logger.Error("Failed to list readings",
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err))
		return nil, 0, err
	}
	if readings == nil {
		readings = []sensor.Reading{}
	}
	return readings, total, nil
}

// Latest returns the most recent reading
func (s *HistoryService) Latest(ctx context.Context) (*sensor.Reading, error) {
	return s.store.LatestReading(ctx)
}
