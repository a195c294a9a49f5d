package services

import (
	"context"
	"time"

	"github.com/babysphere/backend/internal/db/models"
	"github.com/babysphere/backend/internal/db/repository"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/utils"
)

// ReadingStore persists readings and serves them back by time window
type ReadingStore interface {
	SaveReading(ctx context.Context, r sensor.Reading, source string) error
	SaveReadings(ctx context.Context, readings []sensor.Reading, source string) error
	ReadingsBetween(ctx context.Context, start, end time.Time) ([]sensor.Reading, error)
	ListReadings(ctx context.Context, start, end time.Time, page utils.PaginationRequest) ([]sensor.Reading, int, error)
	LatestReading(ctx context.Context) (*sensor.Reading, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DatabaseReadingStore keeps readings in the relational database
type DatabaseReadingStore struct {
	readings repository.ReadingRepository
}

// NewDatabaseReadingStore creates a reading store backed by repo
func NewDatabaseReadingStore(repo repository.ReadingRepository) *DatabaseReadingStore {
	return &DatabaseReadingStore{readings: repo}
}

func (s *DatabaseReadingStore) SaveReading(ctx context.Context, r sensor.Reading, source string) error {
	return s.readings.Insert(ctx, models.NewSensorReading(r, source))
}

func (s *DatabaseReadingStore) SaveReadings(ctx context.Context, readings []sensor.Reading, source string) error {
	rows := make([]models.SensorReading, len(readings))
	for i, r := range readings {
		rows[i] = *models.NewSensorReading(r, source)
	}
	return s.readings.InsertBatch(ctx, rows)
}

func (s *DatabaseReadingStore) ReadingsBetween(ctx context.Context, start, end time.Time) ([]sensor.Reading, error) {
	rows, err := s.readings.FindBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return toReadings(rows), nil
}

func (s *DatabaseReadingStore) ListReadings(ctx context.Context, start, end time.Time, page utils.PaginationRequest) ([]sensor.Reading, int, error) {
	rows, total, err := s.readings.FindPage(ctx, start, end, page)
	if err != nil {
		return nil, 0, err
	}
	return toReadings(rows), int(total), nil
}

func (s *DatabaseReadingStore) LatestReading(ctx context.Context) (*sensor.Reading, error) {
	row, err := s.readings.Latest(ctx)
	if err != nil {
		return nil, err
	}
	r := row.ToReading()
	return &r, nil
}

func (s *DatabaseReadingStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.readings.DeleteBefore(ctx, cutoff)
}

func toReadings(rows []models.SensorReading) []sensor.Reading {
	out := make([]sensor.Reading, len(rows))
	for i := range rows {
		out[i] = rows[i].ToReading()
	}
	return out
}
