package repository

import (
	"context"
	"time"

	"github.com/babysphere/backend/internal/db/models"
	"github.com/babysphere/backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReadingRepository defines operations on stored sensor readings
type ReadingRepository interface {
	Repository
	Insert(ctx context.Context, reading *models.SensorReading) error
	InsertBatch(ctx context.Context, readings []models.SensorReading) error
	FindBetween(ctx context.Context, start, end time.Time) ([]models.SensorReading, error)
	FindPage(ctx context.Context, start, end time.Time, page utils.PaginationRequest) ([]models.SensorReading, int64, error)
	Latest(ctx context.Context) (*models.SensorReading, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// readingRepository implements ReadingRepository
type readingRepository struct {
	BaseRepository
}

// NewReadingRepository creates a new reading repository
func NewReadingRepository(db *gorm.DB) ReadingRepository {
	return &readingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Insert stores a reading; a duplicate (time, id) is ignored
func (r *readingRepository) Insert(ctx context.Context, reading *models.SensorReading) error {
	err := r.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reading).Error
	return r.handleError(err)
}

// InsertBatch stores readings in one transaction
func (r *readingRepository) InsertBatch(ctx context.Context, readings []models.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}

	err := r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(readings, 100).Error
	})
	return r.handleError(err)
}

// FindBetween returns readings in [start, end), oldest first
func (r *readingRepository) FindBetween(ctx context.Context, start, end time.Time) ([]models.SensorReading, error) {
	var readings []models.SensorReading

	err := r.GetDB().WithContext(ctx).
		Where("time >= ? AND time < ?", start.UTC(), end.UTC()).
		Order("time ASC").
		Find(&readings).Error

	return readings, r.handleError(err)
}

// FindPage returns one page of readings in [start, end), newest first, plus the total count
func (r *readingRepository) FindPage(ctx context.Context, start, end time.Time, page utils.PaginationRequest) ([]models.SensorReading, int64, error) {
	var (
		readings []models.SensorReading
		total    int64
	)

	window := func() *gorm.DB {
		return r.GetDB().WithContext(ctx).
			Model(&models.SensorReading{}).
			Where("time >= ? AND time < ?", start.UTC(), end.UTC())
	}

	if err := window().Count(&total).Error; err != nil {
		return nil, 0, r.handleError(err)
	}

	err := utils.ApplyPagination(window().Order("time DESC"), page).Find(&readings).Error
	return readings, total, r.handleError(err)
}

// Latest returns the most recent reading
func (r *readingRepository) Latest(ctx context.Context) (*models.SensorReading, error) {
	var reading models.SensorReading

	err := r.GetDB().WithContext(ctx).Order("time DESC").First(&reading).Error
	if err != nil {
		return nil, r.handleError(err)
	}

	return &reading, nil
}

// DeleteBefore removes readings older than cutoff
func (r *readingRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.GetDB().WithContext(ctx).Where("time < ?", cutoff.UTC()).Delete(&models.SensorReading{})
	return result.RowsAffected, r.handleError(result.Error)
}
