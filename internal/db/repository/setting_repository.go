package repository

import (
	"context"
	"time"

	"github.com/babysphere/backend/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository stores JSON blobs by key
type SettingRepository interface {
	Repository
	Get(ctx context.Context, key string) (*models.Setting, error)
	Put(ctx context.Context, key, value string) error
}

// settingRepository implements SettingRepository
type settingRepository struct {
	BaseRepository
}

// NewSettingRepository creates a new settings repository
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Get loads the setting stored under key
func (r *settingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting

	err := r.GetDB().WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, r.handleError(err)
	}

	return &setting, nil
}

// Put overwrites the value stored under key
func (r *settingRepository) Put(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidInput
	}

	setting := models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error

	return r.handleError(err)
}
