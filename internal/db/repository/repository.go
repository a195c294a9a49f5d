package repository

import (
	"errors"
	"fmt"

	"github.com/babysphere/backend/internal/utils"
	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrNotFound     = fmt.Errorf("record %w", utils.ErrNotFound)
	ErrInvalidInput = fmt.Errorf("repository: %w", utils.ErrBadRequest)
	ErrDatabase     = errors.New("database error")
)

// Repository defines the basic repository interface
type Repository interface {
	// GetDB returns the underlying database connection
	GetDB() *gorm.DB
}

// BaseRepository provides common functionality for repositories
type BaseRepository struct {
	db *gorm.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *gorm.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the underlying database connection
func (r *BaseRepository) GetDB() *gorm.DB {
	return r.db
}

// handleError converts GORM errors to repository errors
func (r *BaseRepository) handleError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	return fmt.Errorf("%w: %v", ErrDatabase, err)
}
