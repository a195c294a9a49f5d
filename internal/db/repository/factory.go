package repository

import "gorm.io/gorm"

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	db          *gorm.DB
	readingRepo ReadingRepository
	settingRepo SettingRepository
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(db *gorm.DB) *RepositoryFactory {
	return &RepositoryFactory{
		db: db,
	}
}

// Reading returns the sensor reading repository
func (f *RepositoryFactory) Reading() ReadingRepository {
	if f.readingRepo == nil {
		f.readingRepo = NewReadingRepository(f.db)
	}
	return f.readingRepo
}

// Setting returns the settings repository
func (f *RepositoryFactory) Setting() SettingRepository {
	if f.settingRepo == nil {
		f.settingRepo = NewSettingRepository(f.db)
	}
	return f.settingRepo
}
