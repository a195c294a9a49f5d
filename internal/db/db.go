package db

import (
	"fmt"
	"time"

	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/db/models"
	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps a GORM DB connection with additional functionality
type Database struct {
	*gorm.DB
	logger *utils.Logger
}

// NewDatabase connects to PostgreSQL
func NewDatabase(cfg *config.DatabaseConfig, log *utils.Logger) (*Database, error) {
	dbLogger := log.Named("database")

	dbLogger.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("dbname", cfg.DBName),
		zap.String("user", cfg.User),
	)

	gdb, err := gorm.Open(postgres.Open(cfg.GetDSN()), gormConfig(dbLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	database := &Database{DB: gdb, logger: dbLogger}

	if err := database.VerifyConnection(); err != nil {
		return nil, err
	}

	return database, nil
}

// Open wraps an already opened dialector, e.g. sqlite in tests
func Open(dialector gorm.Dialector, log *utils.Logger) (*Database, error) {
	dbLogger := log.Named("database")

	gdb, err := gorm.Open(dialector, gormConfig(dbLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{DB: gdb, logger: dbLogger}, nil
}

func gormConfig(log *utils.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			&logAdapter{logger: log},
			logger.Config{
				SlowThreshold:             1 * time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		SkipDefaultTransaction: true,
	}
}

// VerifyConnection checks if the database connection is working
func (db *Database) VerifyConnection() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db.logger.Info("Successfully connected to database")
	return nil
}

// AutoMigrate creates or updates the schema
func (db *Database) AutoMigrate() error {
	db.logger.Info("Running auto migrations")

	postgresDialect := db.Dialector.Name() == "postgres"

	if postgresDialect {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;").Error; err != nil {
			db.logger.Warn("Failed to create TimescaleDB extension, time-series optimization disabled", zap.Error(err))
		}
	}

	if err := db.DB.AutoMigrate(
		&models.SensorReading{},
		&models.Setting{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}

	if postgresDialect {
		if err := db.CreateHypertables(); err != nil {
			db.logger.Warn("Failed to create hypertables", zap.Error(err))
		}
	}

	return nil
}

// CreateHypertables turns the readings table into a TimescaleDB hypertable
func (db *Database) CreateHypertables() error {
	var extensionExists bool
	if err := db.DB.Raw("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'timescaledb');").Scan(&extensionExists).Error; err != nil {
		return fmt.Errorf("failed to check TimescaleDB extension: %w", err)
	}

	if !extensionExists {
		return fmt.Errorf("TimescaleDB extension not installed")
	}

	table := models.SensorReading{}.TableName()

	var hypertableExists bool
	if err := db.DB.Raw("SELECT EXISTS(SELECT 1 FROM timescaledb_information.hypertables WHERE hypertable_name = ?);", table).Scan(&hypertableExists).Error; err != nil {
		return fmt.Errorf("failed to check if hypertable exists for %s: %w", table, err)
	}

	if !hypertableExists {
		if err := db.DB.Exec(fmt.Sprintf("SELECT create_hypertable('%s', 'time', migrate_data => true);", table)).Error; err != nil {
			return fmt.Errorf("failed to create hypertable for %s: %w", table, err)
		}
		db.logger.Info("Created hypertable", zap.String("table", table))
	}

	return nil
}

// Close closes the database connection
func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	db.logger.Info("Database connection closed")
	return nil
}

// logAdapter adapts our logger to GORM's logger interface
type logAdapter struct {
	logger *utils.Logger
}

// Printf implements GORM's logger interface
func (l *logAdapter) Printf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}
