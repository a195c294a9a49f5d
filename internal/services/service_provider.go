package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/db"
	"github.com/babysphere/backend/internal/db/clickhouse"
	"github.com/babysphere/backend/internal/db/repository"
	"github.com/babysphere/backend/internal/kafka"
	"github.com/babysphere/backend/internal/mqtt"
	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
)

// ServiceProvider manages all services for the application
type ServiceProvider struct {
	logger              *utils.Logger
	config              *config.Config
	database            *db.Database
	archive             *clickhouse.Archive
	kafkaManager        *kafka.Manager
	kafkaHandler        *KafkaHandler
	mqttClient          *mqtt.Client
	mqttSubscriber      *mqtt.Subscriber
	alertService        *AlertService
	ingestService       *IngestService
	historyService      *HistoryService
	notificationService *NotificationService
	retentionService    *RetentionService
	cancel              context.CancelFunc
}

// NewServiceProvider creates a new service provider
func NewServiceProvider(
	logger *utils.Logger,
	config *config.Config,
	database *db.Database,
) *ServiceProvider {
	return &ServiceProvider{
		logger:   logger.Named("services"),
		config:   config,
		database: database,
	}
}

// Initialize builds every service and starts the enabled transports
func (sp *ServiceProvider) Initialize(ctx context.Context) error {
	var err error

	runCtx, cancel := context.WithCancel(context.Background())
	sp.cancel = cancel

	repoFactory := repository.NewRepositoryFactory(sp.database.DB)

	sp.notificationService = NewNotificationService(sp.logger)
	sp.logger.Info("Notification service initialized")

	readingStore, err := sp.readingStore(ctx, repoFactory)
	if err != nil {
		return err
	}

	notifiers := alerting.Notifiers{sp.notificationService}
	if sp.config.Kafka.Enabled {
		sp.kafkaManager, err = kafka.NewManager(&sp.config.Kafka, sp.logger)
		if err != nil {
			return fmt.Errorf("failed to create Kafka manager: %w", err)
		}
		notifiers = append(notifiers, sp.kafkaManager)
	}

	sp.alertService = NewAlertService(sp.alertStore(repoFactory), &sp.config.Alerts, notifiers, sp.logger).
		WithEvents(sp.notificationService)
	sp.alertService.Load(ctx)
	sp.logger.Info("Alert service initialized",
		zap.String("store", sp.config.Alerts.Store),
		zap.Int("history_limit", sp.config.Alerts.HistoryLimit))

	sp.ingestService, err = NewIngestService(readingStore, sp.alertService, sp.notificationService, sp.logger)
	if err != nil {
		return fmt.Errorf("failed to create ingest service: %w", err)
	}

	sp.historyService = NewHistoryService(readingStore, &sp.config.Monitor, sp.logger)
	sp.logger.Info("History service initialized",
		zap.String("reading_store", sp.config.Monitor.ReadingStore),
		zap.String("timezone", sp.config.Monitor.Timezone))

	if sp.config.Monitor.RetentionDays > 0 {
		sp.retentionService = NewRetentionService(readingStore, sp.config.Monitor.Retention(), sp.config.Monitor.PruneInterval(), sp.logger)
		sp.retentionService.Start(runCtx)
	}

	if sp.kafkaManager != nil {
		sp.kafkaHandler = NewKafkaHandler(sp.logger, sp.kafkaManager, sp.ingestService)
		if err = sp.kafkaHandler.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize Kafka handler: %w", err)
		}
		if err = sp.kafkaManager.Start(); err != nil {
			return fmt.Errorf("failed to start Kafka manager: %w", err)
		}
		sp.logger.Info("Kafka manager started")
	}

	if sp.config.MQTT.Enabled {
		sp.mqttClient, err = mqtt.NewClient(&sp.config.MQTT, sp.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		sp.mqttSubscriber = mqtt.NewSubscriber(runCtx, sp.mqttClient, sp.handleMQTTReading, sp.logger)
		if err = sp.mqttSubscriber.Subscribe(); err != nil {
			return err
		}
		sp.logger.Info("MQTT subscriber started")
	}

	sp.logger.Info("All services initialized successfully")
	return nil
}

func (sp *ServiceProvider) readingStore(ctx context.Context, repoFactory *repository.RepositoryFactory) (ReadingStore, error) {
	if sp.config.Monitor.ReadingStore != config.StoreClickHouse {
		return NewDatabaseReadingStore(repoFactory.Reading()), nil
	}

	archive, err := clickhouse.NewArchive(ctx, &sp.config.ClickHouse, sp.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse archive: %w", err)
	}
	sp.archive = archive
	return archive, nil
}

func (sp *ServiceProvider) alertStore(repoFactory *repository.RepositoryFactory) alerting.Store {
	if sp.config.Alerts.Store == config.StoreFile {
		return alerting.NewFileStore(sp.config.Alerts.FilePath)
	}
	return NewSettingAlertStore(repoFactory.Setting())
}

func (sp *ServiceProvider) handleMQTTReading(ctx context.Context, deviceID string, payload []byte) error {
	_, err := sp.ingestService.IngestPayload(ctx, payload, SourceMQTT, deviceID)
	if utils.IsValidationError(err) {
		// Redelivery cannot fix a malformed payload
		sp.logger.Warn("Dropped invalid MQTT reading", zap.String("device_id", deviceID), zap.Error(err))
		return nil
	}
	return err
}

// HealthCheck reports whether an optional component is usable
type HealthCheck func(ctx context.Context) error

// HealthChecks returns a check per enabled transport and external store
func (sp *ServiceProvider) HealthChecks() map[string]HealthCheck {
	checks := make(map[string]HealthCheck)

	if sp.kafkaManager != nil {
		checks["kafka"] = func(context.Context) error {
			if !sp.kafkaManager.IsRunning() {
				return errors.New("consumers not running")
			}
			return nil
		}
	}
	if sp.mqttClient != nil {
		checks["mqtt"] = func(context.Context) error {
			if !sp.mqttClient.IsConnected() {
				return errors.New("broker disconnected")
			}
			return nil
		}
	}
	if sp.archive != nil {
		checks["clickhouse"] = sp.archive.Ping
	}

	return checks
}

// Shutdown stops transports and releases connections
func (sp *ServiceProvider) Shutdown() error {
	sp.logger.Info("Shutting down services")

	if sp.cancel != nil {
		sp.cancel()
	}

	if sp.retentionService != nil {
		sp.retentionService.Stop()
	}

	if sp.mqttSubscriber != nil {
		if err := sp.mqttSubscriber.Unsubscribe(); err != nil {
			sp.logger.Error("Failed to unsubscribe from MQTT", zap.Error(err))
		}
	}
	if sp.mqttClient != nil {
		sp.mqttClient.Close()
	}

	if sp.kafkaManager != nil {
		sp.logger.Info("Stopping Kafka manager")
		if err := sp.kafkaManager.Stop(); err != nil {
			sp.logger.Error("Failed to stop Kafka manager", zap.Error(err))
		}
	}

	if sp.notificationService != nil {
		sp.notificationService.Close()
	}

	if sp.archive != nil {
		if err := sp.archive.Close(); err != nil {
			sp.logger.Error("Failed to close ClickHouse archive", zap.Error(err))
		}
	}

	sp.logger.Info("Services shut down successfully")
	return nil
}

// GetKafkaManager returns the Kafka manager, nil when Kafka is disabled
func (sp *ServiceProvider) GetKafkaManager() *kafka.Manager {
	return sp.kafkaManager
}

// GetAlertService returns the alert service
func (sp *ServiceProvider) GetAlertService() *AlertService {
	return sp.alertService
}

// GetIngestService returns the ingest service
func (sp *ServiceProvider) GetIngestService() *IngestService {
	return sp.ingestService
}

// GetHistoryService returns the history service
func (sp *ServiceProvider) GetHistoryService() *HistoryService {
	return sp.historyService
}

// GetNotificationService returns the notification service
func (sp *ServiceProvider) GetNotificationService() *NotificationService {
	return sp.notificationService
}
