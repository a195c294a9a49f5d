package services

import (
	"context"
	"fmt"

	"github.com/babysphere/backend/internal/kafka"
	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
)

// KafkaHandler feeds readings consumed from Kafka into the ingest pipeline
type KafkaHandler struct {
	logger       *utils.Logger
	kafkaManager *kafka.Manager
	ingest       *IngestService
}

// NewKafkaHandler creates a new Kafka message handler service
func NewKafkaHandler(logger *utils.Logger, kafkaManager *kafka.Manager, ingest *IngestService) *KafkaHandler {
	return &KafkaHandler{
		logger:       logger.Named("kafka_handler"),
		kafkaManager: kafkaManager,
		ingest:       ingest,
	}
}

// Initialize registers the readings consumer
func (h *KafkaHandler) Initialize() error {
	if err := h.kafkaManager.RegisterReadingHandler("ingest", h.HandleReading); err != nil {
		return fmt.Errorf("failed to register reading handler: %w", err)
	}
	return nil
}

// HandleReading ingests one reading message. The message key names the
// device when the payload does not. A returned error sends the message to
// the dead letter topic.
func (h *KafkaHandler) HandleReading(ctx context.Context, key string, payload []byte) error {
	result, err := h.ingest.IngestPayload(ctx, payload, SourceKafka, key)
	if err != nil {
		return fmt.Errorf("failed to ingest reading: %w", err)
	}

	h.logger.Debug("Processed reading from Kafka",
		zap.String("reading_id", result.Reading.ID),
		zap.String("device_id", result.Reading.DeviceID),
		zap.Int("alerts", len(result.Alerts)))
	return nil
}
