package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reading sources recorded with each stored reading
const (
	SourceHTTP  = "http"
	SourceMQTT  = "mqtt"
	SourceKafka = "kafka"
)

const readingSchemaName = "reading"

// MaxBatchSize bounds how many readings one batch upload may carry
const MaxBatchSize = 500

// Broadcaster pushes live messages to connected clients
type Broadcaster interface {
	Broadcast(topic string, notificationType NotificationType, payload interface{})
}

// IngestResult describes what happened to one ingested reading
type IngestResult struct {
	Reading sensor.Reading   `json:"reading"`
	Stored  bool             `json:"stored"`
	Alerts  []alerting.Event `json:"alerts"`
}

// BatchResult describes an ingested batch of readings
type BatchResult struct {
	Accepted int              `json:"accepted"`
	Stored   bool             `json:"stored"`
	Alerts   []alerting.Event `json:"alerts"`
}

// IngestService is the single entry point for readings from every transport
type IngestService struct {
	store       ReadingStore
	alerts      *AlertService
	broadcaster Broadcaster
	schema      *utils.JSONSchemaValidator
	now         func() time.Time
	logger      *utils.Logger
}

// NewIngestService creates an ingest service. broadcaster may be nil.
func NewIngestService(store ReadingStore, alerts *AlertService, broadcaster Broadcaster, logger *utils.Logger) (*IngestService, error) {
	schema, err := readingSchema()
	if err != nil {
		return nil, err
	}

	validator := utils.NewJSONSchemaValidator()
	if err := validator.LoadSchema(readingSchemaName, schema); err != nil {
		return nil, err
	}

	return &IngestService{
		store:       store,
		alerts:      alerts,
		broadcaster: broadcaster,
		schema:      validator,
		now:         time.Now,
		logger:      logger.Named("ingest_service"),
	}, nil
}

func readingSchema() (string, error) {
	builder := utils.NewJSONSchemaBuilder().
		SetTitle("Sensor reading").
		AddProperty("id", false, "string").
		AddProperty("device_id", false, "string").
		AddProperty("deviceId", false, "string").
		AddProperty("timestamp", false, "string", "number")

	for _, name := range sensor.WireFieldNames() {
		builder.AddProperty(name, false, "number", "string", "null")
	}

	return builder.Build()
}

// IngestPayload validates and normalizes a raw JSON reading, then ingests it.
// deviceID is used when the payload does not name its device.
func (s *IngestService) IngestPayload(ctx context.Context, payload []byte, source, deviceID string) (*IngestResult, error) {
	reading, err := s.decode(payload, deviceID)
	if err != nil {
		return nil, err
	}

	return s.Ingest(ctx, reading, source)
}

// Ingest stores r, evaluates it for alerts and pushes it to live clients.
// A storage failure is logged and does not stop alert evaluation.
func (s *IngestService) Ingest(ctx context.Context, r sensor.Reading, source string) (*IngestResult, error) {
	r, err := s.prepare(r)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{Reading: r}

	if err := s.store.SaveReading(ctx, r, source); err != nil {
		s.logger.Error("Failed to store reading",
			zap.String("reading_id", r.ID),
			zap.String("device_id", r.DeviceID),
			zap.String("source", source),
			zap.Error(err))
	} else {
		result.Stored = true
	}

	result.Alerts = s.alerts.Evaluate(ctx, r)
	if result.Alerts == nil {
		result.Alerts = []alerting.Event{}
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(TopicReadings, NotificationTypeReading, r)
	}

	s.logger.Debug("Reading ingested",
		zap.String("reading_id", r.ID),
		zap.String("device_id", r.DeviceID),
		zap.String("source", source),
		zap.Int("alerts", len(result.Alerts)))

	return result, nil
}

// IngestBatchPayload ingests a JSON array of raw readings, as uploaded by a
// monitor that buffered samples while offline. The batch is rejected whole
// when any element is invalid. Readings are evaluated oldest first and only
// the newest one is pushed to live clients.
func (s *IngestService) IngestBatchPayload(ctx context.Context, payload []byte, source, deviceID string) (*BatchResult, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, utils.NewErrorWithCode(fmt.Errorf("%w: batch must be a JSON array: %v", utils.ErrValidation, err), "invalid_batch")
	}
	if len(items) == 0 {
		return nil, utils.NewErrorWithCode(fmt.Errorf("%w: batch is empty", utils.ErrValidation), "empty_batch")
	}
	if len(items) > MaxBatchSize {
		return nil, utils.NewErrorWithCode(
			fmt.Errorf("%w: batch carries %d readings, at most %d allowed", utils.ErrValidation, len(items), MaxBatchSize),
			"batch_too_large")
	}

	readings := make([]sensor.Reading, 0, len(items))
	for i, item := range items {
		r, err := s.decode(item, deviceID)
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		if r, err = s.prepare(r); err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		readings = append(readings, r)
	}
	sensor.SortByTimestamp(readings)

	logger := s.logger.With(zap.String("source", source), zap.Int("readings", len(readings)))
	result := &BatchResult{Accepted: len(readings), Alerts: []alerting.Event{}}

	if err := s.store.SaveReadings(ctx, readings, source); err != nil {
		logger.Error("Failed to store reading batch", zap.Error(err))
	} else {
		result.Stored = true
	}

	for _, r := range readings {
		result.Alerts = append(result.Alerts, s.alerts.Evaluate(ctx, r)...)
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(TopicReadings, NotificationTypeReading, readings[len(readings)-1])
	}

	logger.Info("Reading batch ingested", zap.Int("alerts", len(result.Alerts)))
	return result, nil
}

// decode validates one raw reading against the schema and normalizes it
func (s *IngestService) decode(payload []byte, deviceID string) (sensor.Reading, error) {
	if err := s.schema.ValidateBytes(readingSchemaName, payload); err != nil {
		return sensor.Reading{}, utils.NewErrorWithCode(err, "invalid_reading")
	}

	reading, err := sensor.Decode(payload, s.now().UTC())
	if err != nil {
		return sensor.Reading{}, utils.NewErrorWithCode(fmt.Errorf("%w: %v", utils.ErrValidation, err), "invalid_reading")
	}

	if reading.DeviceID == "" {
		reading.DeviceID = deviceID
	}
	return reading, nil
}

// prepare rejects empty readings and fills in the id and timestamp
func (s *IngestService) prepare(r sensor.Reading) (sensor.Reading, error) {
	if len(sensor.Metrics(r)) == 0 {
		return r, utils.NewErrorWithCode(fmt.Errorf("%w: reading carries no metric values", utils.ErrValidation), "empty_reading")
	}

	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return r, fmt.Errorf("failed to generate reading id: %w", err)
		}
		r.ID = id.String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}
	r.Timestamp = r.Timestamp.UTC()
	return r, nil
}
