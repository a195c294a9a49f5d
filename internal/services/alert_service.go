package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
)

// AlertService serializes access to the alert evaluator and dispatches
// notifications for fired alerts
type AlertService struct {
	mu        sync.Mutex
	evaluator *alerting.Evaluator
	notifier  alerting.Notifier
	events    Broadcaster
	title     string
	logger    *utils.Logger
}

// SystemEvent tells live clients that shared alert state changed
type SystemEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// System event names
const (
	EventThresholdsUpdated   = "thresholds_updated"
	EventAlertHistoryCleared = "alert_history_cleared"
)

// NewAlertService creates an alert service persisting through store
func NewAlertService(store alerting.Store, cfg *config.AlertsConfig, notifier alerting.Notifier, logger *utils.Logger) *AlertService {
	return &AlertService{
		evaluator: alerting.NewEvaluator(store, alerting.Options{HistoryLimit: cfg.HistoryLimit}),
		notifier:  notifier,
		title:     cfg.NotificationTitle,
		logger:    logger.Named("alert_service"),
	}
}

// WithEvents announces threshold and history changes on the system topic
func (s *AlertService) WithEvents(b Broadcaster) *AlertService {
	s.events = b
	return s
}

func (s *AlertService) announce(event string, data interface{}) {
	if s.events != nil {
		s.events.Broadcast(TopicSystem, NotificationTypeSystemEvent, SystemEvent{Event: event, Data: data})
	}
}

// Load restores thresholds and history. Failures are logged and the
// defaults stay in effect.
func (s *AlertService) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.evaluator.Load(ctx); err != nil {
		s.logger.Warn("Failed to restore alert state, using defaults", zap.Error(err))
	}
}

// Evaluate checks every metric of r and returns the alerts that fired
func (s *AlertService) Evaluate(ctx context.Context, r sensor.Reading) []alerting.Event {
	s.mu.Lock()
	events, err := s.evaluator.EvaluateReading(ctx, r)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("Failed to persist alert history",
			zap.String("reading_id", r.ID),
			zap.Error(err))
	}

	for _, event := range events {
		s.logger.Info("Alert fired",
			zap.String("alert_id", event.ID),
			zap.String("metric", string(event.Metric)),
			zap.Float64("value", event.Value),
			zap.String("direction", string(event.Direction)))
		s.dispatch(ctx, event)
	}

	return events
}

func (s *AlertService) dispatch(ctx context.Context, event alerting.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, alerting.NewNotification(s.title, event)); err != nil {
		s.logger.Error("Failed to deliver alert notification",
			zap.String("alert_id", event.ID),
			zap.Error(err))
	}
}

// Thresholds returns the active threshold configuration
func (s *AlertService) Thresholds() alerting.ThresholdConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluator.Thresholds()
}

// UpdateThresholds installs cfg. Invalid configurations are rejected with an
// error wrapping utils.ErrValidation. A failure to persist cfg is logged; the
// new configuration stays in effect either way.
func (s *AlertService) UpdateThresholds(ctx context.Context, cfg alerting.ThresholdConfig) error {
	s.mu.Lock()
	err := s.evaluator.UpdateThresholds(ctx, cfg)
	s.mu.Unlock()

	switch {
	case err == nil:
		s.logger.Info("Alert thresholds updated", zap.Int("metrics", len(cfg)))
	case errors.Is(err, alerting.ErrConfigValidation):
		return fmt.Errorf("%w: %w", utils.ErrValidation, err)
	case errors.Is(err, alerting.ErrPersistence):
		s.logger.Warn("Alert thresholds applied but not persisted", zap.Error(err))
	default:
		return err
	}

	s.announce(EventThresholdsUpdated, s.Thresholds())
	return nil
}

// History returns fired alerts, newest first
func (s *AlertService) History() []alerting.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluator.History()
}

// ClearHistory empties the alert history
func (s *AlertService) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	err := s.evaluator.ClearHistory(ctx)
	s.mu.Unlock()

	switch {
	case err == nil:
		s.logger.Info("Alert history cleared")
	case errors.Is(err, alerting.ErrPersistence):
		s.logger.Warn("Alert history cleared but not persisted", zap.Error(err))
	default:
		return err
	}

	s.announce(EventAlertHistoryCleared, nil)
	return nil
}
