package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/babysphere/backend/internal/alerting"
	"github.com/babysphere/backend/internal/db/models"
	"github.com/babysphere/backend/internal/db/repository"
	"github.com/babysphere/backend/internal/utils"
)

// SettingAlertStore persists alert state as JSON blobs in the settings table
type SettingAlertStore struct {
	settings repository.SettingRepository
}

// NewSettingAlertStore creates an alerting.Store over the settings repository
func NewSettingAlertStore(repo repository.SettingRepository) *SettingAlertStore {
	return &SettingAlertStore{settings: repo}
}

func (s *SettingAlertStore) LoadThresholds(ctx context.Context) (alerting.ThresholdConfig, error) {
	var cfg alerting.ThresholdConfig
	if err := s.load(ctx, models.SettingAlertThresholds, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *SettingAlertStore) SaveThresholds(ctx context.Context, cfg alerting.ThresholdConfig) error {
	return s.save(ctx, models.SettingAlertThresholds, cfg)
}

func (s *SettingAlertStore) LoadHistory(ctx context.Context) ([]alerting.Event, error) {
	var events []alerting.Event
	if err := s.load(ctx, models.SettingAlertHistory, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *SettingAlertStore) SaveHistory(ctx context.Context, events []alerting.Event) error {
	if events == nil {
		events = []alerting.Event{}
	}
	return s.save(ctx, models.SettingAlertHistory, events)
}

func (s *SettingAlertStore) load(ctx context.Context, key string, target interface{}) error {
	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return alerting.ErrNoData
		}
		return err
	}

	if err := json.Unmarshal([]byte(setting.Value), target); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

func (s *SettingAlertStore) save(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return s.settings.Put(ctx, key, string(data))
}
