package alerting

import (
	"context"
	"sync"
)

// Store persists the threshold configuration and alert history. Each save
// overwrites the previous value wholesale. Loads return ErrNoData when
// nothing has been saved.
type Store interface {
	LoadThresholds(ctx context.Context) (ThresholdConfig, error)
	SaveThresholds(ctx context.Context, cfg ThresholdConfig) error
	LoadHistory(ctx context.Context) ([]Event, error)
	SaveHistory(ctx context.Context, events []Event) error
}

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu         sync.Mutex
	thresholds ThresholdConfig
	history    []Event
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadThresholds(context.Context) (ThresholdConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.thresholds == nil {
		return nil, ErrNoData
	}
	return s.thresholds.Clone(), nil
}

func (s *MemoryStore) SaveThresholds(_ context.Context, cfg ThresholdConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.thresholds = cfg.Clone()
	return nil
}

func (s *MemoryStore) LoadHistory(context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history == nil {
		return nil, ErrNoData
	}
	out := make([]Event, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *MemoryStore) SaveHistory(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = make([]Event, len(events))
	copy(s.history, events)
	return nil
}
