package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileDocument is the on-disk layout of a FileStore
type fileDocument struct {
	Thresholds ThresholdConfig `json:"alert_thresholds,omitempty"`
	History    []Event         `json:"alert_history,omitempty"`
}

// FileStore keeps thresholds and history in a single JSON file. It suits
// single-node deployments without a database.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) LoadThresholds(context.Context) (ThresholdConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc.Thresholds == nil {
		return nil, ErrNoData
	}
	return doc.Thresholds, nil
}

func (s *FileStore) SaveThresholds(_ context.Context, cfg ThresholdConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil && !errors.Is(err, ErrNoData) {
		return err
	}
	doc.Thresholds = cfg
	return s.write(doc)
}

func (s *FileStore) LoadHistory(context.Context) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc.History == nil {
		return nil, ErrNoData
	}
	return doc.History, nil
}

func (s *FileStore) SaveHistory(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil && !errors.Is(err, ErrNoData) {
		return err
	}
	if events == nil {
		events = []Event{}
	}
	doc.History = events
	return s.write(doc)
}

func (s *FileStore) read() (fileDocument, error) {
	var doc fileDocument

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, ErrNoData
	}
	if err != nil {
		return doc, err
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *FileStore) write(doc fileDocument) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	// Readers only ever see a complete file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
