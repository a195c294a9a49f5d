package alerting

import (
	"errors"
	"fmt"

	"github.com/babysphere/backend/internal/sensor"
)

var (
	// ErrConfigValidation marks a rejected threshold configuration
	ErrConfigValidation = errors.New("invalid threshold configuration")
	// ErrPersistence marks a failed read or write of the alert store
	ErrPersistence = errors.New("alert persistence failed")
	// ErrNoData is returned by stores that have nothing saved yet
	ErrNoData = errors.New("no stored alert data")
)

// ValidationError describes why a threshold was rejected
type ValidationError struct {
	Metric sensor.MetricKind
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Metric == "" {
		return fmt.Sprintf("%s: %s", ErrConfigValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrConfigValidation, e.Metric, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigValidation
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
