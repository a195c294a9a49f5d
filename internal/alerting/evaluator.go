// Package alerting watches sensor readings against per-metric safe ranges and
// raises an alert once each time a metric leaves its range. Returning to the
// range is silent, and a metric that stays out of range does not re-alert.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/google/uuid"
)

// Options customizes an Evaluator
type Options struct {
	HistoryLimit int
	Now          func() time.Time
	NewID        func() string
}

// Evaluator holds the threshold configuration, the last value seen per
// device and metric, and the alert history. It is not safe for concurrent
// use; callers serialize access.
type Evaluator struct {
	store      Store
	thresholds ThresholdConfig
	lastValues map[stateKey]float64
	history    *History
	now        func() time.Time
	newID      func() string
}

// NewEvaluator creates an evaluator starting from the default thresholds.
// Call Load to pick up persisted configuration and history.
func NewEvaluator(store Store, opts Options) *Evaluator {
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = newEventID
	}

	return &Evaluator{
		store:      store,
		thresholds: DefaultThresholds(),
		lastValues: make(map[stateKey]float64),
		history:    NewHistory(opts.HistoryLimit),
		now:        opts.Now,
		newID:      opts.NewID,
	}
}

// Load reads thresholds and history from the store. Missing data keeps the
// defaults. Stored thresholds that fail validation are ignored.
func (e *Evaluator) Load(ctx context.Context) error {
	var errs []error

	cfg, err := e.store.LoadThresholds(ctx)
	switch {
	case err == nil:
		if verr := cfg.Validate(); verr != nil {
			errs = append(errs, fmt.Errorf("stored thresholds: %w", verr))
		} else {
			e.thresholds = cfg.Clone()
		}
	case !errors.Is(err, ErrNoData):
		errs = append(errs, persistenceError("load thresholds", err))
	}

	events, err := e.store.LoadHistory(ctx)
	switch {
	case err == nil:
		e.history.Reset(events)
	case !errors.Is(err, ErrNoData):
		errs = append(errs, persistenceError("load history", err))
	}

	return errors.Join(errs...)
}

// Thresholds returns a copy of the active configuration
func (e *Evaluator) Thresholds() ThresholdConfig {
	return e.thresholds.Clone()
}

// UpdateThresholds validates and installs cfg, then persists it. An invalid
// cfg leaves the active configuration untouched. A persistence failure is
// returned after cfg has taken effect.
func (e *Evaluator) UpdateThresholds(ctx context.Context, cfg ThresholdConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.thresholds = cfg.Clone()

	if err := e.store.SaveThresholds(ctx, e.thresholds.Clone()); err != nil {
		return persistenceError("save thresholds", err)
	}
	return nil
}

// stateKey identifies one crossing state machine
type stateKey struct {
	device string
	kind   sensor.MetricKind
}

// Evaluate checks one value observed now from an unnamed device
func (e *Evaluator) Evaluate(ctx context.Context, kind sensor.MetricKind, value float64) (*Event, error) {
	return e.evaluateAt(ctx, "", kind, value, e.now())
}

// EvaluateReading checks every reported metric of r against the state of
// r's device, stamping alerts with the reading's time
func (e *Evaluator) EvaluateReading(ctx context.Context, r sensor.Reading) ([]Event, error) {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}

	var (
		events []Event
		errs   []error
	)
	for _, m := range sensor.Metrics(r) {
		event, err := e.evaluateAt(ctx, r.DeviceID, m.Kind, m.Value, ts)
		if event != nil {
			events = append(events, *event)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return events, errors.Join(errs...)
}

// evaluateAt fires only on entering the out-of-range state. The last value is
// recorded whether or not an alert fires.
func (e *Evaluator) evaluateAt(ctx context.Context, deviceID string, kind sensor.MetricKind, value float64, ts time.Time) (*Event, error) {
	key := stateKey{device: deviceID, kind: kind}
	prev, seen := e.lastValues[key]
	e.lastValues[key] = value

	threshold, ok := e.thresholds[kind]
	if !ok {
		return nil, nil
	}

	direction := threshold.Check(value)
	if direction == InRange {
		return nil, nil
	}
	if seen && threshold.Check(prev) != InRange {
		return nil, nil
	}

	event := Event{
		ID:        e.newID(),
		DeviceID:  deviceID,
		Timestamp: ts,
		Metric:    kind,
		Value:     value,
		Direction: direction,
		Message:   Message(kind, value, direction),
	}
	e.history.Add(event)

	if err := e.store.SaveHistory(ctx, e.history.Events()); err != nil {
		return &event, persistenceError("save history", err)
	}
	return &event, nil
}

// History returns the retained alerts, newest first
func (e *Evaluator) History() []Event {
	return e.history.Events()
}

// ClearHistory drops all retained alerts and persists the empty history
func (e *Evaluator) ClearHistory(ctx context.Context) error {
	e.history.Reset(nil)
	if err := e.store.SaveHistory(ctx, []Event{}); err != nil {
		return persistenceError("clear history", err)
	}
	return nil
}

// LastValue returns the most recent value seen for kind on deviceID
func (e *Evaluator) LastValue(deviceID string, kind sensor.MetricKind) (float64, bool) {
	v, ok := e.lastValues[stateKey{device: deviceID, kind: kind}]
	return v, ok
}

// Message renders the user-facing text for an out-of-range value
func Message(kind sensor.MetricKind, value float64, direction Direction) string {
	return fmt.Sprintf("Urgent: Baby's %s is %s which is %s the safe range. Please check immediately.",
		strings.ToUpper(string(kind)), strconv.FormatFloat(value, 'f', -1, 64), direction)
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
