package alerting

import (
	"math"

	"github.com/babysphere/backend/internal/sensor"
)

// Direction tells which side of a threshold a value sits on
type Direction string

// Threshold directions
const (
	InRange Direction = ""
	Above   Direction = "above"
	Below   Direction = "below"
)

// Threshold is a safe range for one metric. A nil Max makes it a lower bound only.
type Threshold struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

// Range returns a two-sided threshold
func Range(min, max float64) Threshold {
	return Threshold{Min: min, Max: &max}
}

// LowerBound returns a one-sided threshold
func LowerBound(min float64) Threshold {
	return Threshold{Min: min}
}

// OneSided reports whether only the lower bound is enforced
func (t Threshold) OneSided() bool {
	return t.Max == nil
}

// Check places v relative to the threshold
func (t Threshold) Check(v float64) Direction {
	if v < t.Min {
		return Below
	}
	if t.Max != nil && v > *t.Max {
		return Above
	}
	return InRange
}

func (t Threshold) clone() Threshold {
	if t.Max == nil {
		return t
	}
	return Range(t.Min, *t.Max)
}

// ThresholdConfig maps each monitored metric to its safe range. Metrics
// without an entry are never alerted on.
type ThresholdConfig map[sensor.MetricKind]Threshold

// DefaultThresholds returns the out-of-the-box safe ranges
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		sensor.BabyTemperature:    Range(36.0, 37.8),
		sensor.AmbientTemperature: Range(18, 24),
		sensor.Humidity:           Range(30, 70),
		sensor.SpO2:               LowerBound(92),
		sensor.HeartRate:          Range(100, 180),
	}
}

// Validate rejects unknown metrics, non-finite bounds and inverted ranges
func (c ThresholdConfig) Validate() error {
	if len(c) == 0 {
		return &ValidationError{Reason: "at least one threshold is required"}
	}

	for kind, t := range c {
		if !kind.Valid() {
			return &ValidationError{Metric: kind, Reason: "unknown metric"}
		}
		if !finite(t.Min) {
			return &ValidationError{Metric: kind, Reason: "min must be a finite number"}
		}
		if t.Max == nil {
			continue
		}
		if !finite(*t.Max) {
			return &ValidationError{Metric: kind, Reason: "max must be a finite number"}
		}
		if t.Min > *t.Max {
			return &ValidationError{Metric: kind, Reason: "min is greater than max"}
		}
	}

	return nil
}

// Clone returns a deep copy
func (c ThresholdConfig) Clone() ThresholdConfig {
	out := make(ThresholdConfig, len(c))
	for k, t := range c {
		out[k] = t.clone()
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
