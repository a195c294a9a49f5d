package sensor

import (
	"sort"
	"time"
)

// Reading is one sample from a monitor device. A nil metric pointer means the
// device did not report that channel.
type Reading struct {
	ID                 string    `json:"id"`
	DeviceID           string    `json:"device_id,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	BabyTemperature    *float64  `json:"baby_temperature,omitempty"`
	AmbientTemperature *float64  `json:"ambient_temperature,omitempty"`
	Humidity           *float64  `json:"humidity,omitempty"`
	SpO2               *float64  `json:"spo2,omitempty"`
	HeartRate          *float64  `json:"heartRate,omitempty"`
}

// Value returns a pointer to v, for building readings in code
func Value(v float64) *float64 {
	return &v
}

// field returns the raw pointer backing kind
func (r Reading) field(kind MetricKind) *float64 {
	switch kind {
	case BabyTemperature:
		return r.BabyTemperature
	case AmbientTemperature:
		return r.AmbientTemperature
	case Humidity:
		return r.Humidity
	case SpO2:
		return r.SpO2
	case HeartRate:
		return r.HeartRate
	default:
		return nil
	}
}

// Raw returns the unrounded metric value and whether it was reported
func (r Reading) Raw(kind MetricKind) (float64, bool) {
	p := r.field(kind)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// SelectMetric extracts the metric rounded to its display precision.
// Missing metrics yield 0 with missing set; it never fails.
func SelectMetric(r Reading, kind MetricKind) (value float64, missing bool) {
	v, ok := r.Raw(kind)
	if !ok {
		return 0, true
	}
	return Round(kind, v), false
}

// FilterValid keeps readings whose selected metric is strictly positive.
// Zero doubles as the missing sentinel, so legitimate zeros are dropped too.
func FilterValid(readings []Reading, kind MetricKind) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if v, ok := r.Raw(kind); ok && v > 0 {
			out = append(out, r)
		}
	}
	return out
}

// MetricValue is one reported channel of a reading
type MetricValue struct {
	Kind  MetricKind
	Value float64
}

// Metrics lists the reported channels of r in evaluation order
func Metrics(r Reading) []MetricValue {
	out := make([]MetricValue, 0, len(allMetricKinds))
	for _, kind := range allMetricKinds {
		if v, ok := r.Raw(kind); ok {
			out = append(out, MetricValue{Kind: kind, Value: v})
		}
	}
	return out
}

// SortByTimestamp orders readings oldest first, keeping ties stable
func SortByTimestamp(readings []Reading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
}
