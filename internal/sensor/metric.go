package sensor

import (
	"fmt"
	"math"
	"strings"
)

// MetricKind names one of the fixed numeric channels a device reports
type MetricKind string

// Supported metrics
const (
	BabyTemperature    MetricKind = "baby_temperature"
	AmbientTemperature MetricKind = "ambient_temperature"
	Humidity           MetricKind = "humidity"
	SpO2               MetricKind = "spo2"
	HeartRate          MetricKind = "heart_rate"
)

var allMetricKinds = []MetricKind{
	BabyTemperature,
	AmbientTemperature,
	Humidity,
	SpO2,
	HeartRate,
}

// AllMetricKinds returns every supported metric in evaluation order
func AllMetricKinds() []MetricKind {
	out := make([]MetricKind, len(allMetricKinds))
	copy(out, allMetricKinds)
	return out
}

// ParseMetricKind accepts the canonical names plus the camelCase spellings used by the mobile client
func ParseMetricKind(s string) (MetricKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "baby_temperature", "babytemperature", "object_temperature":
		return BabyTemperature, nil
	case "ambient_temperature", "ambienttemperature":
		return AmbientTemperature, nil
	case "humidity":
		return Humidity, nil
	case "spo2":
		return SpO2, nil
	case "heart_rate", "heartrate":
		return HeartRate, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Valid reports whether k is a supported metric
func (k MetricKind) Valid() bool {
	for _, m := range allMetricKinds {
		if m == k {
			return true
		}
	}
	return false
}

// IsTemperature reports whether k is measured in degrees Celsius
func (k MetricKind) IsTemperature() bool {
	return k == BabyTemperature || k == AmbientTemperature
}

// Unit is the display unit for the metric
func (k MetricKind) Unit() string {
	switch k {
	case BabyTemperature, AmbientTemperature:
		return "°C"
	case Humidity, SpO2:
		return "%"
	case HeartRate:
		return "bpm"
	default:
		return ""
	}
}

// DecimalPlaces is the display precision: one decimal for temperatures, integers otherwise
func (k MetricKind) DecimalPlaces() int {
	if k.IsTemperature() {
		return 1
	}
	return 0
}

// Round applies the metric's display precision to v
func Round(kind MetricKind, v float64) float64 {
	if kind.DecimalPlaces() == 1 {
		return math.Round(v*10) / 10
	}
	return math.Round(v)
}
