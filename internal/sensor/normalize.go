package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Field aliases accepted on the wire, first match wins
var wireFields = map[MetricKind][]string{
	BabyTemperature:    {"baby_temperature", "object_temperature", "babyTemperature"},
	AmbientTemperature: {"ambient_temperature", "ambientTemperature"},
	Humidity:           {"humidity"},
	SpO2:               {"spo2", "spO2"},
	HeartRate:          {"heartRate", "heart_rate"},
}

// WireFieldNames lists every accepted metric field name, ordered by metric
func WireFieldNames() []string {
	var names []string
	for _, kind := range allMetricKinds {
		names = append(names, wireFields[kind]...)
	}
	return names
}

// Normalize converts a loosely typed device or document payload into a Reading.
// Numbers may arrive as JSON numbers or numeric strings; anything unparseable is
// treated as missing. The timestamp defaults to now when absent or invalid.
func Normalize(raw map[string]interface{}, now time.Time) Reading {
	r := Reading{
		ID:        stringField(raw, "id"),
		DeviceID:  stringField(raw, "device_id"),
		Timestamp: parseTimestamp(raw["timestamp"], now),
	}
	if r.DeviceID == "" {
		r.DeviceID = stringField(raw, "deviceId")
	}

	for kind, names := range wireFields {
		for _, name := range names {
			v, ok := parseNumber(raw[name])
			if !ok {
				continue
			}
			p := v
			switch kind {
			case BabyTemperature:
				r.BabyTemperature = &p
			case AmbientTemperature:
				r.AmbientTemperature = &p
			case Humidity:
				r.Humidity = &p
			case SpO2:
				r.SpO2 = &p
			case HeartRate:
				r.HeartRate = &p
			}
			break
		}
	}

	return r
}

// Decode parses a JSON payload and normalizes it
func Decode(payload []byte, now time.Time) (Reading, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	return Normalize(raw, now), nil
}

func stringField(raw map[string]interface{}, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func parseNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseTimestamp accepts RFC3339 strings and unix seconds or milliseconds
func parseTimestamp(v interface{}, now time.Time) time.Time {
	if s, ok := v.(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC()
		}
	}
	if n, ok := parseNumber(v); ok && n > 0 {
		// Anything past year 2286 in seconds is read as milliseconds.
		if n > 1e10 {
			return time.UnixMilli(int64(n)).UTC()
		}
		return time.Unix(int64(n), 0).UTC()
	}
	return now.UTC()
}
