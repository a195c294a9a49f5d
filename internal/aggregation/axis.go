package aggregation

import (
	"math"

	"github.com/babysphere/backend/internal/sensor"
)

// AxisRange is the vertical extent of a chart
type AxisRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Temperature axes never leave the clinically plausible band.
const (
	temperatureAxisFloor = 28
	temperatureAxisCeil  = 42
)

// YAxisRange computes metric-specific axis bounds for values. With no values
// it falls back to the metric's nominal range.
func YAxisRange(kind sensor.MetricKind, values []float64) AxisRange {
	if len(values) == 0 {
		return nominalRange(kind)
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	switch {
	case kind.IsTemperature():
		return AxisRange{
			Min: math.Max(temperatureAxisFloor, math.Floor(lo-0.5)),
			Max: math.Min(temperatureAxisCeil, math.Ceil(hi+0.5)),
		}
	case kind == sensor.SpO2:
		return AxisRange{Min: 80, Max: 100}
	case kind == sensor.HeartRate:
		return AxisRange{
			Min: math.Max(0, math.Floor(lo-10)),
			Max: math.Ceil(hi + 10),
		}
	default:
		return AxisRange{Min: math.Floor(lo), Max: math.Ceil(hi)}
	}
}

func nominalRange(kind sensor.MetricKind) AxisRange {
	switch {
	case kind.IsTemperature():
		return AxisRange{Min: temperatureAxisFloor, Max: temperatureAxisCeil}
	case kind == sensor.SpO2:
		return AxisRange{Min: 80, Max: 100}
	case kind == sensor.HeartRate:
		return AxisRange{Min: 0, Max: 200}
	case kind == sensor.Humidity:
		return AxisRange{Min: 0, Max: 100}
	default:
		return AxisRange{}
	}
}
