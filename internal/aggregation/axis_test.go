package aggregation

import (
	"testing"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/stretchr/testify/assert"
)

func TestYAxisRange(t *testing.T) {
	t.Run("Should pad temperatures and clamp to the plausible band", func(t *testing.T) {
		assert.Equal(t, AxisRange{Min: 35, Max: 39}, YAxisRange(sensor.BabyTemperature, []float64{36.2, 37.9}))
		assert.Equal(t, AxisRange{Min: 28, Max: 42}, YAxisRange(sensor.AmbientTemperature, []float64{27.9, 41.8}))
	})

	t.Run("Should fix SpO2 to 80-100", func(t *testing.T) {
		assert.Equal(t, AxisRange{Min: 80, Max: 100}, YAxisRange(sensor.SpO2, []float64{97, 99}))
	})

	t.Run("Should pad heart rate by ten with a floor of zero", func(t *testing.T) {
		assert.Equal(t, AxisRange{Min: 100, Max: 160}, YAxisRange(sensor.HeartRate, []float64{110, 150}))
		assert.Equal(t, AxisRange{Min: 0, Max: 15}, YAxisRange(sensor.HeartRate, []float64{5}))
	})

	t.Run("Should floor and ceil other metrics", func(t *testing.T) {
		assert.Equal(t, AxisRange{Min: 45, Max: 61}, YAxisRange(sensor.Humidity, []float64{45.2, 60.7}))
	})

	t.Run("Should fall back to nominal ranges without values", func(t *testing.T) {
		assert.Equal(t, AxisRange{Min: 0, Max: 200}, YAxisRange(sensor.HeartRate, nil))
		assert.Equal(t, AxisRange{Min: 28, Max: 42}, YAxisRange(sensor.BabyTemperature, nil))
	})
}
