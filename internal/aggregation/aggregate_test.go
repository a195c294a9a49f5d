package aggregation

import (
	"testing"
	"time"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minuteReadings(start time.Time, temps ...float64) []sensor.Reading {
	readings := make([]sensor.Reading, len(temps))
	for i, v := range temps {
		readings[i] = sensor.Reading{
			Timestamp:       start.Add(time.Duration(i) * time.Minute),
			BabyTemperature: sensor.Value(v),
		}
	}
	return readings
}

func TestAggregate(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Should return no buckets for empty input", func(t *testing.T) {
		assert.Empty(t, Aggregate(nil, Daily, sensor.BabyTemperature, time.UTC))
	})

	t.Run("Should count exactly the valid readings", func(t *testing.T) {
		readings := minuteReadings(start, 36.5, 0, 36.7, 36.9)
		readings = append(readings, sensor.Reading{Timestamp: start.Add(10 * time.Minute)})

		for _, tf := range []Timeframe{Raw, Hourly, Daily, Weekly} {
			total := 0
			for _, b := range Aggregate(readings, tf, sensor.BabyTemperature, time.UTC) {
				require.GreaterOrEqual(t, b.Count, 1)
				total += b.Count
			}
			assert.Equal(t, len(sensor.FilterValid(readings, sensor.BabyTemperature)), total, string(tf))
		}
	})

	t.Run("Should emit one bucket per reading for raw timeframes", func(t *testing.T) {
		buckets := Aggregate(minuteReadings(start, 36.5, 36.6, 36.7), Raw, sensor.BabyTemperature, time.UTC)
		require.Len(t, buckets, 3)
		assert.Equal(t, "09:00", buckets[0].Key)
		assert.Equal(t, "09:02", buckets[2].Key)
		assert.InDelta(t, 36.7, buckets[2].Avg, 1e-9)
	})

	t.Run("Should summarize daily buckets over rounded values", func(t *testing.T) {
		readings := []sensor.Reading{
			{Timestamp: start, HeartRate: sensor.Value(119.6)},
			{Timestamp: start.Add(time.Hour), HeartRate: sensor.Value(140.2)},
			{Timestamp: start.Add(26 * time.Hour), HeartRate: sensor.Value(150)},
		}

		buckets := Aggregate(readings, Daily, sensor.HeartRate, time.UTC)
		require.Len(t, buckets, 2)

		assert.Equal(t, "1/3/2024", buckets[0].Key)
		assert.Equal(t, 2, buckets[0].Count)
		assert.Equal(t, 120.0, buckets[0].Min)
		assert.Equal(t, 140.0, buckets[0].Max)
		assert.Equal(t, 260.0, buckets[0].Sum)
		assert.Equal(t, 130.0, buckets[0].Avg)

		assert.Equal(t, "2/3/2024", buckets[1].Key)
		assert.Equal(t, 1, buckets[1].Count)
	})

	t.Run("Should order buckets chronologically", func(t *testing.T) {
		readings := []sensor.Reading{
			{Timestamp: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Humidity: sensor.Value(40)},
			{Timestamp: time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), Humidity: sensor.Value(50)},
			{Timestamp: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), Humidity: sensor.Value(60)},
		}

		buckets := Aggregate(readings, Weekly, sensor.Humidity, time.UTC)
		require.Len(t, buckets, 3)
		assert.Equal(t, []string{"2024-W01", "2024-W02", "2024-W03"}, []string{buckets[0].Key, buckets[1].Key, buckets[2].Key})
	})
}
