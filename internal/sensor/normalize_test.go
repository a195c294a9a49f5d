package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should accept numeric strings and field aliases", func(t *testing.T) {
		r := Normalize(map[string]interface{}{
			"id":                  "doc-1",
			"object_temperature":  "36.9",
			"ambient_temperature": 22.5,
			"humidity":            "48",
			"heart_rate":          131.0,
			"timestamp":           "2024-03-01T09:20:00Z",
		}, now)

		assert.Equal(t, "doc-1", r.ID)
		require.NotNil(t, r.BabyTemperature)
		assert.Equal(t, 36.9, *r.BabyTemperature)
		require.NotNil(t, r.AmbientTemperature)
		assert.Equal(t, 22.5, *r.AmbientTemperature)
		require.NotNil(t, r.Humidity)
		assert.Equal(t, 48.0, *r.Humidity)
		require.NotNil(t, r.HeartRate)
		assert.Equal(t, 131.0, *r.HeartRate)
		assert.Nil(t, r.SpO2)
		assert.Equal(t, time.Date(2024, 3, 1, 9, 20, 0, 0, time.UTC), r.Timestamp)
	})

	t.Run("Should treat garbage as missing", func(t *testing.T) {
		r := Normalize(map[string]interface{}{
			"baby_temperature": "warm",
			"spo2":             true,
			"humidity":         nil,
		}, now)

		assert.Nil(t, r.BabyTemperature)
		assert.Nil(t, r.SpO2)
		assert.Nil(t, r.Humidity)
		assert.Equal(t, now, r.Timestamp)
	})

	t.Run("Should read unix seconds and milliseconds", func(t *testing.T) {
		secs := Normalize(map[string]interface{}{"timestamp": 1709284800.0}, now)
		millis := Normalize(map[string]interface{}{"timestamp": 1709284800000.0}, now)

		assert.Equal(t, secs.Timestamp, millis.Timestamp)
		assert.Equal(t, time.Date(2024, 3, 1, 9, 20, 0, 0, time.UTC), secs.Timestamp)
	})
}

func TestDecode(t *testing.T) {
	now := time.Now()

	r, err := Decode([]byte(`{"baby_temperature": 37.1, "spo2": "97", "device_id": "crib-1"}`), now)
	require.NoError(t, err)
	assert.Equal(t, "crib-1", r.DeviceID)
	assert.Equal(t, 37.1, *r.BabyTemperature)
	assert.Equal(t, 97.0, *r.SpO2)

	_, err = Decode([]byte(`not json`), now)
	assert.Error(t, err)
}

func TestWireFieldNames(t *testing.T) {
	names := WireFieldNames()

	assert.Equal(t, "baby_temperature", names[0])
	assert.Contains(t, names, "object_temperature")
	assert.Contains(t, names, "heart_rate")
	assert.Len(t, names, 10)
}
