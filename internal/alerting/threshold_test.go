package alerting

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholdCheck(t *testing.T) {
	two := Range(36, 37.8)
	assert.Equal(t, InRange, two.Check(36))
	assert.Equal(t, InRange, two.Check(37.8))
	assert.Equal(t, Below, two.Check(35.9))
	assert.Equal(t, Above, two.Check(37.9))

	one := LowerBound(92)
	assert.True(t, one.OneSided())
	assert.Equal(t, InRange, one.Check(1000))
	assert.Equal(t, Below, one.Check(91))
}

func TestThresholdConfigValidate(t *testing.T) {
	t.Run("Should accept the defaults", func(t *testing.T) {
		assert.NoError(t, DefaultThresholds().Validate())
	})

	t.Run("Should accept equal bounds", func(t *testing.T) {
		assert.NoError(t, ThresholdConfig{sensor.Humidity: Range(50, 50)}.Validate())
	})

	cases := map[string]ThresholdConfig{
		"empty":          {},
		"inverted":       {sensor.Humidity: Range(70, 30)},
		"nan min":        {sensor.Humidity: Range(math.NaN(), 30)},
		"infinite max":   {sensor.Humidity: Range(30, math.Inf(1))},
		"unknown metric": {sensor.MetricKind("crying"): LowerBound(1)},
	}
	for name, cfg := range cases {
		t.Run("Should reject "+name, func(t *testing.T) {
			assert.ErrorIs(t, cfg.Validate(), ErrConfigValidation)
		})
	}
}

func TestThresholdConfigJSON(t *testing.T) {
	data, err := json.Marshal(DefaultThresholds())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"spo2":{"min":92}`)

	var decoded ThresholdConfig
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, DefaultThresholds(), decoded)
}

func TestThresholdConfigClone(t *testing.T) {
	cfg := DefaultThresholds()
	clone := cfg.Clone()
	*clone[sensor.HeartRate].Max = 999

	assert.Equal(t, 180.0, *cfg[sensor.HeartRate].Max)
}
