package main

import (
	"testing"
	"time"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("Should keep every metric inside its walk bounds", func(t *testing.T) {
		g := newGenerator("crib-1", 0, 1)
		for i := 0; i < 500; i++ {
			r := g.next(now.Add(time.Duration(i) * time.Second))
			assert.Equal(t, "crib-1", r.DeviceID)
			assert.NotEmpty(t, r.ID)
			for _, m := range sensor.Metrics(r) {
				w := g.metrics[m.Kind]
				assert.GreaterOrEqual(t, m.Value, w.min-0.1, m.Kind)
				assert.LessOrEqual(t, m.Value, w.max+0.1, m.Kind)
			}
		}
	})

	t.Run("Should spike the baby temperature when asked to", func(t *testing.T) {
		g := newGenerator("crib-1", 1, 1)
		r := g.next(now)
		require.NotNil(t, r.BabyTemperature)
		assert.GreaterOrEqual(t, *r.BabyTemperature, 38.0)
	})
}
