package main

import (
	"math"
	"math/rand"
	"time"

	"github.com/babysphere/backend/internal/sensor"
	"github.com/google/uuid"
)

// walk is one metric's bounded random walk
type walk struct {
	value, step, min, max float64
}

func (w *walk) next(rng *rand.Rand) float64 {
	w.value += (rng.Float64()*2 - 1) * w.step
	w.value = math.Max(w.min, math.Min(w.max, w.value))
	return w.value
}

// generator produces plausible crib readings with occasional fever spikes
type generator struct {
	rng         *rand.Rand
	deviceID    string
	spikeChance float64
	metrics     map[sensor.MetricKind]*walk
}

func newGenerator(deviceID string, spikeChance float64, seed int64) *generator {
	return &generator{
		rng:         rand.New(rand.NewSource(seed)),
		deviceID:    deviceID,
		spikeChance: spikeChance,
		metrics: map[sensor.MetricKind]*walk{
			sensor.BabyTemperature:    {value: 36.8, step: 0.1, min: 35.5, max: 37.6},
			sensor.AmbientTemperature: {value: 22, step: 0.2, min: 17, max: 26},
			sensor.Humidity:           {value: 50, step: 1, min: 25, max: 75},
			sensor.SpO2:               {value: 97, step: 0.5, min: 90, max: 100},
			sensor.HeartRate:          {value: 130, step: 3, min: 95, max: 185},
		},
	}
}

func (g *generator) next(now time.Time) sensor.Reading {
	value := func(kind sensor.MetricKind) *float64 {
		return sensor.Value(sensor.Round(kind, g.metrics[kind].next(g.rng)))
	}

	r := sensor.Reading{
		ID:                 uuid.Must(uuid.NewV7()).String(),
		DeviceID:           g.deviceID,
		Timestamp:          now.UTC(),
		BabyTemperature:    value(sensor.BabyTemperature),
		AmbientTemperature: value(sensor.AmbientTemperature),
		Humidity:           value(sensor.Humidity),
		SpO2:               value(sensor.SpO2),
		HeartRate:          value(sensor.HeartRate),
	}

	if g.rng.Float64() < g.spikeChance {
		r.BabyTemperature = sensor.Value(sensor.Round(sensor.BabyTemperature, 38+g.rng.Float64()))
	}
	return r
}
