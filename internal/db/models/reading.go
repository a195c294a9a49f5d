package models

import (
	"time"

	"github.com/babysphere/backend/internal/sensor"
)

// SensorReading is a stored device sample. Nullable metric columns keep
// "not reported" apart from zero.
type SensorReading struct {
	Time               time.Time `gorm:"primaryKey;not null;index:idx_sensor_readings_device_time,priority:2" json:"time"`
	ID                 string    `gorm:"type:varchar(64);primaryKey;not null" json:"id"`
	DeviceID           string    `gorm:"type:varchar(128);index:idx_sensor_readings_device_time,priority:1" json:"device_id"`
	BabyTemperature    *float64  `json:"baby_temperature,omitempty"`
	AmbientTemperature *float64  `json:"ambient_temperature,omitempty"`
	Humidity           *float64  `json:"humidity,omitempty"`
	SpO2               *float64  `gorm:"column:spo2" json:"spo2,omitempty"`
	HeartRate          *float64  `json:"heart_rate,omitempty"`
	Source             string    `gorm:"type:varchar(32)" json:"source"` // "mqtt", "kafka", "http"
	CreatedAt          time.Time `json:"created_at"`
}

// TableName overrides the table name for SensorReading
func (SensorReading) TableName() string {
	return "sensor_readings"
}

// NewSensorReading converts a domain reading into a row
func NewSensorReading(r sensor.Reading, source string) *SensorReading {
	return &SensorReading{
		Time:               r.Timestamp.UTC(),
		ID:                 r.ID,
		DeviceID:           r.DeviceID,
		BabyTemperature:    r.BabyTemperature,
		AmbientTemperature: r.AmbientTemperature,
		Humidity:           r.Humidity,
		SpO2:               r.SpO2,
		HeartRate:          r.HeartRate,
		Source:             source,
	}
}

// ToReading converts the row back into a domain reading
func (m *SensorReading) ToReading() sensor.Reading {
	return sensor.Reading{
		ID:                 m.ID,
		DeviceID:           m.DeviceID,
		Timestamp:          m.Time.UTC(),
		BabyTemperature:    m.BabyTemperature,
		AmbientTemperature: m.AmbientTemperature,
		Humidity:           m.Humidity,
		SpO2:               m.SpO2,
		HeartRate:          m.HeartRate,
	}
}
