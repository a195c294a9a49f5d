package models

import "time"

// Well-known setting keys
const (
	SettingAlertThresholds = "alert_thresholds"
	SettingAlertHistory    = "alert_history"
)

// Setting is a JSON blob stored under a unique key and overwritten wholesale
type Setting struct {
	Key       string    `gorm:"type:varchar(128);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name for Setting
func (Setting) TableName() string {
	return "settings"
}
