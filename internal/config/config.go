package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Log        LogConfig        `mapstructure:"log"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
	Environment  string `mapstructure:"environment"`
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// ClickHouseConfig holds the optional reading archive configuration
type ClickHouseConfig struct {
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Table    string `mapstructure:"table"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Brokers        string `mapstructure:"brokers"`
	ConsumerGroup  string `mapstructure:"consumer_group"`
	ReadingsTopic  string `mapstructure:"readings_topic"`
	AlertsTopic    string `mapstructure:"alerts_topic"`
	SecurityEnable bool   `mapstructure:"security_enable"`
	SecurityUser   string `mapstructure:"security_user"`
	SecurityPass   string `mapstructure:"security_pass"`
}

// MQTTConfig holds the device broker configuration
type MQTTConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Broker        string `mapstructure:"broker"`
	ClientID      string `mapstructure:"client_id"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	ReadingsTopic string `mapstructure:"readings_topic"`
	QoS           byte   `mapstructure:"qos"`
}

// JWTConfig holds JWT verification configuration
type JWTConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
	Issuer  string `mapstructure:"issuer"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// MonitorConfig controls how readings are stored and charted. A zero
// RetentionDays keeps readings forever.
type MonitorConfig struct {
	Timezone             string `mapstructure:"timezone"`
	MaxPoints            int    `mapstructure:"max_points"`
	ReadingStore         string `mapstructure:"reading_store"`
	RetentionDays        int    `mapstructure:"retention_days"`
	PruneIntervalMinutes int    `mapstructure:"prune_interval_minutes"`
}

// AlertsConfig controls the alert evaluator and its persistence
type AlertsConfig struct {
	HistoryLimit      int    `mapstructure:"history_limit"`
	Store             string `mapstructure:"store"`
	FilePath          string `mapstructure:"file_path"`
	NotificationTitle string `mapstructure:"notification_title"`
}

// Reading and alert store backends
const (
	StoreDatabase   = "database"
	StoreClickHouse = "clickhouse"
	StoreFile       = "file"
)

// LoadConfig loads the application configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	if configPath == "" {
		configPath = "./config"
	}

	// A .env file is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("BABYSPHERE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	v.AutomaticEnv()
	setDefaults(v)

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15)  // seconds
	v.SetDefault("server.write_timeout", 15) // seconds
	v.SetDefault("server.idle_timeout", 60)  // seconds
	v.SetDefault("server.environment", "development")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "babysphere")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")

	// ClickHouse defaults
	v.SetDefault("clickhouse.addr", "localhost:9000")
	v.SetDefault("clickhouse.database", "babysphere")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.table", "sensor_readings")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "kafka:9092")
	v.SetDefault("kafka.consumer_group", "babysphere-monitor")
	v.SetDefault("kafka.readings_topic", "sensor-readings")
	v.SetDefault("kafka.alerts_topic", "alerts")
	v.SetDefault("kafka.security_enable", false)

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "babysphere-monitor")
	v.SetDefault("mqtt.readings_topic", "babysphere/+/readings")
	v.SetDefault("mqtt.qos", 1)

	// JWT defaults
	v.SetDefault("jwt.enabled", true)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	// Monitor defaults
	v.SetDefault("monitor.timezone", "Asia/Kolkata")
	v.SetDefault("monitor.max_points", 5)
	v.SetDefault("monitor.reading_store", StoreDatabase)
	v.SetDefault("monitor.retention_days", 0)
	v.SetDefault("monitor.prune_interval_minutes", 60)

	// Alert defaults
	v.SetDefault("alerts.history_limit", 50)
	v.SetDefault("alerts.store", StoreDatabase)
	v.SetDefault("alerts.file_path", "./data/alerts.json")
	v.SetDefault("alerts.notification_title", "Baby Health Alert")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.JWT.Enabled && config.JWT.Secret == "" {
		if config.Server.Environment == "development" {
			config.JWT.Secret = "development-jwt-secret-key-change-in-production"
		} else {
			return fmt.Errorf("JWT secret is required in non-development environments")
		}
	}

	if config.Database.Password == "" {
		dbPassword := os.Getenv("BABYSPHERE_DATABASE_PASSWORD")
		if dbPassword == "" {
			if config.Server.Environment != "development" && config.Server.Environment != "test" {
				return fmt.Errorf("database password is required in non-development environments")
			}
		} else {
			config.Database.Password = dbPassword
		}
	}

	if _, err := time.LoadLocation(config.Monitor.Timezone); err != nil {
		return fmt.Errorf("invalid monitor timezone %q: %w", config.Monitor.Timezone, err)
	}

	switch config.Monitor.ReadingStore {
	case StoreDatabase, StoreClickHouse:
	default:
		return fmt.Errorf("unsupported reading store %q", config.Monitor.ReadingStore)
	}

	if config.Monitor.RetentionDays < 0 {
		return fmt.Errorf("monitor.retention_days must not be negative, got %d", config.Monitor.RetentionDays)
	}
	if config.Monitor.RetentionDays > 0 && config.Monitor.PruneIntervalMinutes <= 0 {
		return fmt.Errorf("monitor.prune_interval_minutes must be positive, got %d", config.Monitor.PruneIntervalMinutes)
	}

	switch config.Alerts.Store {
	case StoreDatabase, StoreFile:
	default:
		return fmt.Errorf("unsupported alert store %q", config.Alerts.Store)
	}

	if config.Alerts.HistoryLimit <= 0 {
		return fmt.Errorf("alerts.history_limit must be positive, got %d", config.Alerts.HistoryLimit)
	}

	if config.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", config.MQTT.QoS)
	}

	return nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone)
}

// Location returns the display time zone for chart labels
func (c *MonitorConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Retention returns how long readings are kept; zero means forever
func (c *MonitorConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// PruneInterval returns how often expired readings are deleted
func (c *MonitorConfig) PruneInterval() time.Duration {
	return time.Duration(c.PruneIntervalMinutes) * time.Minute
}

// IsProduction returns true if the environment is production
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if the environment is development
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if the environment is test
func (c *ServerConfig) IsTest() bool {
	return c.Environment == "test"
}
