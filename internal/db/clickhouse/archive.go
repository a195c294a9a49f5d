package clickhouse

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/babysphere/backend/internal/config"
	"github.com/babysphere/backend/internal/sensor"
	"github.com/babysphere/backend/internal/utils"
	"go.uber.org/zap"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Archive stores readings in a ClickHouse MergeTree table
type Archive struct {
	conn   driver.Conn
	table  string
	logger *utils.Logger
}

// NewArchive connects to ClickHouse and ensures the readings table exists
func NewArchive(ctx context.Context, cfg *config.ClickHouseConfig, logger *utils.Logger) (*Archive, error) {
	if !identifierPattern.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid ClickHouse table name %q", cfg.Table)
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	archive := &Archive{
		conn:   conn,
		table:  cfg.Table,
		logger: logger.Named("clickhouse"),
	}

	if err := archive.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	archive.logger.Info("Connected to ClickHouse",
		zap.String("addr", cfg.Addr),
		zap.String("table", cfg.Table))

	return archive, nil
}

// InitSchema creates the readings table if it does not exist
func (a *Archive) InitSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			timestamp DateTime64(3, 'UTC'),
			id String,
			device_id LowCardinality(String),
			baby_temperature Nullable(Float64),
			ambient_temperature Nullable(Float64),
			humidity Nullable(Float64),
			spo2 Nullable(Float64),
			heart_rate Nullable(Float64),
			source LowCardinality(String)
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(timestamp)
		ORDER BY (timestamp, id)
	`, a.table)

	return a.conn.Exec(ctx, ddl)
}

// SaveReading appends one reading
func (a *Archive) SaveReading(ctx context.Context, r sensor.Reading, source string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (timestamp, id, device_id, baby_temperature, ambient_temperature, humidity, spo2, heart_rate, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.table)

	err := a.conn.Exec(ctx, query,
		r.Timestamp.UTC(),
		r.ID,
		r.DeviceID,
		r.BabyTemperature,
		r.AmbientTemperature,
		r.Humidity,
		r.SpO2,
		r.HeartRate,
		source,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	return nil
}

// SaveReadings appends readings in one native batch
func (a *Archive) SaveReadings(ctx context.Context, readings []sensor.Reading, source string) error {
	if len(readings) == 0 {
		return nil
	}

	batch, err := a.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s (timestamp, id, device_id, baby_temperature, ambient_temperature, humidity, spo2, heart_rate, source)",
		a.table))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	defer func() { _ = batch.Abort() }()

	for _, r := range readings {
		if err := batch.Append(
			r.Timestamp.UTC(),
			r.ID,
			r.DeviceID,
			r.BabyTemperature,
			r.AmbientTemperature,
			r.Humidity,
			r.SpO2,
			r.HeartRate,
			source,
		); err != nil {
			return fmt.Errorf("failed to append reading %s: %w", r.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// DeleteBefore removes readings older than cutoff. The mutation runs in the
// background on the server, so the returned count is what matched at submit time.
func (a *Archive) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var matched uint64
	countQuery := fmt.Sprintf(`SELECT count() FROM %s WHERE timestamp < ?`, a.table)
	if err := a.conn.QueryRow(ctx, countQuery, cutoff.UTC()).Scan(&matched); err != nil {
		return 0, fmt.Errorf("failed to count expired readings: %w", err)
	}
	if matched == 0 {
		return 0, nil
	}

	if err := a.conn.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s DELETE WHERE timestamp < ?`, a.table), cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("failed to delete expired readings: %w", err)
	}
	return int64(matched), nil
}

// ReadingsBetween returns readings in [start, end), oldest first
func (a *Archive) ReadingsBetween(ctx context.Context, start, end time.Time) ([]sensor.Reading, error) {
	query := fmt.Sprintf(`
		SELECT timestamp, id, device_id, baby_temperature, ambient_temperature, humidity, spo2, heart_rate
		FROM %s FINAL
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`, a.table)

	return a.query(ctx, query, start.UTC(), end.UTC())
}

// ListReadings returns one page of readings in [start, end), newest first, and the total count
func (a *Archive) ListReadings(ctx context.Context, start, end time.Time, page utils.PaginationRequest) ([]sensor.Reading, int, error) {
	var total uint64
	countQuery := fmt.Sprintf(`SELECT count() FROM %s FINAL WHERE timestamp >= ? AND timestamp < ?`, a.table)
	if err := a.conn.QueryRow(ctx, countQuery, start.UTC(), end.UTC()).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count readings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT timestamp, id, device_id, baby_temperature, ambient_temperature, humidity, spo2, heart_rate
		FROM %s FINAL
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, a.table)

	readings, err := a.query(ctx, query, start.UTC(), end.UTC(), page.Limit, page.Offset())
	return readings, int(total), err
}

// LatestReading returns the most recent reading
func (a *Archive) LatestReading(ctx context.Context) (*sensor.Reading, error) {
	query := fmt.Sprintf(`
		SELECT timestamp, id, device_id, baby_temperature, ambient_temperature, humidity, spo2, heart_rate
		FROM %s
		ORDER BY timestamp DESC
		LIMIT 1
	`, a.table)

	readings, err := a.query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("latest reading: %w", utils.ErrNotFound)
	}
	return &readings[0], nil
}

func (a *Archive) query(ctx context.Context, query string, args ...interface{}) ([]sensor.Reading, error) {
	rows, err := a.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []sensor.Reading
	for rows.Next() {
		var r sensor.Reading
		if err := rows.Scan(
			&r.Timestamp,
			&r.ID,
			&r.DeviceID,
			&r.BabyTemperature,
			&r.AmbientTemperature,
			&r.Humidity,
			&r.SpO2,
			&r.HeartRate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate readings: %w", err)
	}
	return readings, nil
}

// Ping checks that the server is reachable
func (a *Archive) Ping(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (a *Archive) Close() error {
	if a.conn == nil {
		return nil
	}
	if err := a.conn.Close(); err != nil {
		return fmt.Errorf("failed to close ClickHouse connection: %w", err)
	}
	a.logger.Info("ClickHouse connection closed")
	return nil
}
