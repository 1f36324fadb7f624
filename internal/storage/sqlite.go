package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/afroash/airquality-monitor/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Store defines the interface for poll result storage
type Store interface {
	Close() error
	Migrate() error
	InsertResult(result *models.PollResult) error
	InsertBatch(results []*models.PollResult) error
	GetResultsInRange(sensorID string, start, end time.Time, limit int) ([]*models.PollResult, error)
	GetLatestResult(sensorID string) (*models.PollResult, error)
	GetStatusCounts(sensorID string, start, end time.Time) (map[models.DeviceStatus]int, error)
	DeleteOlderThan(days int) (int64, error)
	TrimToLatest(maxRows int64) (int64, error)
	GetStorageStats() (*StorageStats, error)
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists poll results in a local SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// StorageStats contains information about the database
type StorageStats struct {
	TotalResults   int64     `json:"total_results"`
	FailedResults  int64     `json:"failed_results"`
	OldestResult   time.Time `json:"oldest_result,omitempty"`
	NewestResult   time.Time `json:"newest_result,omitempty"`
	UniqueSensors  int       `json:"unique_sensors"`
	DatabaseSizeMB float64   `json:"database_size_mb"`
}

// NewSQLiteStore opens (and migrates) the database at dbPath
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("SQLite store initialized")

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate creates the database schema if it doesn't exist
func (s *SQLiteStore) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS poll_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sensor_id TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		clock_status TEXT NOT NULL,
		temperature REAL,
		pressure REAL,
		humidity REAL,
		gas_resistance REAL,
		iaq REAL,
		air_quality TEXT,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_results_sensor_time ON poll_results(sensor_id, recorded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_results_time ON poll_results(recorded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_results_status ON poll_results(status);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Debug().Msg("Database schema migrated")
	return nil
}

const insertQuery = `
	INSERT INTO poll_results (
		sensor_id, recorded_at, status, clock_status,
		temperature, pressure, humidity, gas_resistance, iaq, air_quality, error
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `
	SELECT sensor_id, recorded_at, status, clock_status,
		temperature, pressure, humidity, gas_resistance, iaq, air_quality, error
	FROM poll_results
`

// insertArgs flattens a result into column values. Measurement columns are
// NULL when the cycle produced no sample. Results from a clock that is not
// ready are stamped with the host time so retention does not discard them.
func insertArgs(r *models.PollResult) []any {
	recordedAt := r.Time.Time()
	if r.Time.IsZero() || r.ClockStatus != models.StatusReady {
		recordedAt = time.Now().UTC()
	}

	args := []any{
		r.SensorID,
		recordedAt.Format(timeLayout),
		r.Status.String(),
		r.ClockStatus.String(),
	}

	if !r.HasReading() {
		return append(args, nil, nil, nil, nil, nil, nil, r.Err)
	}

	return append(args,
		r.Reading.Temperature,
		r.Reading.Pressure,
		r.Reading.Humidity,
		r.Reading.GasResistance,
		r.Reading.IAQ,
		r.Reading.AirQuality.String(),
		r.Err,
	)
}

// InsertResult inserts a single poll result
func (s *SQLiteStore) InsertResult(result *models.PollResult) error {
	if _, err := s.db.Exec(insertQuery, insertArgs(result)...); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// InsertBatch inserts multiple results in a single transaction
func (s *SQLiteStore) InsertBatch(results []*models.PollResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, result := range results {
		if _, err := stmt.Exec(insertArgs(result)...); err != nil {
			return fmt.Errorf("failed to insert result in batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug().Int("count", len(results)).Msg("Batch insert completed")
	return nil
}

// GetResultsInRange returns results within a time range, newest first.
// An empty sensorID matches every sensor.
func (s *SQLiteStore) GetResultsInRange(sensorID string, start, end time.Time, limit int) ([]*models.PollResult, error) {
	query := selectColumns + `
		WHERE (? = '' OR sensor_id = ?) AND recorded_at BETWEEN ? AND ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query,
		sensorID, sensorID,
		start.UTC().Format(timeLayout),
		end.UTC().Format(timeLayout),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// GetLatestResult returns the most recent result for a sensor, or nil if there is none
func (s *SQLiteStore) GetLatestResult(sensorID string) (*models.PollResult, error) {
	query := selectColumns + `
		WHERE sensor_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`

	result, err := scanResult(s.db.QueryRow(query, sensorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}

	return result, nil
}

// GetStatusCounts tallies sensor statuses over a time range
func (s *SQLiteStore) GetStatusCounts(sensorID string, start, end time.Time) (map[models.DeviceStatus]int, error) {
	rows, err := s.db.Query(`
		SELECT status, COUNT(*)
		FROM poll_results
		WHERE (? = '' OR sensor_id = ?) AND recorded_at BETWEEN ? AND ?
		GROUP BY status
	`, sensorID, sensorID, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DeviceStatus]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		status, err := models.ParseDeviceStatus(name)
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

// DeleteOlderThan removes results recorded more than days ago
func (s *SQLiteStore) DeleteOlderThan(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	result, err := s.db.Exec(
		"DELETE FROM poll_results WHERE recorded_at < ?",
		cutoff.Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old results: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info().
		Int("days", days).
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Deleted old results")

	return deleted, nil
}

// TrimToLatest keeps only the newest maxRows results
func (s *SQLiteStore) TrimToLatest(maxRows int64) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM poll_results
		WHERE id NOT IN (
			SELECT id FROM poll_results
			ORDER BY recorded_at DESC, id DESC
			LIMIT ?
		)
	`, maxRows)
	if err != nil {
		return 0, fmt.Errorf("failed to trim results: %w", err)
	}

	trimmed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return trimmed, nil
}

// GetStorageStats returns statistics about the database
func (s *SQLiteStore) GetStorageStats() (*StorageStats, error) {
	stats := &StorageStats{}

	err := s.db.QueryRow("SELECT COUNT(*) FROM poll_results").Scan(&stats.TotalResults)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	if stats.TotalResults == 0 {
		return stats, nil
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM poll_results WHERE status != ?", models.StatusReady.String()).
		Scan(&stats.FailedResults)
	if err != nil {
		return nil, fmt.Errorf("failed to count failed results: %w", err)
	}

	var oldestStr, newestStr string
	err = s.db.QueryRow("SELECT MIN(recorded_at), MAX(recorded_at) FROM poll_results").
		Scan(&oldestStr, &newestStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get timestamp range: %w", err)
	}

	stats.OldestResult, _ = parseTimestamp(oldestStr)
	stats.NewestResult, _ = parseTimestamp(newestStr)

	err = s.db.QueryRow("SELECT COUNT(DISTINCT sensor_id) FROM poll_results").Scan(&stats.UniqueSensors)
	if err != nil {
		return nil, fmt.Errorf("failed to count sensors: %w", err)
	}

	var pageCount, pageSize int64
	s.db.QueryRow("PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRow("PRAGMA page_size").Scan(&pageSize)
	stats.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)

	return stats, nil
}

func scanResult(row interface{ Scan(...any) error }) (*models.PollResult, error) {
	var r models.PollResult
	var recordedAt, status, clockStatus string
	var temperature, pressure, humidity, gas, iaq sql.NullFloat64
	var quality sql.NullString

	err := row.Scan(&r.SensorID, &recordedAt, &status, &clockStatus,
		&temperature, &pressure, &humidity, &gas, &iaq, &quality, &r.Err)
	if err != nil {
		return nil, err
	}

	t, err := parseTimestamp(recordedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
	}
	r.Time = models.RTCTimeFrom(t)

	if r.Status, err = models.ParseDeviceStatus(status); err != nil {
		return nil, err
	}
	if r.ClockStatus, err = models.ParseDeviceStatus(clockStatus); err != nil {
		return nil, err
	}

	r.Reading = models.Reading{
		Temperature:   temperature.Float64,
		Pressure:      pressure.Float64,
		Humidity:      humidity.Float64,
		GasResistance: gas.Float64,
		IAQ:           iaq.Float64,
	}
	if quality.Valid {
		if r.Reading.AirQuality, err = models.ParseAirQuality(quality.String); err != nil {
			return nil, err
		}
	}

	return &r, nil
}

func scanResults(rows *sql.Rows) ([]*models.PollResult, error) {
	var results []*models.PollResult

	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// parseTimestamp tries the formats the sqlite3 driver may hand back
func parseTimestamp(ts string) (time.Time, error) {
	formats := []string{
		timeLayout,
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05.000",
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, ts); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse timestamp: %s", ts)
}
