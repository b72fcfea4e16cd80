package reading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/database"
	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

// ErrNotFound is returned by Latest when a device has no readings.
var ErrNotFound = errors.New("reading: not found")

// defaultListLimit caps ListByDevice when limit is not positive.
const defaultListLimit = 1000

// Repository defines reading persistence.
type Repository interface {
	// InsertTx stores r inside tx and sets r.ID.
	InsertTx(ctx context.Context, tx *sql.Tx, r *Reading) error

	// ListByDevice returns readings recorded at or after since, newest first.
	ListByDevice(ctx context.Context, deviceID string, since time.Time, limit int) ([]Reading, error)

	// Latest returns the most recent reading or ErrNotFound.
	Latest(ctx context.Context, deviceID string) (*Reading, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// InsertTx stores r inside tx. The caller owns commit and rollback.
func (r *SQLiteRepository) InsertTx(ctx context.Context, tx *sql.Tx, rd *Reading) error {
	var message sql.NullString
	if rd.ErrorMessage != "" {
		message = sql.NullString{String: rd.ErrorMessage, Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO readings (device_id, recorded_at, temperature, humidity, status, transmission_ok, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rd.DeviceID,
		database.FormatTime(rd.RecordedAt),
		nullableFloat(rd.Temperature),
		nullableFloat(rd.Humidity),
		string(rd.Status),
		boolToInt(rd.TransmissionOK),
		message,
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted id: %w", err)
	}
	rd.ID = id
	return nil
}

// ListByDevice returns up to limit readings for deviceID since the given time.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string, since time.Time, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, recorded_at, temperature, humidity, status, transmission_ok, error_message
		FROM readings
		WHERE device_id = ? AND recorded_at >= ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?`,
		deviceID, database.FormatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		readings = append(readings, *rd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// Latest returns the newest reading for deviceID.
func (r *SQLiteRepository) Latest(ctx context.Context, deviceID string) (*Reading, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, recorded_at, temperature, humidity, status, transmission_ok, error_message
		FROM readings
		WHERE device_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`, deviceID)

	rd, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying latest reading: %w", err)
	}
	return rd, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(scanner rowScanner) (*Reading, error) {
	var rd Reading
	var recordedAt, status string
	var temperature, humidity sql.NullFloat64
	var transmissionOK int
	var message sql.NullString

	if err := scanner.Scan(&rd.ID, &rd.DeviceID, &recordedAt, &temperature, &humidity,
		&status, &transmissionOK, &message); err != nil {
		return nil, err
	}

	t, err := database.ParseTime(recordedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing recorded_at: %w", err)
	}
	rd.RecordedAt = t
	if temperature.Valid {
		v := temperature.Float64
		rd.Temperature = &v
	}
	if humidity.Valid {
		v := humidity.Float64
		rd.Humidity = &v
	}
	rd.Status = threshold.Status(status)
	rd.TransmissionOK = transmissionOK != 0
	rd.ErrorMessage = message.String
	return &rd, nil
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
