package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/database"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// ListActive retrieves devices flagged active, ordered by name.
	ListActive(ctx context.Context) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, device *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, protocol, host, port, serial_port, baud_rate, data_bits,
	stop_bits, parity, slave_id, temperature_register, humidity_register,
	temperature_scale, temperature_offset, humidity_scale, humidity_offset,
	polling_interval_seconds, target_temperature, warning_threshold,
	critical_threshold, active, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return d, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY name, id`)
}

// ListActive retrieves the devices the poller should read.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]Device, error) {
	return r.queryDevices(ctx, `SELECT `+deviceColumns+` FROM devices WHERE active = 1 ORDER BY name, id`)
}

// Create inserts a new device. CreatedAt and UpdatedAt are set to now.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	now := time.Now().UTC().Truncate(time.Second)
	d.CreatedAt = now
	d.UpdatedAt = now

	query := `INSERT INTO devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, deviceArgs(d)...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device. UpdatedAt is set to now.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	d.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query := `UPDATE devices SET
			name = ?, protocol = ?, host = ?, port = ?, serial_port = ?,
			baud_rate = ?, data_bits = ?, stop_bits = ?, parity = ?, slave_id = ?,
			temperature_register = ?, humidity_register = ?,
			temperature_scale = ?, temperature_offset = ?,
			humidity_scale = ?, humidity_offset = ?,
			polling_interval_seconds = ?, target_temperature = ?,
			warning_threshold = ?, critical_threshold = ?, active = ?,
			updated_at = ?
		WHERE id = ?`

	args := deviceArgs(d)
	// Drop id (first) and created_at (second to last), then append id for WHERE.
	updateArgs := append([]any{}, args[1:len(args)-2]...)
	updateArgs = append(updateArgs, args[len(args)-1], d.ID)

	result, err := r.db.ExecContext(ctx, query, updateArgs...)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Delete removes a device by ID. Readings and assignments cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// deviceArgs returns column values in deviceColumns order.
func deviceArgs(d *Device) []any {
	var humidityRegister sql.NullInt64
	if d.HumidityRegister != nil {
		humidityRegister = sql.NullInt64{Int64: int64(*d.HumidityRegister), Valid: true}
	}

	return []any{
		d.ID,
		d.Name,
		string(d.Protocol),
		nullableString(d.Host),
		nullableInt(d.Port),
		nullableString(d.SerialPort),
		d.BaudRate,
		d.DataBits,
		d.StopBits,
		string(d.Parity),
		d.SlaveID,
		int64(d.TemperatureRegister),
		humidityRegister,
		d.TemperatureScale,
		d.TemperatureOffset,
		d.HumidityScale,
		d.HumidityOffset,
		d.PollingIntervalSeconds,
		nullableFloat(d.TargetTemperature),
		nullableFloat(d.WarningThreshold),
		nullableFloat(d.CriticalThreshold),
		boolToInt(d.Active),
		database.FormatTime(d.CreatedAt),
		database.FormatTime(d.UpdatedAt),
	}
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var protocol, parity string
	var host, serialPort sql.NullString
	var port, humidityRegister sql.NullInt64
	var target, warning, critical sql.NullFloat64
	var tempRegister int64
	var active int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&protocol,
		&host,
		&port,
		&serialPort,
		&d.BaudRate,
		&d.DataBits,
		&d.StopBits,
		&parity,
		&d.SlaveID,
		&tempRegister,
		&humidityRegister,
		&d.TemperatureScale,
		&d.TemperatureOffset,
		&d.HumidityScale,
		&d.HumidityOffset,
		&d.PollingIntervalSeconds,
		&target,
		&warning,
		&critical,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.Protocol = Protocol(protocol)
	d.Parity = Parity(parity)
	d.Host = host.String
	d.SerialPort = serialPort.String
	d.Port = int(port.Int64)
	d.TemperatureRegister = uint16(tempRegister) //nolint:gosec // register addresses are 0-65535
	if humidityRegister.Valid {
		v := uint16(humidityRegister.Int64) //nolint:gosec // register addresses are 0-65535
		d.HumidityRegister = &v
	}
	d.TargetTemperature = floatPtr(target)
	d.WarningThreshold = floatPtr(warning)
	d.CriticalThreshold = floatPtr(critical)
	d.Active = active != 0

	var parseErr error
	d.CreatedAt, parseErr = database.ParseTime(createdAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing created_at: %w", parseErr)
	}
	d.UpdatedAt, parseErr = database.ParseTime(updatedAt)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", parseErr)
	}

	return &d, nil
}

// nullableString stores empty strings as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableInt(i int) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
