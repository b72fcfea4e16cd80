package threshold

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/database"
)

// AssignmentFinder is the lookup the Resolver needs.
type AssignmentFinder interface {
	// FindActiveAssignments returns the device's assignments whose window
	// covers t: effective_start <= t and (effective_end is null or > t).
	FindActiveAssignments(ctx context.Context, deviceID string, t time.Time) ([]Assignment, error)
}

// Repository defines threshold profile and assignment persistence.
type Repository interface {
	AssignmentFinder

	// CreateProfile inserts a profile, generating an ID when empty.
	CreateProfile(ctx context.Context, p *Profile) error

	// GetProfile returns ErrProfileNotFound for unknown IDs.
	GetProfile(ctx context.Context, id string) (*Profile, error)

	// CreateAssignment inserts an assignment and sets its ID.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// EndAssignment closes an assignment's window at end.
	EndAssignment(ctx context.Context, id int64, end time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const profileColumns = `p.id, p.name, p.description, p.warning_min, p.warning_max,
	p.critical_min, p.critical_max, p.humidity_warning_min, p.humidity_warning_max,
	p.humidity_critical_min, p.humidity_critical_max, p.min_excursion_minutes,
	p.max_duration_minutes, p.created_by, p.created_at`

// CreateProfile inserts a new threshold profile.
func (r *SQLiteRepository) CreateProfile(ctx context.Context, p *Profile) error {
	if err := ValidateProfile(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = "prf-" + uuid.NewString()[:8]
	}
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO threshold_profiles (
			id, name, description, warning_min, warning_max, critical_min, critical_max,
			humidity_warning_min, humidity_warning_max, humidity_critical_min, humidity_critical_max,
			min_excursion_minutes, max_duration_minutes, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.Name,
		nullableString(p.Description),
		nullableFloat(p.WarningMin),
		nullableFloat(p.WarningMax),
		nullableFloat(p.CriticalMin),
		nullableFloat(p.CriticalMax),
		nullableFloat(p.HumidityWarningMin),
		nullableFloat(p.HumidityWarningMax),
		nullableFloat(p.HumidityCriticalMin),
		nullableFloat(p.HumidityCriticalMax),
		nullableInt(p.MinExcursionMinutes),
		nullableInt(p.MaxDurationMinutes),
		nullableString(p.CreatedBy),
		database.FormatTime(p.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrProfileExists
		}
		return fmt.Errorf("inserting threshold profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by ID.
func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM threshold_profiles p WHERE p.id = ?`, id)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("querying threshold profile: %w", err)
	}
	return p, nil
}

// CreateAssignment inserts an assignment of a.Profile.ID to a.DeviceID.
func (r *SQLiteRepository) CreateAssignment(ctx context.Context, a *Assignment) error {
	if a.DeviceID == "" || a.Profile.ID == "" {
		return fmt.Errorf("%w: device and profile are required", ErrInvalidAssignment)
	}
	if a.EffectiveStart.IsZero() {
		return fmt.Errorf("%w: effective start is required", ErrInvalidAssignment)
	}
	if a.EffectiveEnd != nil && !a.EffectiveEnd.After(a.EffectiveStart) {
		return fmt.Errorf("%w: effective end must be after start", ErrInvalidAssignment)
	}
	a.CreatedAt = time.Now().UTC().Truncate(time.Second)

	var end sql.NullString
	if a.EffectiveEnd != nil {
		end = sql.NullString{String: database.FormatTime(*a.EffectiveEnd), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO threshold_assignments (device_id, profile_id, effective_start, effective_end, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.DeviceID,
		a.Profile.ID,
		database.FormatTime(a.EffectiveStart),
		end,
		boolToInt(a.IsDefault),
		database.FormatTime(a.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: unknown device or profile", ErrInvalidAssignment)
		}
		return fmt.Errorf("inserting threshold assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading assignment id: %w", err)
	}
	a.ID = id
	return nil
}

// EndAssignment sets the effective end of an assignment.
func (r *SQLiteRepository) EndAssignment(ctx context.Context, id int64, end time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE threshold_assignments SET effective_end = ? WHERE id = ? AND effective_start < ?`,
		database.FormatTime(end), id, database.FormatTime(end))
	if err != nil {
		return fmt.Errorf("ending threshold assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM threshold_assignments WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("checking assignment exists: %w", err)
		}
		if exists == 0 {
			return ErrAssignmentNotFound
		}
		return fmt.Errorf("%w: effective end must be after start", ErrInvalidAssignment)
	}
	return nil
}

// FindActiveAssignments returns assignments covering t, newest start first.
func (r *SQLiteRepository) FindActiveAssignments(ctx context.Context, deviceID string, t time.Time) ([]Assignment, error) {
	at := database.FormatTime(t)
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.device_id, a.effective_start, a.effective_end, a.is_default, a.created_at,
			`+profileColumns+`
		FROM threshold_assignments a
		JOIN threshold_profiles p ON p.id = a.profile_id
		WHERE a.device_id = ?
			AND a.effective_start <= ?
			AND (a.effective_end IS NULL OR a.effective_end > ?)
		ORDER BY a.effective_start DESC, a.is_default DESC, a.id DESC`,
		deviceID, at, at)
	if err != nil {
		return nil, fmt.Errorf("querying active assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignments: %w", err)
	}
	return assignments, nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// profileDest holds nullable scan targets for profileColumns.
type profileDest struct {
	description, createdBy    sql.NullString
	warnMin, warnMax          sql.NullFloat64
	critMin, critMax          sql.NullFloat64
	humWarnMin, humWarnMax    sql.NullFloat64
	humCritMin, humCritMax    sql.NullFloat64
	minExcursion, maxDuration sql.NullInt64
	createdAt                 string
}

func (d *profileDest) targets(p *Profile) []any {
	return []any{
		&p.ID, &p.Name, &d.description,
		&d.warnMin, &d.warnMax, &d.critMin, &d.critMax,
		&d.humWarnMin, &d.humWarnMax, &d.humCritMin, &d.humCritMax,
		&d.minExcursion, &d.maxDuration, &d.createdBy, &d.createdAt,
	}
}

func (d *profileDest) apply(p *Profile) error {
	p.Description = d.description.String
	p.CreatedBy = d.createdBy.String
	p.WarningMin = floatPtr(d.warnMin)
	p.WarningMax = floatPtr(d.warnMax)
	p.CriticalMin = floatPtr(d.critMin)
	p.CriticalMax = floatPtr(d.critMax)
	p.HumidityWarningMin = floatPtr(d.humWarnMin)
	p.HumidityWarningMax = floatPtr(d.humWarnMax)
	p.HumidityCriticalMin = floatPtr(d.humCritMin)
	p.HumidityCriticalMax = floatPtr(d.humCritMax)
	p.MinExcursionMinutes = intPtr(d.minExcursion)
	p.MaxDurationMinutes = intPtr(d.maxDuration)

	var err error
	p.CreatedAt, err = database.ParseTime(d.createdAt)
	if err != nil {
		return fmt.Errorf("parsing profile created_at: %w", err)
	}
	return nil
}

func scanProfile(scanner rowScanner) (*Profile, error) {
	var p Profile
	var dest profileDest
	if err := scanner.Scan(dest.targets(&p)...); err != nil {
		return nil, err
	}
	if err := dest.apply(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanAssignment(scanner rowScanner) (*Assignment, error) {
	var a Assignment
	var start, createdAt string
	var end sql.NullString
	var isDefault int
	var dest profileDest

	targets := append([]any{&a.ID, &a.DeviceID, &start, &end, &isDefault, &createdAt},
		dest.targets(&a.Profile)...)
	if err := scanner.Scan(targets...); err != nil {
		return nil, err
	}
	if err := dest.apply(&a.Profile); err != nil {
		return nil, err
	}

	var err error
	if a.EffectiveStart, err = database.ParseTime(start); err != nil {
		return nil, fmt.Errorf("parsing effective_start: %w", err)
	}
	if end.Valid {
		e, err := database.ParseTime(end.String)
		if err != nil {
			return nil, fmt.Errorf("parsing effective_end: %w", err)
		}
		a.EffectiveEnd = &e
	}
	if a.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	a.IsDefault = isDefault != 0
	return &a, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullableInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
