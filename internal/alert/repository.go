package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/database"
)

// Repository defines alert persistence.
type Repository interface {
	// Raise stores a, unless an active alert of the same type and entity
	// has seen activity after cutoff. In that case the existing alert's
	// duplicate counter is bumped and it is returned with deduplicated=true.
	Raise(ctx context.Context, a *Alert, cutoff time.Time) (stored *Alert, deduplicated bool, err error)

	// GetByID returns ErrAlertNotFound for unknown IDs.
	GetByID(ctx context.Context, id string) (*Alert, error)

	// Transition persists a's lifecycle fields if the stored status is
	// still from. Otherwise it returns ErrInvalidTransition.
	Transition(ctx context.Context, a *Alert, from Status) error

	// ListByEntity returns an entity's alerts, newest first.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Alert, error)

	// CountActive counts OPEN and ACKNOWLEDGED alerts.
	CountActive(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new alert repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const alertColumns = `id, alert_type, entity_type, entity_id, severity, status, start_time,
	message, context, duplicate_count, last_duplicate_time, acknowledged_at, acknowledged_by,
	resolved_at, resolved_by, resolution_notes, updated_at`

// Raise creates an alert or merges it into a recent active duplicate.
// The lookup and the write share one transaction.
func (r *SQLiteRepository) Raise(ctx context.Context, a *Alert, cutoff time.Time) (*Alert, bool, error) {
	if a.Type == "" || a.EntityType == "" || a.EntityID == "" {
		return nil, false, fmt.Errorf("%w: type and entity are required", ErrInvalidAlert)
	}

	now := a.StartTime
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	var (
		stored       *Alert
		deduplicated bool
	)
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		existing, err := scanAlert(tx.QueryRowContext(ctx, `
			SELECT `+alertColumns+` FROM alerts
			WHERE alert_type = ? AND entity_type = ? AND entity_id = ?
			  AND status IN ('OPEN', 'ACKNOWLEDGED')
			  AND COALESCE(last_duplicate_time, start_time) > ?
			ORDER BY start_time DESC, id DESC
			LIMIT 1`,
			a.Type, a.EntityType, a.EntityID, formatTime(cutoff),
		))
		switch {
		case err == nil:
			existing.DuplicateCount++
			existing.LastDuplicateTime = &now
			existing.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, `
				UPDATE alerts SET duplicate_count = ?, last_duplicate_time = ?, updated_at = ?
				WHERE id = ?`,
				existing.DuplicateCount, formatTime(now), formatTime(now), existing.ID,
			); err != nil {
				return fmt.Errorf("recording duplicate: %w", err)
			}
			stored, deduplicated = existing, true
			return nil
		case !errors.Is(err, ErrAlertNotFound):
			return fmt.Errorf("finding duplicate alert: %w", err)
		}

		if a.ID == "" {
			a.ID = "alt-" + uuid.NewString()[:8]
		}
		a.Status = StatusOpen
		a.StartTime = now
		a.UpdatedAt = now
		a.DuplicateCount = 0
		a.LastDuplicateTime = nil

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (id, alert_type, entity_type, entity_id, severity, status,
				start_time, message, context, duplicate_count, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			a.ID, a.Type, a.EntityType, a.EntityID, string(a.Severity), string(a.Status),
			formatTime(a.StartTime), a.Message, nullableJSON(a.Context), formatTime(a.UpdatedAt),
		); err != nil {
			return fmt.Errorf("inserting alert: %w", err)
		}
		stored = a
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, deduplicated, nil
}

// GetByID retrieves an alert by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Alert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("querying alert: %w", err)
	}
	return a, nil
}

// Transition writes the lifecycle fields of a, guarded by its previous status.
func (r *SQLiteRepository) Transition(ctx context.Context, a *Alert, from Status) error {
	a.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET
			status = ?, acknowledged_at = ?, acknowledged_by = ?,
			resolved_at = ?, resolved_by = ?, resolution_notes = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(a.Status),
		nullableTime(a.AcknowledgedAt),
		nullableString(a.AcknowledgedBy),
		nullableTime(a.ResolvedAt),
		nullableString(a.ResolvedBy),
		nullableString(a.ResolutionNotes),
		formatTime(a.UpdatedAt),
		a.ID,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("updating alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, a.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: alert %s is no longer %s", ErrInvalidTransition, a.ID, from)
	}
	return nil
}

// ListByEntity returns all alerts for an entity, most recent first.
func (r *SQLiteRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY start_time DESC, id DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}
	return alerts, nil
}

// CountActive returns the number of OPEN and ACKNOWLEDGED alerts.
func (r *SQLiteRepository) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE status IN ('OPEN', 'ACKNOWLEDGED')`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active alerts: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var (
		a                                    Alert
		severity, status, startTime, updated string
		contextJSON                          sql.NullString
		lastDup, ackAt, resolvedAt           sql.NullString
		ackBy, resolvedBy, notes             sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.Type, &a.EntityType, &a.EntityID, &severity, &status, &startTime,
		&a.Message, &contextJSON, &a.DuplicateCount, &lastDup, &ackAt, &ackBy,
		&resolvedAt, &resolvedBy, &notes, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("scanning alert: %w", err)
	}

	a.Severity = Severity(severity)
	a.Status = Status(status)
	a.StartTime = parseTime(startTime)
	a.UpdatedAt = parseTime(updated)
	if contextJSON.Valid {
		a.Context = []byte(contextJSON.String)
	}
	a.LastDuplicateTime = parseNullTime(lastDup)
	a.AcknowledgedAt = parseNullTime(ackAt)
	a.AcknowledgedBy = ackBy.String
	a.ResolvedAt = parseNullTime(resolvedAt)
	a.ResolvedBy = resolvedBy.String
	a.ResolutionNotes = notes.String
	return &a, nil
}

func formatTime(t time.Time) string {
	return database.FormatTime(t)
}

func parseTime(s string) time.Time {
	t, _ := database.ParseTime(s) //nolint:errcheck // written by formatTime
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
