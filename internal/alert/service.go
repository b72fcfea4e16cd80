package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/coldwatch-core/internal/infrastructure/metrics"
	"github.com/nerrad567/coldwatch-core/internal/threshold"
)

// DefaultDedupWindow is used when ServiceOptions.DedupWindow is zero.
const DefaultDedupWindow = 30 * time.Minute

// Outcome values passed to Notifier.
const (
	OutcomeCreated      = "created"
	OutcomeDeduplicated = "deduplicated"
	OutcomeAcknowledged = "acknowledged"
	OutcomeResolved     = "resolved"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Notifier is told about every alert change. Errors are logged only.
type Notifier interface {
	NotifyAlert(ctx context.Context, a *Alert, outcome string) error
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// DedupWindow is how long an active alert keeps absorbing new breaches
	// after its last activity. Default: 30 minutes.
	DedupWindow time.Duration

	// Notifier is optional.
	Notifier Notifier

	Logger Logger
}

// Service owns alert creation and lifecycle.
type Service struct {
	repo        Repository
	dedupWindow time.Duration
	notifier    Notifier
	logger      Logger
	now         func() time.Time
}

// NewService creates an alert service.
func NewService(repo Repository, opts ServiceOptions) *Service {
	window := opts.DedupWindow
	if window <= 0 {
		window = DefaultDedupWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Service{
		repo:        repo,
		dedupWindow: window,
		notifier:    opts.Notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// SeverityFor maps a breach type to an alert severity.
func SeverityFor(t threshold.BreachType) Severity {
	if t.IsCritical() {
		return SeverityCritical
	}
	return SeverityWarning
}

// FormatMessage renders the human-readable alert text for a breach.
func FormatMessage(ev threshold.BreachEvent) string {
	name := ev.DeviceName
	if name == "" {
		name = ev.DeviceID
	}
	return fmt.Sprintf("Temperature threshold violated for %s: %s°C (%s threshold %s°C)",
		name, formatCelsius(ev.Temperature), ev.Type, formatCelsius(ev.ThresholdValue))
}

func formatCelsius(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// HandleBreach turns a breach event into an alert, deduplicating against
// recent active alerts for the same device.
func (s *Service) HandleBreach(ctx context.Context, ev threshold.BreachEvent) (*Alert, error) {
	if ev.DeviceID == "" {
		return nil, fmt.Errorf("%w: breach event without device", ErrInvalidAlert)
	}

	payload, err := json.Marshal(BreachContext{
		Temperature:    ev.Temperature,
		ThresholdValue: ev.ThresholdValue,
		ThresholdType:  string(ev.Type),
		ReadingID:      ev.ReadingID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling alert context: %w", err)
	}

	now := s.now()
	candidate := &Alert{
		Type:       TypeFreezerTemperature,
		EntityType: EntityFreezer,
		EntityID:   ev.DeviceID,
		Severity:   SeverityFor(ev.Type),
		StartTime:  now,
		Message:    FormatMessage(ev),
		Context:    payload,
	}

	stored, deduplicated, err := s.repo.Raise(ctx, candidate, now.Add(-s.dedupWindow))
	if err != nil {
		return nil, fmt.Errorf("raising alert for %s: %w", ev.DeviceID, err)
	}

	outcome := OutcomeCreated
	if deduplicated {
		outcome = OutcomeDeduplicated
		s.logger.Debug("breach merged into active alert",
			"alert_id", stored.ID,
			"device_id", ev.DeviceID,
			"duplicate_count", stored.DuplicateCount,
		)
	} else {
		s.logger.Info("alert raised",
			"alert_id", stored.ID,
			"device_id", ev.DeviceID,
			"severity", stored.Severity,
			"message", stored.Message,
		)
	}
	metrics.AlertsRaised.WithLabelValues(outcome, string(candidate.Severity)).Inc()
	s.notify(ctx, stored, outcome)

	return stored, nil
}

// Acknowledge moves an OPEN alert to ACKNOWLEDGED.
func (s *Service) Acknowledge(ctx context.Context, id, user string) (*Alert, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusOpen {
		return nil, fmt.Errorf("%w: cannot acknowledge %s alert", ErrInvalidTransition, strings.ToLower(string(a.Status)))
	}

	now := s.now().UTC()
	a.Status = StatusAcknowledged
	a.AcknowledgedAt = &now
	a.AcknowledgedBy = user

	if err := s.repo.Transition(ctx, a, StatusOpen); err != nil {
		return nil, err
	}

	s.logger.Info("alert acknowledged", "alert_id", id, "user", user)
	s.notify(ctx, a, OutcomeAcknowledged)
	return a, nil
}

// Resolve moves an OPEN or ACKNOWLEDGED alert to RESOLVED.
func (s *Service) Resolve(ctx context.Context, id, user, notes string) (*Alert, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.IsActive() {
		return nil, fmt.Errorf("%w: alert is already resolved", ErrInvalidTransition)
	}

	from := a.Status
	now := s.now().UTC()
	a.Status = StatusResolved
	a.ResolvedAt = &now
	a.ResolvedBy = user
	a.ResolutionNotes = notes

	if err := s.repo.Transition(ctx, a, from); err != nil {
		return nil, err
	}

	s.logger.Info("alert resolved", "alert_id", id, "user", user)
	s.notify(ctx, a, OutcomeResolved)
	return a, nil
}

// Get returns an alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	return s.repo.GetByID(ctx, id)
}

// ListForDevice returns a device's alerts, newest first.
func (s *Service) ListForDevice(ctx context.Context, deviceID string) ([]Alert, error) {
	return s.repo.ListByEntity(ctx, EntityFreezer, deviceID)
}

// CountActive returns the number of alerts awaiting resolution.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}

func (s *Service) notify(ctx context.Context, a *Alert, outcome string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAlert(ctx, a, outcome); err != nil {
		level := s.logger.Warn
		if errors.Is(err, context.Canceled) {
			level = s.logger.Debug
		}
		level("alert notification failed", "alert_id", a.ID, "outcome", outcome, "error", err)
	}
}
