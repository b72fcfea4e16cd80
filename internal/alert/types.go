package alert

import (
	"encoding/json"
	"time"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Status is an alert's lifecycle state.
type Status string

const (
	StatusOpen         Status = "OPEN"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusResolved     Status = "RESOLVED"
)

// IsActive reports whether the alert still needs attention.
func (s Status) IsActive() bool {
	return s == StatusOpen || s == StatusAcknowledged
}

const (
	// TypeFreezerTemperature tags alerts raised from temperature breaches.
	TypeFreezerTemperature = "FREEZER_TEMPERATURE"

	// EntityFreezer is the entity type of monitored devices.
	EntityFreezer = "Freezer"
)

// Alert is a user-visible alert record.
type Alert struct {
	ID         string    `json:"id"`
	Type       string    `json:"alert_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Severity   Severity  `json:"severity"`
	Status     Status    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	Message    string    `json:"message"`

	// Context is the structured payload describing what raised the alert.
	Context json.RawMessage `json:"context,omitempty"`

	// DuplicateCount counts breaches absorbed by this alert after it opened.
	DuplicateCount    int        `json:"duplicate_count"`
	LastDuplicateTime *time.Time `json:"last_duplicate_time,omitempty"`

	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string     `json:"acknowledged_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// BreachContext is the Context payload of a temperature alert.
type BreachContext struct {
	Temperature    float64 `json:"temperature"`
	ThresholdValue float64 `json:"thresholdValue"`
	ThresholdType  string  `json:"thresholdType"`
	ReadingID      int64   `json:"readingId"`
}
