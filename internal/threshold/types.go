package threshold

import "time"

// Status is the classification stored with every reading.
type Status string

// Reading statuses, from least to most severe.
const (
	StatusNormal   Status = "NORMAL"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// BreachType names which bound a temperature crossed.
type BreachType string

// Breach types.
const (
	BreachCriticalHigh BreachType = "CRITICAL_HIGH"
	BreachWarningHigh  BreachType = "WARNING_HIGH"
	BreachCriticalLow  BreachType = "CRITICAL_LOW"
	BreachWarningLow   BreachType = "WARNING_LOW"
)

// IsCritical reports whether the breach is one of the CRITICAL_* types.
func (b BreachType) IsCritical() bool {
	return b == BreachCriticalHigh || b == BreachCriticalLow
}

// Profile is a named set of temperature and humidity bounds. Any bound may
// be nil, meaning that side is unchecked.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	WarningMin  *float64 `json:"warning_min,omitempty"`
	WarningMax  *float64 `json:"warning_max,omitempty"`
	CriticalMin *float64 `json:"critical_min,omitempty"`
	CriticalMax *float64 `json:"critical_max,omitempty"`

	HumidityWarningMin  *float64 `json:"humidity_warning_min,omitempty"`
	HumidityWarningMax  *float64 `json:"humidity_warning_max,omitempty"`
	HumidityCriticalMin *float64 `json:"humidity_critical_min,omitempty"`
	HumidityCriticalMax *float64 `json:"humidity_critical_max,omitempty"`

	// Stored for excursion reporting; not evaluated here.
	MinExcursionMinutes *int `json:"min_excursion_minutes,omitempty"`
	MaxDurationMinutes  *int `json:"max_duration_minutes,omitempty"`

	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment binds a profile to a device over [EffectiveStart, EffectiveEnd).
// A nil EffectiveEnd is open-ended.
type Assignment struct {
	ID             int64      `json:"id"`
	DeviceID       string     `json:"device_id"`
	Profile        Profile    `json:"profile"`
	EffectiveStart time.Time  `json:"effective_start"`
	EffectiveEnd   *time.Time `json:"effective_end,omitempty"`
	IsDefault      bool       `json:"is_default"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ActiveAt reports whether the assignment covers t.
func (a *Assignment) ActiveAt(t time.Time) bool {
	if a.EffectiveStart.After(t) {
		return false
	}
	return a.EffectiveEnd == nil || a.EffectiveEnd.After(t)
}

// BreachEvent describes one threshold violation, raised after the reading
// that caused it has been committed.
type BreachEvent struct {
	DeviceID       string     `json:"device_id"`
	DeviceName     string     `json:"device_name"`
	ReadingID      int64      `json:"reading_id"`
	Temperature    float64    `json:"temperature"`
	ThresholdValue float64    `json:"threshold_value"`
	Type           BreachType `json:"threshold_type"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
