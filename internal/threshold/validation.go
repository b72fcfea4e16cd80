package threshold

import (
	"fmt"
	"strings"
)

const maxProfileNameLength = 100

// ValidateProfile checks a profile's name and that each min/max pair is
// ordered. Bands are only compared where both bounds are set.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return ErrInvalidProfile
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if len(p.Name) > maxProfileNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidProfile, maxProfileNameLength)
	}

	pairs := []struct {
		label     string
		low, high *float64
	}{
		{"warning", p.WarningMin, p.WarningMax},
		{"critical", p.CriticalMin, p.CriticalMax},
		{"critical/warning min", p.CriticalMin, p.WarningMin},
		{"warning/critical max", p.WarningMax, p.CriticalMax},
		{"humidity warning", p.HumidityWarningMin, p.HumidityWarningMax},
		{"humidity critical", p.HumidityCriticalMin, p.HumidityCriticalMax},
	}
	for _, pair := range pairs {
		if pair.low != nil && pair.high != nil && *pair.low > *pair.high {
			return fmt.Errorf("%w: %s bounds inverted (%v > %v)", ErrInvalidProfile, pair.label, *pair.low, *pair.high)
		}
	}

	if p.MinExcursionMinutes != nil && *p.MinExcursionMinutes < 0 {
		return fmt.Errorf("%w: min excursion minutes must not be negative", ErrInvalidProfile)
	}
	if p.MaxDurationMinutes != nil && *p.MaxDurationMinutes < 0 {
		return fmt.Errorf("%w: max duration minutes must not be negative", ErrInvalidProfile)
	}
	return nil
}
