package threshold

import (
	"math"

	"github.com/nerrad567/coldwatch-core/internal/device"
)

// DetectBreach reports the bound the reading from d crossed, if any.
// ReadingID and OccurredAt are left for the caller to fill in.
//
// With a profile the checks run in order critical max, warning max,
// critical min, warning min, and the first hit wins. Without one the
// device's target temperature and deviation thresholds are used; critical
// is checked before warning and the reported threshold is target ± the
// deviation on the side the temperature moved to.
func DetectBreach(d *device.Device, profile *Profile, temperature *float64) *BreachEvent {
	if d == nil || temperature == nil {
		return nil
	}
	t := *temperature

	var (
		kind  BreachType
		value float64
		found bool
	)
	if profile != nil {
		kind, value, found = profileBreach(t, profile)
	} else {
		kind, value, found = fallbackBreach(t, d)
	}
	if !found {
		return nil
	}

	return &BreachEvent{
		DeviceID:       d.ID,
		DeviceName:     d.Name,
		Temperature:    t,
		ThresholdValue: value,
		Type:           kind,
	}
}

func profileBreach(t float64, p *Profile) (BreachType, float64, bool) {
	switch {
	case above(t, p.CriticalMax):
		return BreachCriticalHigh, *p.CriticalMax, true
	case above(t, p.WarningMax):
		return BreachWarningHigh, *p.WarningMax, true
	case below(t, p.CriticalMin):
		return BreachCriticalLow, *p.CriticalMin, true
	case below(t, p.WarningMin):
		return BreachWarningLow, *p.WarningMin, true
	}
	return "", 0, false
}

func fallbackBreach(t float64, d *device.Device) (BreachType, float64, bool) {
	if d.TargetTemperature == nil {
		return "", 0, false
	}
	target := *d.TargetTemperature
	deviation := math.Abs(t - target)
	high := t > target

	if d.CriticalThreshold != nil && deviation > *d.CriticalThreshold {
		if high {
			return BreachCriticalHigh, target + *d.CriticalThreshold, true
		}
		return BreachCriticalLow, target - *d.CriticalThreshold, true
	}
	if d.WarningThreshold != nil && deviation > *d.WarningThreshold {
		if high {
			return BreachWarningHigh, target + *d.WarningThreshold, true
		}
		return BreachWarningLow, target - *d.WarningThreshold, true
	}
	return "", 0, false
}
