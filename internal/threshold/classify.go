package threshold

// Classify assigns a reading status.
//
// A failed transmission is CRITICAL. Without a profile or a temperature the
// reading is NORMAL. Otherwise temperature or humidity outside a critical
// bound is CRITICAL, and a value inside a warning band is WARNING.
//
// Temperature warning bands are [criticalMin, warningMin] and
// [warningMax, criticalMax); each needs both of its bounds. Humidity warns
// below humidityWarningMin or above humidityWarningMax.
func Classify(temperature, humidity *float64, profile *Profile, transmissionOK bool) Status {
	if !transmissionOK {
		return StatusCritical
	}
	if profile == nil || temperature == nil {
		return StatusNormal
	}

	t := *temperature
	if criticalTemperature(t, profile) || criticalHumidity(humidity, profile) {
		return StatusCritical
	}
	if warningTemperature(t, profile) || warningHumidity(humidity, profile) {
		return StatusWarning
	}
	return StatusNormal
}

func criticalTemperature(t float64, p *Profile) bool {
	return below(t, p.CriticalMin) || above(t, p.CriticalMax)
}

func warningTemperature(t float64, p *Profile) bool {
	low := p.WarningMin != nil && p.CriticalMin != nil &&
		t >= *p.CriticalMin && t <= *p.WarningMin
	high := p.WarningMax != nil && p.CriticalMax != nil &&
		t >= *p.WarningMax && t < *p.CriticalMax
	return low || high
}

func criticalHumidity(h *float64, p *Profile) bool {
	if h == nil {
		return false
	}
	return below(*h, p.HumidityCriticalMin) || above(*h, p.HumidityCriticalMax)
}

func warningHumidity(h *float64, p *Profile) bool {
	if h == nil {
		return false
	}
	return below(*h, p.HumidityWarningMin) || above(*h, p.HumidityWarningMax)
}

func below(v float64, bound *float64) bool {
	return bound != nil && v < *bound
}

func above(v float64, bound *float64) bool {
	return bound != nil && v > *bound
}
