package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	isoduration "github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDuration is returned when a duration literal cannot be parsed.
var ErrInvalidDuration = errors.New("config: invalid duration")

// Duration is a time.Duration that decodes from YAML as either an ISO-8601
// duration ("PT30S", "P1DT2H") or a Go duration literal ("30s", "1m30s").
// A bare integer is read as seconds.
type Duration time.Duration

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String formats the duration using Go notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: expected scalar at line %d", ErrInvalidDuration, value.Line)
	}

	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// isoPattern is the designator order ISO-8601 requires: PnYnMnWnDTnHnMnS,
// each part optional but at least one present, and T only before a time part.
var isoPattern = regexp.MustCompile(
	`^-?P(?:\d+(?:\.\d+)?Y)?(?:\d+(?:\.\d+)?M)?(?:\d+(?:\.\d+)?W)?(?:\d+(?:\.\d+)?D)?` +
		`(?:T(?:\d+(?:\.\d+)?H)?(?:\d+(?:\.\d+)?M)?(?:\d+(?:\.\d+)?S)?)?$`)

// ParseDuration parses an ISO-8601 duration, a Go duration literal, or an
// integer number of seconds.
//
// ISO-8601 years and months are rejected because their length depends on the
// calendar; weeks, days, hours, minutes and (fractional) seconds are accepted.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDuration)
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs > maxSeconds || secs < -maxSeconds {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidDuration, s)
		}
		return time.Duration(secs) * time.Second, nil
	}

	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "P") || strings.HasPrefix(upper, "-P") {
		return parseISO8601(upper)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return d, nil
}

const maxSeconds = math.MaxInt64 / int64(time.Second)

// parseISO8601 checks designator order and overflow, then hands the value
// to the duration library.
func parseISO8601(s string) (time.Duration, error) {
	normalized := strings.ReplaceAll(s, ",", ".")
	body := strings.TrimPrefix(normalized, "-")
	if !isoPattern.MatchString(normalized) || body == "P" || strings.HasSuffix(body, "T") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	parsed, err := isoduration.Parse(normalized)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidDuration, s, err)
	}
	if parsed.Years != 0 || parsed.Months != 0 {
		return 0, fmt.Errorf("%w: %q: calendar years and months are not supported", ErrInvalidDuration, s)
	}

	nanos := parsed.Weeks*float64(7*24*time.Hour) +
		parsed.Days*float64(24*time.Hour) +
		parsed.Hours*float64(time.Hour) +
		parsed.Minutes*float64(time.Minute) +
		parsed.Seconds*float64(time.Second)
	if nanos >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidDuration, s)
	}

	return parsed.ToTimeDuration(), nil
}
