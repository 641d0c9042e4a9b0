// Package departure parses driver departure input and applies the default
// departure when a prompt stays unanswered.
package departure

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput is returned for departure values that are neither a
// duration nor a time of day.
var ErrInvalidInput = errors.New("invalid departure")

// RetryHint is shown to the driver after a parse failure.
const RetryHint = `enter a duration such as "2h30m" or a time such as "07:30"`

// Parse converts a duration ("2h30m", "90m") or a clock time ("07:30") into
// an absolute departure. Clock times already passed today refer to
// tomorrow.
func Parse(value string, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidInput)
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
		}
		return now.Add(d), nil
	}
	return NextClock(v, now)
}

// NextClock returns the next occurrence of the HH:MM clock value after now,
// in now's location.
func NextClock(clock string, now time.Time) (time.Time, error) {
	c, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInput, clock)
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), c.Hour(), c.Minute(), 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
