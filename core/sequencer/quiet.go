package sequencer

import (
	"fmt"
	"time"
)

// QuietHours is a daily window expressed as minutes after midnight.
type QuietHours struct {
	Start, End int
}

// ParseQuietHours parses two HH:MM clock values.
func ParseQuietHours(start, end string) (QuietHours, error) {
	s, err := parseClock(start)
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet start: %w", err)
	}
	e, err := parseClock(end)
	if err != nil {
		return QuietHours{}, fmt.Errorf("quiet end: %w", err)
	}
	return QuietHours{Start: s, End: e}, nil
}

// Contains reports whether t falls inside the window, in t's location.
func (q QuietHours) Contains(t time.Time) bool {
	if q.Start == q.End {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	if q.Start < q.End {
		return m >= q.Start && m < q.End
	}
	return m >= q.Start || m < q.End
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
