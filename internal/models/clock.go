package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the wire format of booking dates.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format of booking times.
	ClockLayout = "15:04"
)

// TimeWindow is a same-day booking window with HH:MM bounds.
type TimeWindow struct {
	Start string
	End   string
}

// Slot renders the window as "HH:MM-HH:MM".
func (w TimeWindow) Slot() string {
	return w.Start + "-" + w.End
}

// Overlaps reports whether two windows collide. Bounds are inclusive, so a
// booking ending at 10:00 collides with one starting at 10:00. Zero-padded
// HH:MM strings order the same way as the times they denote.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return other.Start <= w.End && other.End >= w.Start
}

// NormalizeClock parses "H:MM" or "HH:MM" and returns the zero-padded form.
func NormalizeClock(raw string) (string, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	return t.Format(ClockLayout), nil
}

// NewTimeWindow normalises both bounds and requires start < end.
func NewTimeWindow(start, end string) (TimeWindow, error) {
	s, err := NormalizeClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := NormalizeClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	if s >= e {
		return TimeWindow{}, fmt.Errorf("start time %s must be before end time %s", s, e)
	}
	return TimeWindow{Start: s, End: e}, nil
}

// ParseTimeSlot parses a "HH:MM-HH:MM" slot string.
func ParseTimeSlot(raw string) (TimeWindow, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return TimeWindow{}, fmt.Errorf("invalid time slot %q, expected HH:MM-HH:MM", raw)
	}
	return NewTimeWindow(parts[0], parts[1])
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar day at UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders a booking date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
