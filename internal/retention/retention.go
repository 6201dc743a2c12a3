// Package retention classifies how urgently a lot should be used from its
// best-before date.
package retention

import (
	"time"
)

// DateLayout is the layout of stored calendar dates.
const DateLayout = "2006-01-02"

// Level is the urgency of a lot.
type Level string

// Urgency levels.
const (
	Unknown Level = "unknown"
	Red     Level = "red"
	Yellow  Level = "yellow"
	Green   Level = "green"
)

// Default thresholds, in days.
const (
	DefaultWarningDays  = 30
	DefaultCriticalDays = 14
)

// Thresholds are the warning and critical windows, in days.
type Thresholds struct {
	Warning  int `json:"warning_days"`
	Critical int `json:"critical_days"`
}

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: DefaultWarningDays, Critical: DefaultCriticalDays}
}

// Normalize clamps negative windows to zero and the critical window to the
// warning window.
func (t Thresholds) Normalize() Thresholds {
	t.Warning = max(t.Warning, 0)
	t.Critical = max(t.Critical, 0)
	if t.Critical > t.Warning {
		t.Critical = t.Warning
	}
	return t
}

// DaysUntil returns the number of calendar days from today to date. The bool
// is false when date is empty or malformed.
func DaysUntil(date string, today time.Time) (int, bool) {
	if date == "" {
		return 0, false
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, false
	}
	y, m, dd := today.Date()
	t := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24), true
}

// Status classifies a best-before date against the thresholds, relative to
// today's calendar date.
func Status(bestBefore string, warnDays, critDays int, today time.Time) Level {
	days, ok := DaysUntil(bestBefore, today)
	if !ok {
		return Unknown
	}
	switch {
	case days <= critDays:
		return Red
	case days <= warnDays:
		return Yellow
	default:
		return Green
	}
}

// Classifier classifies dates with fixed thresholds and a clock.
type Classifier struct {
	Thresholds Thresholds
	Now        func() time.Time
}

// NewClassifier returns a classifier using the local wall clock.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{Thresholds: t.Normalize(), Now: time.Now}
}

// Status classifies bestBefore against today's local date.
func (c *Classifier) Status(bestBefore string) Level {
	return Status(bestBefore, c.Thresholds.Warning, c.Thresholds.Critical, c.Now())
}
