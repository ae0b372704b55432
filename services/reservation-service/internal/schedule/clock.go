// Package schedule holds the court's operating-day arithmetic: hour-aligned
// slots, interval overlap and the availability scan used by the booking form.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

const (
	Opening TimeOfDay = 6 * 60
	Closing TimeOfDay = 22 * 60

	// SlotMinutes is the length of one canonical slot.
	SlotMinutes = 60
)

var ErrInvalidTime = errors.New("invalid time of day")

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// Clock builds a TimeOfDay from hour and minute.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Hour() int { return int(t) / 60 }

// AddHours returns t shifted by n hours. The result may pass midnight's 24:00
// mark; callers compare it against Closing rather than wrapping it.
func (t TimeOfDay) AddHours(n int) TimeOfDay {
	return t + TimeOfDay(n*60)
}

// On places t on the calendar day of date, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), int(t)%60, 0, 0, date.Location())
}

// CanonicalStarts lists every hour mark from Opening up to the last slot before Closing.
func CanonicalStarts() []TimeOfDay {
	starts := make([]TimeOfDay, 0, int(Closing-Opening)/SlotMinutes)
	for t := Opening; t < Closing; t += SlotMinutes {
		starts = append(starts, t)
	}
	return starts
}

func IsCanonicalStart(t TimeOfDay) bool {
	return t >= Opening && t < Closing && int(t-Opening)%SlotMinutes == 0
}
