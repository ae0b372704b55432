package schedule

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in forms, URLs and the API.
const DateLayout = "2006-01-02"

// Day is a weekday label, Monday first.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// Week lists the labels in display order.
var Week = [7]Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var ErrInvalidDay = errors.New("invalid day")

// DayOf derives the weekday label of a calendar date.
func DayOf(date time.Time) Day {
	return Week[isoIndex(date)]
}

// isoIndex is 0 for Monday through 6 for Sunday.
func isoIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// ParseDay matches a label case-insensitively.
func ParseDay(label string) (Day, bool) {
	label = strings.TrimSpace(label)
	for _, d := range Week {
		if strings.EqualFold(string(d), label) {
			return d, true
		}
	}
	return "", false
}

// WeekStart returns midnight of the Monday of date's week.
func WeekStart(date time.Time) time.Time {
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return day.AddDate(0, 0, -isoIndex(day))
}

// WeekDates returns the seven dates Monday..Sunday of date's week.
func WeekDates(date time.Time) [7]time.Time {
	var out [7]time.Time
	start := WeekStart(date)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// ResolveDate turns form input into a calendar date. It accepts YYYY-MM-DD, or a
// weekday label which resolves to that day of the week containing now.
func ResolveDate(raw string, now time.Time) (time.Time, Day, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, "", ErrInvalidDay
	}
	if date, err := time.ParseInLocation(DateLayout, raw, now.Location()); err == nil {
		return date, DayOf(date), nil
	}
	day, ok := ParseDay(raw)
	if !ok {
		return time.Time{}, "", ErrInvalidDay
	}
	for _, date := range WeekDates(now) {
		if DayOf(date) == day {
			return date, day, nil
		}
	}
	return time.Time{}, "", ErrInvalidDay
}
