package schedule

import (
	"strconv"
	"strings"
)

const (
	MinDuration = 1
	MaxDuration = 3
)

// ParseDuration reads a booking length in hours. Anything unparsable or outside
// [MinDuration, MaxDuration] becomes MinDuration; coerced reports that it happened.
func ParseDuration(raw string) (hours int, coerced bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !ValidDuration(n) {
		return MinDuration, true
	}
	return n, false
}

func ValidDuration(hours int) bool {
	return hours >= MinDuration && hours <= MaxDuration
}

// NormalizeDuration clamps an already parsed duration the same way ParseDuration does.
func NormalizeDuration(hours int) int {
	if !ValidDuration(hours) {
		return MinDuration
	}
	return hours
}

// FreeStarts returns, in ascending order, every canonical start from which a
// block of duration hours fits before Closing without touching an occupied hour.
func FreeStarts[R Span](duration int, reservations []R) []TimeOfDay {
	duration = NormalizeDuration(duration)
	occupied := occupiedHours(reservations)

	var starts []TimeOfDay
	for _, start := range CanonicalStarts() {
		end := start.AddHours(duration)
		if end > Closing {
			continue
		}
		if runIsFree(start, end, occupied) {
			starts = append(starts, start)
		}
	}
	return starts
}

// FreeBlocks pairs each free start with its end for the given duration.
func FreeBlocks[R Span](duration int, reservations []R) []Interval {
	duration = NormalizeDuration(duration)
	starts := FreeStarts(duration, reservations)
	blocks := make([]Interval, 0, len(starts))
	for _, s := range starts {
		blocks = append(blocks, Interval{Start: s, End: s.AddHours(duration)})
	}
	return blocks
}

// occupiedHours marks every canonical hour cell intersected by a reservation.
// For hour-aligned reservations that is each hour mark in [start, end).
func occupiedHours[R Span](reservations []R) map[TimeOfDay]bool {
	occupied := make(map[TimeOfDay]bool)
	for _, r := range reservations {
		iv := r.Interval()
		for _, cell := range CanonicalStarts() {
			if Overlaps(cell, cell+SlotMinutes, iv.Start, iv.End) {
				occupied[cell] = true
			}
		}
	}
	return occupied
}

func runIsFree(start, end TimeOfDay, occupied map[TimeOfDay]bool) bool {
	for cell := start; cell < end; cell += SlotMinutes {
		if occupied[cell] {
			return false
		}
	}
	return true
}
