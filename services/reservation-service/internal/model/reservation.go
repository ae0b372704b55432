package model

import (
	"time"

	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/schedule"
)

type Reservation struct {
	ID        string
	OwnerID   string
	OwnerName string
	Date      time.Time
	Day       schedule.Day
	Start     schedule.TimeOfDay
	End       schedule.TimeOfDay
	Duration  int
	CreatedAt time.Time
}

func (r Reservation) Interval() schedule.Interval {
	return schedule.Interval{Start: r.Start, End: r.End}
}

// DateKey is the reservation's calendar date as YYYY-MM-DD.
func (r Reservation) DateKey() string {
	return r.Date.Format(schedule.DateLayout)
}
