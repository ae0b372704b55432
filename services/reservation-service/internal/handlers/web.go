package handlers

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/booking"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/flash"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/schedule"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/session"
)

const (
	formDate     = "date"
	formStart    = "start"
	formDuration = "duration"
)

const msgStoreDown = "Reservations could not be loaded right now, please try again."

type slotCell struct {
	Label    string
	Reserved bool
	Owner    string
	Mine     bool
}

type dayColumn struct {
	Date         string
	Day          schedule.Day
	Today        bool
	Reservations []reservationRow
}

type reservationRow struct {
	Owner    string
	Interval string
	Mine     bool
}

type hourRow struct {
	Label string
	Cells []slotCell
}

type weekView struct {
	PrevWeek string
	NextWeek string
	Days     []dayColumn
	Rows     []hourRow
}

// Home shows the week containing ?week= (any date of it, default today) with
// each day's reservations and its slot grid.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	anchor := now
	var messages []flash.Message
	if raw := strings.TrimSpace(r.URL.Query().Get("week")); raw != "" {
		date, _, err := schedule.ResolveDate(raw, now)
		if err != nil {
			messages = append(messages, flash.Message{Level: flash.LevelWarning, Text: "Select a valid day."})
		} else {
			anchor = date
		}
	}
	messages = append(h.Flash.Pop(r).Messages, messages...)

	dates := schedule.WeekDates(anchor)
	who := session.FromContext(r.Context())
	status := http.StatusOK

	reservations, err := h.Week.ListRange(r.Context(), dates[0], dates[6])
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "week load failed", "week", dates[0].Format(schedule.DateLayout), "err", err)
		messages = append(messages, flash.Message{Level: flash.LevelDanger, Text: msgStoreDown})
		status = http.StatusServiceUnavailable
		reservations = nil
	}

	h.render(w, r, status, "week.html", page{
		Title:    "Court schedule",
		Messages: messages,
		Body:     buildWeek(dates, reservations, who, now),
	})
}

func buildWeek(dates [7]time.Time, reservations []model.Reservation, who model.Identity, now time.Time) weekView {
	byDate := map[string][]model.Reservation{}
	for _, res := range reservations {
		byDate[res.DateKey()] = append(byDate[res.DateKey()], res)
	}

	today := now.Format(schedule.DateLayout)
	view := weekView{
		PrevWeek: dates[0].AddDate(0, 0, -7).Format(schedule.DateLayout),
		NextWeek: dates[0].AddDate(0, 0, 7).Format(schedule.DateLayout),
	}
	grids := make([][]schedule.Slot[model.Reservation], len(dates))
	for i, date := range dates {
		key := date.Format(schedule.DateLayout)
		col := dayColumn{Date: key, Day: schedule.DayOf(date), Today: key == today}
		for _, res := range byDate[key] {
			col.Reservations = append(col.Reservations, reservationRow{
				Owner:    res.OwnerName,
				Interval: res.Interval().String(),
				Mine:     res.OwnerID == who.UserID,
			})
		}
		view.Days = append(view.Days, col)
		grids[i] = schedule.GenerateSlots(byDate[key])
	}

	for hour, start := range schedule.CanonicalStarts() {
		row := hourRow{Label: schedule.Interval{Start: start, End: start + schedule.SlotMinutes}.String()}
		for i := range dates {
			row.Cells = append(row.Cells, cellOf(grids[i][hour], who))
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func cellOf(slot schedule.Slot[model.Reservation], who model.Identity) slotCell {
	cell := slotCell{
		Label:    schedule.Interval{Start: slot.Start, End: slot.End}.String(),
		Reserved: slot.Reserved(),
	}
	if slot.Reservation != nil {
		cell.Owner = slot.Reservation.OwnerName
		cell.Mine = slot.Reservation.OwnerID == who.UserID
	}
	return cell
}

type blockOption struct {
	Start    string
	End      string
	Selected bool
}

type reserveView struct {
	Date      string
	Day       schedule.Day
	Duration  int
	Durations []int
	Blocks    []blockOption
	Slots     []slotCell
	Disabled  bool
}

// ReserveForm lists the free blocks of ?date= for ?duration= hours. Values
// stashed by a failed submission take precedence over the query.
func (h *Handler) ReserveForm(w http.ResponseWriter, r *http.Request) {
	now := h.Now()
	stash := h.Flash.Pop(r)
	messages := stash.Messages

	rawDate := firstNonEmpty(stash.Form[formDate], r.URL.Query().Get(formDate))
	rawDuration := firstNonEmpty(stash.Form[formDuration], r.URL.Query().Get(formDuration))
	prevStart, hasPrev := canonicalStart(stash.Form[formStart])

	date, day, err := schedule.ResolveDate(rawDate, now)
	if err != nil {
		if rawDate != "" && stash.Form[formDate] == "" {
			messages = append(messages, flash.Message{Level: flash.LevelWarning, Text: "Select a valid day."})
		}
		date, day, _ = schedule.ResolveDate(now.Format(schedule.DateLayout), now)
	}
	duration, _ := schedule.ParseDuration(rawDuration)
	if rawDuration == "" {
		duration = schedule.MinDuration
	}

	view := reserveView{
		Date:      date.Format(schedule.DateLayout),
		Day:       day,
		Duration:  duration,
		Durations: []int{1, 2, 3},
	}
	status := http.StatusOK

	avail, err := h.Booking.Availability(r.Context(), date, duration)
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "availability load failed", "date", view.Date, "err", err)
		messages = append(messages, flash.Message{Level: flash.LevelDanger, Text: msgStoreDown})
		status = http.StatusServiceUnavailable
	}
	who := session.FromContext(r.Context())
	for _, s := range avail.Slots {
		view.Slots = append(view.Slots, cellOf(s, who))
	}
	for _, b := range avail.Blocks {
		view.Blocks = append(view.Blocks, blockOption{
			Start:    b.Start.String(),
			End:      b.End.String(),
			Selected: hasPrev && b.Start.String() == prevStart,
		})
	}
	view.Disabled = len(view.Blocks) == 0
	if hasPrev && err == nil && !slices.ContainsFunc(view.Blocks, func(b blockOption) bool { return b.Selected }) {
		messages = append(messages, flash.Message{
			Level: flash.LevelInfo,
			Text:  "The previously selected start time " + prevStart + " is no longer available for this duration.",
		})
	}
	if view.Disabled && err == nil {
		messages = append(messages, flash.Message{
			Level: flash.LevelInfo,
			Text:  "No " + strconv.Itoa(duration) + "-hour block is free on " + string(day) + " " + view.Date + ".",
		})
	}

	h.render(w, r, status, "reserve.html", page{Title: "Book the court", Messages: messages, Body: view})
}

// Reserve submits the form. Either way the browser is redirected: to the week
// on success, back to the form with the input stashed otherwise.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	sub := booking.Submission{
		Date:     r.PostForm.Get(formDate),
		Start:    r.PostForm.Get(formStart),
		Duration: r.PostForm.Get(formDuration),
	}
	out := h.Booking.Submit(r.Context(), session.FromContext(r.Context()), sub)

	switch {
	case out.State == booking.StatePersisted:
		res := out.Reservation
		messages := []flash.Message{{
			Level: flash.LevelSuccess,
			Text:  "Reservation confirmed for " + string(res.Day) + " " + res.DateKey() + ", " + res.Interval().String() + ".",
		}}
		if out.DurationCoerced {
			messages = append(messages, flash.Message{
				Level: flash.LevelInfo,
				Text:  "Durations are 1 to 3 hours; the booking was made for 1 hour.",
			})
		}
		h.Flash.Set(w, r, flash.Entry{Messages: messages})
		http.Redirect(w, r, "/?week="+res.DateKey(), http.StatusSeeOther)

	case out.Kind() == booking.KindUpstreamAuthRequired:
		http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)

	default:
		level := flash.LevelDanger
		if out.Kind().Validation() {
			level = flash.LevelWarning
		}
		h.Flash.Set(w, r, flash.Entry{
			Messages: []flash.Message{{Level: level, Text: out.Reason()}},
			Form: map[string]string{
				formDate:     sub.Date,
				formStart:    sub.Start,
				formDuration: sub.Duration,
			},
		})
		q := url.Values{}
		if sub.Date != "" {
			q.Set(formDate, sub.Date)
		}
		if out.Duration > 0 {
			q.Set(formDuration, strconv.Itoa(out.Duration))
		}
		http.Redirect(w, r, "/reserve?"+q.Encode(), http.StatusSeeOther)
	}
}

// canonicalStart normalizes a stashed start time, reporting false unless it is
// an on-the-hour start inside opening hours.
func canonicalStart(raw string) (string, bool) {
	t, err := schedule.ParseTimeOfDay(strings.TrimSpace(raw))
	if err != nil || !schedule.IsCanonicalStart(t) {
		return "", false
	}
	return t.String(), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
