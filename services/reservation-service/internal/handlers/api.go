package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/booking"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/schedule"
)

type intervalItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type slotItem struct {
	Start string `json:"start"`
	End   string `json:"end"`
	State string `json:"state"`
}

type slotsResponse struct {
	Date            string         `json:"date"`
	Weekday         string         `json:"weekday"`
	DurationHours   int            `json:"duration_hours"`
	DurationCoerced bool           `json:"duration_coerced"`
	FreeStarts      []string       `json:"free_starts"`
	Blocks          []intervalItem `json:"blocks"`
	Slots           []slotItem     `json:"slots"`
}

// Slots reports the availability of ?date= for ?duration= hours. Owner names
// are not exposed.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	rawDate := strings.TrimSpace(r.URL.Query().Get("date"))
	if rawDate == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date is required"})
		return
	}
	date, day, err := schedule.ResolveDate(rawDate, h.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD or a weekday name"})
		return
	}
	duration, coerced := schedule.ParseDuration(r.URL.Query().Get("duration"))
	if r.URL.Query().Get("duration") == "" {
		coerced = false
	}

	avail, err := h.Booking.Availability(r.Context(), date, duration)
	if err != nil {
		h.slotsFailed(w, r, err)
		return
	}
	blocks, slots := avail.Blocks, avail.Slots

	resp := slotsResponse{
		Date:            date.Format(schedule.DateLayout),
		Weekday:         string(day),
		DurationHours:   duration,
		DurationCoerced: coerced,
		FreeStarts:      make([]string, 0, len(blocks)),
		Blocks:          make([]intervalItem, 0, len(blocks)),
		Slots:           make([]slotItem, 0, len(slots)),
	}
	for _, b := range blocks {
		resp.FreeStarts = append(resp.FreeStarts, b.Start.String())
		resp.Blocks = append(resp.Blocks, intervalItem{Start: b.Start.String(), End: b.End.String()})
	}
	for _, s := range slots {
		resp.Slots = append(resp.Slots, slotItem{
			Start: s.Start.String(),
			End:   s.End.String(),
			State: strings.ToLower(string(s.State)),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) slotsFailed(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.ErrorContext(r.Context(), "slots load failed", "err", err)
	if errors.Is(err, booking.ErrUnavailable) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reservation store unavailable"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load slots"})
}
