package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const EventReservationCreated = "reservation.created.v1"

type reservationPayload struct {
	ReservationID string `json:"reservation_id"`
	OwnerID       string `json:"owner_id"`
	OwnerName     string `json:"owner_name"`
	Date          string `json:"date"`
	Weekday       string `json:"weekday"`
	Start         string `json:"start"`
	End           string `json:"end"`
	DurationHours int    `json:"duration_hours"`
	CreatedAt     string `json:"created_at"`
}

// ReservationCreated builds the event announcing a stored reservation.
// It is keyed by date so all events for one court day stay ordered.
func ReservationCreated(r model.Reservation) (Event, error) {
	payload, err := json.Marshal(reservationPayload{
		ReservationID: r.ID,
		OwnerID:       r.OwnerID,
		OwnerName:     r.OwnerName,
		Date:          r.DateKey(),
		Weekday:       string(r.Day),
		Start:         r.Start.String(),
		End:           r.End.String(),
		DurationHours: r.Duration,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "reservation",
		AggregateID:   r.DateKey(),
		EventType:     EventReservationCreated,
		Payload:       payload,
	}, nil
}
