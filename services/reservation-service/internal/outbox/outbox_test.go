package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/courtreserve/libs/kafkax"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/schedule"
	"github.com/segmentio/kafka-go"
)

func TestReservationCreatedPayload(t *testing.T) {
	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	evt, err := ReservationCreated(model.Reservation{
		ID:        "r-1",
		OwnerID:   "u-1",
		OwnerName: "ana",
		Date:      date,
		Day:       schedule.DayOf(date),
		Start:     schedule.Clock(10, 0),
		End:       schedule.Clock(12, 0),
		Duration:  2,
		CreatedAt: date.Add(8 * time.Hour),
	})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if evt.EventType != EventReservationCreated || evt.AggregateID != "2024-06-03" {
		t.Fatalf("unexpected envelope: %+v", evt)
	}

	var got map[string]any
	if err := json.Unmarshal(evt.Payload, &got); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if got["start"] != "10:00" || got["end"] != "12:00" || got["weekday"] != "Monday" || got["owner_name"] != "ana" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestToMessage(t *testing.T) {
	msg := toMessage(context.Background(), Record{
		EventID:     "evt-1",
		AggregateID: "2024-06-03",
		EventType:   EventReservationCreated,
		Payload:     []byte(`{}`),
	})
	if msg.Topic != EventReservationCreated || string(msg.Key) != "2024-06-03" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if kafkax.Headers(msg.Headers).Lookup(kafkax.HeaderEventID) != "evt-1" {
		t.Fatalf("missing event id header: %+v", msg.Headers)
	}
}

type fakeWriter struct {
	err  error
	sent []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.sent = append(w.sent, msgs...)
	return nil
}

func TestDeliver(t *testing.T) {
	records := []Record{
		{ID: 1, EventID: "a", AggregateID: "2024-06-03", EventType: EventReservationCreated, Payload: []byte(`{}`)},
		{ID: 2, EventID: "b", AggregateID: "2024-06-04", EventType: EventReservationCreated, Payload: []byte(`{}`), Attempts: 2},
	}

	w := &fakeWriter{}
	res := deliver(context.Background(), w, records, 3)
	if res.delivered != 2 || res.failed != 0 || len(w.sent) != 2 {
		t.Fatalf("unexpected result: %+v, sent %d", res, len(w.sent))
	}
	if string(w.sent[1].Key) != "2024-06-04" {
		t.Fatalf("messages out of order: %q", w.sent[1].Key)
	}

	res = deliver(context.Background(), &fakeWriter{err: errors.New("leader not available")}, records, 3)
	if res.delivered != 0 || res.failed != 2 || res.cause != "leader not available" {
		t.Fatalf("unexpected failure result: %+v", res)
	}
	if res.parked != 1 {
		t.Fatalf("only the record on its last attempt should park, got %d", res.parked)
	}
	if ids := idsOf(records); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestPublisherConfigDefaults(t *testing.T) {
	cfg := PublisherConfig{BatchSize: -1}.withDefaults()
	if cfg.PollEvery != 2*time.Second || cfg.BatchSize != 50 || cfg.MaxAttempts != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	got := truncate(strings.Repeat("é", 4), 3)
	if got != "é" {
		t.Fatalf("expected a whole rune, got %q", got)
	}
}
