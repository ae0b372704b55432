package outbox

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	otelx "github.com/md-rashed-zaman/courtreserve/libs/otel"
)

// Repository owns outbox_events. It never opens transactions itself: events
// are appended in the transaction that produced them and claimed in the
// publisher's.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Append queues evt, remembering the trace of ctx so the Kafka message joins it.
func (r *Repository) Append(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate)
	return err
}

// Record is a queued event as stored.
type Record struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	Attempts      int
	CreatedAt     time.Time
}

// Claim locks up to limit pending events, oldest first. Rows that already
// failed maxAttempts times stay parked for an operator to inspect.
func (r *Repository) Claim(ctx context.Context, tx pgx.Tx, limit, maxAttempts int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text, aggregate_type, aggregate_id, event_type, payload,
		       traceparent, tracestate, attempts, created_at
		FROM outbox_events
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Record])
}

func (r *Repository) MarkDelivered(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET published_at = now(), last_error = '' WHERE id = ANY($1)`, ids)
	return err
}

// MarkFailed counts a failed delivery against every id and keeps the cause.
func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, ids []int64, cause string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = ANY($1)`, ids, truncate(cause, 512))
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
