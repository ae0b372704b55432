package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/courtreserve/libs/db"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/outbox"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/schedule"
)

type ReservationRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewReservationRepository(pool *db.Pool, outboxRepo *outbox.Repository) *ReservationRepository {
	return &ReservationRepository{pool: pool, outbox: outboxRepo}
}

const reservationColumns = `id::text, owner_id::text, owner_name, reserved_on::text, weekday,
	start_minute, end_minute, duration_hours, created_at`

// ListByDate returns the reservations of one calendar day ordered by start.
func (r *ReservationRepository) ListByDate(ctx context.Context, date time.Time) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE reserved_on = $1::date
		ORDER BY start_minute ASC, created_at ASC
	`, date.Format(schedule.DateLayout))
	if err != nil {
		return nil, classify("list reservations", err)
	}
	res, err := collectReservations(rows)
	return res, classify("list reservations", err)
}

// ListRange returns the reservations between from and to, both days inclusive.
func (r *ReservationRepository) ListRange(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE reserved_on BETWEEN $1::date AND $2::date
		ORDER BY reserved_on ASC, start_minute ASC, created_at ASC
	`, from.Format(schedule.DateLayout), to.Format(schedule.DateLayout))
	if err != nil {
		return nil, classify("list reservation range", err)
	}
	res, err := collectReservations(rows)
	return res, classify("list reservation range", err)
}

// Insert stores res and its reservation.created.v1 event in one transaction.
// Writers for the same date are serialized by an advisory lock, the overlap is
// checked again under it, and the exclusion constraint backs both up.
func (r *ReservationRepository) Insert(ctx context.Context, res *model.Reservation) error {
	evt, err := outbox.ReservationCreated(*res)
	if err != nil {
		return fmt.Errorf("insert reservation: build event: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return classify("insert reservation: begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	date := res.DateKey()
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "reservations:"+date); err != nil {
		return classify("insert reservation: lock", err)
	}

	clash, err := overlapExists(ctx, tx, date, res.Start, res.End)
	if err != nil {
		return classify("insert reservation: recheck", err)
	}
	if clash {
		return fmt.Errorf("insert reservation: %w", ErrOverlap)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO reservations
			(id, owner_id, owner_name, reserved_on, weekday, start_minute, end_minute, duration_hours, created_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
	`, res.ID, res.OwnerID, res.OwnerName, date, string(res.Day),
		int(res.Start), int(res.End), res.Duration, res.CreatedAt)
	if err != nil {
		return classify("insert reservation", err)
	}

	if r.outbox != nil {
		if err := r.outbox.Append(ctx, tx, evt); err != nil {
			return classify("insert reservation: outbox", err)
		}
	}
	return classify("insert reservation: commit", tx.Commit(ctx))
}

func overlapExists(ctx context.Context, tx pgx.Tx, date string, start, end schedule.TimeOfDay) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE reserved_on = $1::date
				AND start_minute < $3
				AND end_minute > $2
		)
	`, date, int(start), int(end)).Scan(&exists)
	return exists, err
}

func collectReservations(rows pgx.Rows) ([]model.Reservation, error) {
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var (
			res        model.Reservation
			date, day  string
			start, end int
		)
		if err := rows.Scan(
			&res.ID,
			&res.OwnerID,
			&res.OwnerName,
			&date,
			&day,
			&start,
			&end,
			&res.Duration,
			&res.CreatedAt,
		); err != nil {
			return nil, err
		}
		parsed, err := time.ParseInLocation(schedule.DateLayout, date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("reservation %s: bad date %q: %w", res.ID, date, err)
		}
		res.Date = parsed
		res.Day = schedule.Day(day)
		res.Start = schedule.TimeOfDay(start)
		res.End = schedule.TimeOfDay(end)
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
