package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/courtreserve/libs/db"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/booking"
)

var (
	ErrOverlap       = booking.ErrConflict
	ErrUnavailable   = booking.ErrUnavailable
	ErrUsernameTaken = errors.New("username already taken")
)

const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
)

// IsConflict reports whether err is the no-overlap exclusion constraint firing.
func IsConflict(err error) bool {
	return hasCode(err, codeExclusionViolation)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// classify wraps err with op and, where it applies, the sentinel the booking
// service branches on.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsConflict(err):
		return fmt.Errorf("%s: %w: %w", op, ErrOverlap, err)
	case db.IsConnectionError(err):
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
