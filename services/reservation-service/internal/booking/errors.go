package booking

import (
	"errors"
	"fmt"
)

// Kind classifies why a submission did not become a reservation.
type Kind int

const (
	KindNone Kind = iota
	KindMissingField
	KindInvalidDate
	KindInvalidHour
	KindUnavailableBlock
	KindExceedsClosingTime
	KindOverlapConflict
	KindPersistenceUnavailable
	KindPersistenceFailure
	KindUpstreamAuthRequired
)

var kindNames = map[Kind]string{
	KindNone:                   "none",
	KindMissingField:           "missing_field",
	KindInvalidDate:            "invalid_date",
	KindInvalidHour:            "invalid_hour",
	KindUnavailableBlock:       "unavailable_block",
	KindExceedsClosingTime:     "exceeds_closing_time",
	KindOverlapConflict:        "overlap_conflict",
	KindPersistenceUnavailable: "persistence_unavailable",
	KindPersistenceFailure:     "persistence_failure",
	KindUpstreamAuthRequired:   "upstream_auth_required",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Validation reports whether the user can fix the problem by changing the form.
func (k Kind) Validation() bool {
	switch k {
	case KindMissingField, KindInvalidDate, KindInvalidHour, KindUnavailableBlock,
		KindExceedsClosingTime, KindOverlapConflict:
		return true
	}
	return false
}

// Retryable reports whether the same submission may succeed later.
func (k Kind) Retryable() bool {
	return k == KindPersistenceUnavailable || k == KindPersistenceFailure
}

// Error is a rejected or failed submission. Reason is safe to show to the user.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Store errors. Implementations wrap these so the service can classify failures.
var (
	// ErrConflict means the store refused the insert because the interval is taken.
	ErrConflict = errors.New("reservation interval already taken")
	// ErrUnavailable means the store could not be reached.
	ErrUnavailable = errors.New("reservation store unavailable")
)
