package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/courtreserve/services/reservation-service/internal/schedule"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the persistence the service needs. Reservations come back with
// hour-of-day Start/End and the exact calendar Date.
type Store interface {
	ListByDate(ctx context.Context, date time.Time) ([]model.Reservation, error)
	// Insert persists r atomically with respect to overlap: it returns an error
	// wrapping ErrConflict when another reservation already covers the interval.
	Insert(ctx context.Context, r *model.Reservation) error
}

// Submission is the raw form input.
type Submission struct {
	Date     string
	Start    string
	Duration string
}

// Outcome is where a submission ended up. Submission is echoed back unchanged so
// rejected forms can be redisplayed.
type Outcome struct {
	State           State
	Trail           []State
	Err             *Error
	Reservation     *model.Reservation
	Submission      Submission
	Duration        int
	DurationCoerced bool
}

func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Reason
}

func (o Outcome) Kind() Kind {
	if o.Err == nil {
		return KindNone
	}
	return o.Err.Kind
}

func (o *Outcome) enter(s State) {
	o.State = s
	o.Trail = append(o.Trail, s)
}

func (o *Outcome) reject(kind Kind, reason string, err error) Outcome {
	o.Err = &Error{Kind: kind, Reason: reason, Err: err}
	o.enter(StateRejected)
	return *o
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
	tracer trace.Tracer
}

type Option func(*Service)

// WithClock replaces time.Now, e.g. to resolve weekday labels deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
		tracer: otel.Tracer("reservation-service/booking"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs every check without persisting. Calling it twice with the same
// input and no writes in between yields the same outcome.
func (s *Service) Validate(ctx context.Context, who model.Identity, sub Submission) Outcome {
	ctx, span := s.tracer.Start(ctx, "booking.Validate")
	defer span.End()

	out := s.validate(ctx, who, sub)
	annotate(span, out)
	s.log(ctx, who, out)
	return out
}

// Submit validates the submission and, when accepted, persists it.
func (s *Service) Submit(ctx context.Context, who model.Identity, sub Submission) Outcome {
	ctx, span := s.tracer.Start(ctx, "booking.Submit")
	defer span.End()

	out := s.validate(ctx, who, sub)
	if out.State == StateAccepted {
		out = s.persist(ctx, out)
	}
	annotate(span, out)
	s.log(ctx, who, out)
	return out
}

func (s *Service) validate(ctx context.Context, who model.Identity, sub Submission) Outcome {
	out := Outcome{Submission: sub}
	out.enter(StateReceived)

	if strings.TrimSpace(who.Username) == "" {
		return out.reject(KindUpstreamAuthRequired, "Please sign in to book the court.", nil)
	}
	out.enter(StateValidating)

	if strings.TrimSpace(sub.Date) == "" || strings.TrimSpace(sub.Start) == "" {
		return out.reject(KindMissingField, "Please complete all fields.", nil)
	}

	date, day, err := schedule.ResolveDate(sub.Date, s.now())
	if err != nil {
		return out.reject(KindInvalidDate, "Select a valid day.", err)
	}

	out.Duration, out.DurationCoerced = schedule.ParseDuration(sub.Duration)

	start, err := schedule.ParseTimeOfDay(strings.TrimSpace(sub.Start))
	if err != nil || !schedule.IsCanonicalStart(start) {
		return out.reject(KindInvalidHour, "Select a valid on-the-hour start time.", err)
	}
	end := start.AddHours(out.Duration)
	want := schedule.Interval{Start: start, End: end}

	live, err := s.store.ListByDate(ctx, date)
	if err != nil {
		kind, reason := classifyStoreError(err)
		return out.reject(kind, reason, err)
	}

	if !slices.Contains(schedule.FreeStarts(out.Duration, live), start) {
		return out.reject(explainUnavailable(want, live))
	}
	if end > schedule.Closing {
		return out.reject(closingRejection())
	}
	if r, ok := schedule.FirstOverlap(want, live); ok {
		return out.reject(overlapRejection(*r))
	}

	out.Reservation = &model.Reservation{
		OwnerID:   who.UserID,
		OwnerName: who.Username,
		Date:      date,
		Day:       day,
		Start:     start,
		End:       end,
		Duration:  out.Duration,
	}
	out.enter(StateAccepted)
	return out
}

func (s *Service) persist(ctx context.Context, out Outcome) Outcome {
	r := *out.Reservation
	r.ID = s.newID()
	r.CreatedAt = s.now().UTC()

	if err := s.store.Insert(ctx, &r); err != nil {
		if errors.Is(err, ErrConflict) {
			// Another request won the race between our check and the insert.
			return out.reject(KindOverlapConflict, "The selected block was just taken, please choose another time.", err)
		}
		kind, reason := classifyStoreError(err)
		out.Err = &Error{Kind: kind, Reason: reason, Err: err}
		out.enter(StatePersistFailed)
		return out
	}
	out.Reservation = &r
	out.enter(StatePersisted)
	return out
}

// explainUnavailable names the concrete reason a start is missing from the free set.
func explainUnavailable(want schedule.Interval, live []model.Reservation) (Kind, string, error) {
	if want.End > schedule.Closing {
		return closingRejection()
	}
	if r, ok := schedule.FirstOverlap(want, live); ok {
		return overlapRejection(*r)
	}
	return KindUnavailableBlock, "The selected block is not fully available for the chosen duration.", nil
}

func closingRejection() (Kind, string, error) {
	return KindExceedsClosingTime, fmt.Sprintf("The reservation exceeds closing time (%s).", schedule.Closing), nil
}

func overlapRejection(r model.Reservation) (Kind, string, error) {
	return KindOverlapConflict,
		fmt.Sprintf("The selected interval crosses the reservation of %s (%s - %s).", r.OwnerName, r.Start, r.End),
		nil
}

func classifyStoreError(err error) (Kind, string) {
	if errors.Is(err, ErrUnavailable) {
		return KindPersistenceUnavailable, "The reservation service is temporarily unavailable, please try again."
	}
	return KindPersistenceFailure, "The reservation could not be saved, please try again."
}

func annotate(span trace.Span, out Outcome) {
	span.SetAttributes(
		attribute.String("booking.state", string(out.State)),
		attribute.String("booking.kind", out.Kind().String()),
	)
	if out.Err != nil && out.Err.Kind.Retryable() {
		span.SetStatus(codes.Error, out.Err.Reason)
	}
}

func (s *Service) log(ctx context.Context, who model.Identity, out Outcome) {
	attrs := []any{
		"user", who.Username,
		"date", out.Submission.Date,
		"start", out.Submission.Start,
		"duration", out.Duration,
		"state", string(out.State),
	}
	if !out.State.Terminal() {
		s.logger.DebugContext(ctx, "reservation validated", attrs...)
		return
	}
	switch {
	case out.State == StatePersisted:
		s.logger.InfoContext(ctx, "reservation created", append(attrs, "reservation_id", out.Reservation.ID)...)
	case out.Err != nil && out.Err.Kind.Retryable():
		s.logger.ErrorContext(ctx, "reservation not stored", append(attrs, "kind", out.Err.Kind.String(), "err", out.Err.Err)...)
	case out.Err != nil:
		s.logger.WarnContext(ctx, "reservation rejected", append(attrs, "kind", out.Err.Kind.String(), "reason", out.Err.Reason)...)
	}
}

// DayAvailability is one read of a day: the free blocks for a duration and
// the slot grid, derived from the same reservations.
type DayAvailability struct {
	Blocks []schedule.Interval
	Slots  []schedule.Slot[model.Reservation]
}

// Availability loads date once and derives its free blocks of duration hours
// and its slot grid from that snapshot.
func (s *Service) Availability(ctx context.Context, date time.Time, duration int) (DayAvailability, error) {
	live, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return DayAvailability{}, err
	}
	return DayAvailability{
		Blocks: schedule.FreeBlocks(duration, live),
		Slots:  schedule.GenerateSlots(live),
	}, nil
}
