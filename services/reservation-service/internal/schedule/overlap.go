package schedule

// Interval is a half-open wall-clock range [Start, End).
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Span is anything occupying an interval of the day, typically a reservation.
type Span interface {
	Interval() Interval
}

// Overlaps reports whether [startA, endA) and [startB, endB) intersect.
// Intervals that only touch at an endpoint do not overlap.
func Overlaps(startA, endA, startB, endB TimeOfDay) bool {
	return startA < endB && endA > startB
}

func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i.Start, i.End, o.Start, o.End)
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// FirstOverlap returns the first span in input order intersecting iv.
func FirstOverlap[R Span](iv Interval, spans []R) (*R, bool) {
	for i := range spans {
		if iv.Overlaps(spans[i].Interval()) {
			return &spans[i], true
		}
	}
	return nil, false
}
