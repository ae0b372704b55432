package schedule

type SlotState string

const (
	SlotAvailable SlotState = "Available"
	SlotReserved  SlotState = "Reserved"
)

// Slot is one canonical hour of the operating day. Reservation points into the
// slice passed to GenerateSlots when the slot is taken.
type Slot[R Span] struct {
	Start       TimeOfDay
	End         TimeOfDay
	State       SlotState
	Reservation *R
}

func (s Slot[R]) Reserved() bool { return s.State == SlotReserved }

// GenerateSlots marks every canonical hour as free or reserved against one day's
// reservations. When two reservations cover the same hour the first one wins;
// that can only happen with corrupted data.
func GenerateSlots[R Span](reservations []R) []Slot[R] {
	starts := CanonicalStarts()
	slots := make([]Slot[R], 0, len(starts))
	for _, start := range starts {
		slot := Slot[R]{Start: start, End: start + SlotMinutes, State: SlotAvailable}
		if r, ok := FirstOverlap(Interval{Start: slot.Start, End: slot.End}, reservations); ok {
			slot.State = SlotReserved
			slot.Reservation = r
		}
		slots = append(slots, slot)
	}
	return slots
}
