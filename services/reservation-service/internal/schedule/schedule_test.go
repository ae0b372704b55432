package schedule

import (
	"slices"
	"testing"
	"time"
)

type span struct {
	start, end TimeOfDay
	owner      string
}

func (s span) Interval() Interval { return Interval{Start: s.start, End: s.end} }

func hm(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func formatAll(ts []TimeOfDay) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.String())
	}
	return out
}

func TestOverlapsSymmetricAndReflexive(t *testing.T) {
	for a := Opening; a < Closing; a += 30 {
		for b := a + 30; b <= Closing; b += 30 {
			if !Overlaps(a, b, a, b) {
				t.Fatalf("[%s,%s) should overlap itself", a, b)
			}
			for c := Opening; c < Closing; c += 30 {
				for d := c + 30; d <= Closing; d += 30 {
					if Overlaps(a, b, c, d) != Overlaps(c, d, a, b) {
						t.Fatalf("asymmetric result for [%s,%s) vs [%s,%s)", a, b, c, d)
					}
				}
			}
		}
	}
}

func TestOverlapsTouchingEndpoints(t *testing.T) {
	if Overlaps(hm("09:00"), hm("10:00"), hm("10:00"), hm("11:00")) {
		t.Fatal("[9,10) and [10,11) must not overlap")
	}
	if Overlaps(hm("10:00"), hm("11:00"), hm("09:00"), hm("10:00")) {
		t.Fatal("[10,11) and [9,10) must not overlap")
	}
	if !Overlaps(hm("09:30"), hm("10:30"), hm("10:00"), hm("11:00")) {
		t.Fatal("partial overlap not detected")
	}
}

func TestFreeStartsEmptyDay(t *testing.T) {
	all := FreeStarts[span](1, nil)
	if len(all) != 16 {
		t.Fatalf("expected 16 starts, got %d", len(all))
	}
	if all[0] != hm("06:00") || all[15] != hm("21:00") {
		t.Fatalf("unexpected bounds: %v", formatAll(all))
	}

	three := FreeStarts[span](3, nil)
	if len(three) != 14 {
		t.Fatalf("expected 14 starts for 3h, got %d", len(three))
	}
	for _, s := range three {
		if s > hm("19:00") {
			t.Fatalf("start %s does not fit a 3h block", s)
		}
	}
	if three[len(three)-1] != hm("19:00") {
		t.Fatalf("latest 3h start should be 19:00, got %s", three[len(three)-1])
	}
}

func TestFreeStartsEmptyDayTwoHours(t *testing.T) {
	got := FreeStarts[span](2, nil)
	if len(got) != 15 {
		t.Fatalf("expected 15 entries, got %d: %v", len(got), formatAll(got))
	}
	if got[0] != hm("06:00") || got[14] != hm("20:00") {
		t.Fatalf("expected 06:00..20:00, got %v", formatAll(got))
	}
	if slices.Contains(got, hm("21:00")) {
		t.Fatal("21:00 cannot start a 2h block")
	}
}

func TestFreeStartsExcludesReservedHours(t *testing.T) {
	day := []span{{start: hm("10:00"), end: hm("12:00"), owner: "ana"}}
	got := FreeStarts(1, day)
	for _, excluded := range []string{"10:00", "11:00"} {
		if slices.Contains(got, hm(excluded)) {
			t.Fatalf("%s should be excluded: %v", excluded, formatAll(got))
		}
	}
	for _, included := range []string{"09:00", "12:00"} {
		if !slices.Contains(got, hm(included)) {
			t.Fatalf("%s should be included: %v", included, formatAll(got))
		}
	}
}

func TestFreeStartsRejectsRunsCrossingReservation(t *testing.T) {
	day := []span{{start: hm("10:00"), end: hm("11:00")}}
	got := FreeStarts(2, day)
	if slices.Contains(got, hm("09:00")) {
		t.Fatal("09:00 + 2h would run into 10:00")
	}
	if !slices.Contains(got, hm("08:00")) || !slices.Contains(got, hm("11:00")) {
		t.Fatalf("expected 08:00 and 11:00 free: %v", formatAll(got))
	}
}

func TestFreeStartsUnalignedReservationBlocksBothCells(t *testing.T) {
	day := []span{{start: hm("10:30"), end: hm("11:30")}}
	got := FreeStarts(1, day)
	if slices.Contains(got, hm("10:00")) || slices.Contains(got, hm("11:00")) {
		t.Fatalf("10:00 and 11:00 should both be blocked: %v", formatAll(got))
	}
}

func TestFreeStartsInvalidDurationDefaultsToOne(t *testing.T) {
	if got := FreeStarts[span](5, nil); len(got) != 16 {
		t.Fatalf("duration 5 should behave as 1, got %d starts", len(got))
	}
}

func TestFreeBlocks(t *testing.T) {
	blocks := FreeBlocks[span](2, []span{{start: hm("06:00"), end: hm("20:00")}})
	if len(blocks) != 1 || blocks[0].String() != "20:00-22:00" {
		t.Fatalf("unexpected blocks: %v", blocks)
	}
}

func TestGenerateSlots(t *testing.T) {
	day := []span{
		{start: hm("10:00"), end: hm("12:00"), owner: "ana"},
		{start: hm("11:00"), end: hm("12:00"), owner: "bruno"},
	}
	slots := GenerateSlots(day)
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start <= slots[i-1].Start {
			t.Fatal("slots must be ascending")
		}
	}
	byStart := map[string]Slot[span]{}
	for _, s := range slots {
		byStart[s.Start.String()] = s
	}
	if byStart["09:00"].Reserved() || byStart["12:00"].Reserved() {
		t.Fatal("09:00 and 12:00 should be available")
	}
	if !byStart["10:00"].Reserved() || byStart["10:00"].Reservation.owner != "ana" {
		t.Fatalf("10:00 should reference ana, got %+v", byStart["10:00"])
	}
	if byStart["11:00"].Reservation.owner != "ana" {
		t.Fatal("first overlapping reservation must win")
	}
	if byStart["21:00"].End != Closing {
		t.Fatalf("last slot should end at closing, got %s", byStart["21:00"].End)
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		coerced bool
	}{
		{"1", 1, false},
		{"2", 2, false},
		{" 3 ", 3, false},
		{"5", 1, true},
		{"0", 1, true},
		{"", 1, true},
		{"two", 1, true},
	}
	for _, c := range cases {
		got, coerced := ParseDuration(c.raw)
		if got != c.want || coerced != c.coerced {
			t.Fatalf("ParseDuration(%q) = %d,%v want %d,%v", c.raw, got, coerced, c.want, c.coerced)
		}
	}
}

func TestTimeOfDay(t *testing.T) {
	if _, err := ParseTimeOfDay("25:00"); err == nil {
		t.Fatal("expected error for 25:00")
	}
	if hm("07:05").String() != "07:05" {
		t.Fatal("round trip failed")
	}
	if !IsCanonicalStart(hm("21:00")) || IsCanonicalStart(hm("22:00")) || IsCanonicalStart(hm("10:30")) || IsCanonicalStart(hm("05:00")) {
		t.Fatal("canonical start check is wrong")
	}
	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if got := hm("10:00").On(date); got.Hour() != 10 || got.Day() != 3 {
		t.Fatalf("unexpected placement: %s", got)
	}
}

func TestDayOf(t *testing.T) {
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	if DayOf(monday) != Monday {
		t.Fatalf("2024-06-03 is a Monday, got %s", DayOf(monday))
	}
	if DayOf(monday.AddDate(0, 0, 6)) != Sunday {
		t.Fatal("2024-06-09 is a Sunday")
	}
	week := WeekDates(time.Date(2024, 6, 6, 15, 0, 0, 0, time.UTC))
	if !week[0].Equal(monday) || DayOf(week[6]) != Sunday {
		t.Fatalf("unexpected week: %v", week)
	}
}

func TestResolveDate(t *testing.T) {
	now := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)

	date, day, err := ResolveDate("2024-06-03", now)
	if err != nil || day != Monday || date.Day() != 3 {
		t.Fatalf("unexpected result: %s %s %v", date, day, err)
	}

	date, day, err = ResolveDate("friday", now)
	if err != nil || day != Friday || date.Format(DateLayout) != "2024-06-07" {
		t.Fatalf("label should resolve within the current week: %s %s %v", date, day, err)
	}

	for _, raw := range []string{"", "Funday", "2024-13-01"} {
		if _, _, err := ResolveDate(raw, now); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
