package recur

import (
	"testing"
	"time"

	"lifelist/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pacific(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func event(name string, start time.Time, kind model.FrequencyKind) model.Event {
	return model.Event{
		Name:      name,
		Priority:  5,
		Start:     start,
		Frequency: model.Frequency{Kind: kind},
		Tags:      []string{},
	}
}

func starts(events []model.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		if ev.IsTodo() {
			out[i] = "TODO"
			continue
		}
		out[i] = ev.Start.Format("2006-01-02")
	}
	return out
}

func assertStarts(t *testing.T, got []model.Event, want ...string) {
	t.Helper()
	gs := starts(got)
	if len(gs) != len(want) {
		t.Fatalf("got %v, want %v", gs, want)
	}
	for i := range want {
		if gs[i] != want[i] {
			t.Fatalf("got %v, want %v", gs, want)
		}
	}
}

func assertOrdered(t *testing.T, events []model.Event) {
	t.Helper()
	seenDated := false
	for i, ev := range events {
		if ev.IsTodo() {
			if seenDated {
				t.Fatalf("TODO at %d after a dated occurrence", i)
			}
			continue
		}
		seenDated = true
		if i > 0 && !events[i-1].IsTodo() && ev.Start.Before(events[i-1].Start) {
			t.Fatalf("occurrence %d (%v) starts before %d (%v)", i, ev.Start, i-1, events[i-1].Start)
		}
	}
}

func TestWeekly(t *testing.T) {
	s := NewStream(day(2022, 1, 1), []model.Event{event("Weekly Event", day(2023, 1, 1), model.Weekly)})
	assertStarts(t, s.Take(5), "2023-01-01", "2023-01-08", "2023-01-15", "2023-01-22", "2023-01-29")
}

func TestBiweekly(t *testing.T) {
	s := NewStream(day(2022, 1, 1), []model.Event{event("Biweekly Event", day(2023, 1, 1), model.Biweekly)})
	assertStarts(t, s.Take(5), "2023-01-01", "2023-01-15", "2023-01-29", "2023-02-12", "2023-02-26")
}

func TestWeekdaysSkipWeekends(t *testing.T) {
	work := event("Work", day(2025, 1, 1), model.Weekdays)

	got := NewStream(day(2025, 1, 1), []model.Event{work}).Take(5)
	assertStarts(t, got, "2025-01-01", "2025-01-02", "2025-01-03", "2025-01-06", "2025-01-07")

	got = NewStream(day(2025, 3, 25), []model.Event{work}).Take(5)
	assertStarts(t, got, "2025-03-25", "2025-03-26", "2025-03-27", "2025-03-28", "2025-03-31")
	for _, ev := range NewStream(day(2025, 1, 1), []model.Event{work}).Take(60) {
		if wd := ev.Start.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("weekday occurrence on %v", ev.Start)
		}
	}
}

func TestWeekdaysShiftEnd(t *testing.T) {
	pt := pacific(t)
	tv := event("Prime Time TV", time.Date(2023, 1, 13, 18, 30, 0, 0, pt), model.Weekdays)
	tv.End = time.Date(2023, 1, 13, 21, 30, 0, 0, pt)

	got := NewStream(day(2023, 1, 13), []model.Event{tv}).Take(2)
	if len(got) != 2 {
		t.Fatalf("got %d occurrences", len(got))
	}
	monday := got[1]
	if monday.Start.Weekday() != time.Monday || monday.Start.Hour() != 18 || monday.Start.Minute() != 30 {
		t.Errorf("next start = %v, want Monday 18:30", monday.Start)
	}
	if monday.End.Sub(monday.Start) != 3*time.Hour {
		t.Errorf("duration = %v, want 3h", monday.End.Sub(monday.Start))
	}
}

func TestRecurringWithEndTime(t *testing.T) {
	pt := pacific(t)
	av := event("Abomination Vaults", time.Date(2023, 4, 12, 19, 0, 0, 0, pt), model.Weekly)
	av.End = time.Date(2023, 4, 12, 22, 0, 0, 0, pt)

	got := NewStream(day(2023, 1, 1), []model.Event{av}).Take(4)
	assertStarts(t, got, "2023-04-12", "2023-04-19", "2023-04-26", "2023-05-03")
	for _, ev := range got {
		if ev.Start.Hour() != 19 || ev.End.Hour() != 22 {
			t.Errorf("occurrence %v – %v lost its wall-clock times", ev.Start, ev.End)
		}
		if ev.Frequency.Kind != model.Weekly {
			t.Errorf("derived copy frequency = %q", ev.Frequency.Kind)
		}
	}
}

func TestMultiDaySpan(t *testing.T) {
	con := event("Dragon*Con", day(2025, 8, 27), model.Once)
	con.End = day(2025, 9, 1)

	got := NewStream(day(2025, 8, 1), []model.Event{con}).Take(10)
	assertStarts(t, got, "2025-08-27", "2025-08-28", "2025-08-29", "2025-08-30", "2025-08-31", "2025-09-01")
	for _, ev := range got {
		if !ev.End.Equal(con.End) || ev.Name != con.Name {
			t.Errorf("continuation %+v changed inherited fields", ev)
		}
	}
}

func TestRecurringMultiDaySpan(t *testing.T) {
	trip := event("Weekend trip", day(2025, 1, 4), model.Weekly)
	trip.End = day(2025, 1, 5)

	got := NewStream(day(2025, 1, 1), []model.Event{trip}).Take(4)
	assertStarts(t, got, "2025-01-04", "2025-01-05", "2025-01-11", "2025-01-12")
	if got[1].Frequency.Kind != model.Once {
		t.Errorf("continuation frequency = %q, want once", got[1].Frequency.Kind)
	}
}

func TestPastEventsFiltered(t *testing.T) {
	old := event("Last Year's Test Event", day(2022, 10, 1), model.Once)
	if got := NewStream(day(2023, 1, 1), []model.Event{old}).Take(5); len(got) != 0 {
		t.Errorf("got %v, want nothing", starts(got))
	}
}

func TestQueryDayGranularity(t *testing.T) {
	morning := event("Breakfast", time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC), model.Once)
	evening := time.Date(2025, 2, 3, 20, 0, 0, 0, time.UTC)
	if got := NewStream(evening, []model.Event{morning}).Take(1); len(got) != 1 {
		t.Error("event earlier on the query day was dropped")
	}
}

func TestTodoFirst(t *testing.T) {
	dated := event("Test Event", day(2023, 1, 1), model.Once)
	dated.Priority = 10
	todo := model.Event{Name: "TODO Test Event", Priority: 0, Frequency: model.Frequency{Kind: model.Once}}

	got := NewStream(day(2022, 1, 1), []model.Event{dated, todo}).Take(5)
	assertStarts(t, got, "TODO", "2023-01-01")
}

func TestEqualStartsKeepSourceOrder(t *testing.T) {
	a := event("a", day(2025, 1, 6), model.Weekly)
	b := event("b", day(2025, 1, 6), model.Weekly)
	c := event("c", day(2025, 1, 6), model.Once)

	got := NewStream(day(2025, 1, 1), []model.Event{a, b, c}).Take(5)
	names := ""
	for _, ev := range got {
		names += ev.Name
	}
	if names != "abcab" {
		t.Errorf("order = %q, want abcab", names)
	}
}

func TestMixedOrdering(t *testing.T) {
	pt := pacific(t)
	events := []model.Event{
		event("Weekly", day(2023, 1, 1), model.Weekly),
		event("Work", time.Date(2023, 1, 2, 9, 0, 0, 0, pt), model.Weekdays),
		event("Once", day(2023, 1, 12), model.Once),
		{Name: "todo", Priority: 10, Frequency: model.Frequency{Kind: model.Once}},
	}
	span := event("Span", day(2023, 1, 10), model.Once)
	span.End = day(2023, 1, 14)
	events = append(events, span)

	got := NewStream(day(2023, 1, 1), events).Take(40)
	if len(got) != 40 {
		t.Fatalf("got %d occurrences", len(got))
	}
	assertOrdered(t, got)
}

func TestFloating(t *testing.T) {
	labor := event("Labor Day", time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), model.Floating)
	labor.Frequency = model.Frequency{Kind: model.Floating, Weekday: time.Monday, Week: 1, Month: time.September}
	got := NewStream(day(2025, 1, 1), []model.Event{labor}).Take(3)
	assertStarts(t, got, "2025-09-01", "2026-09-07", "2027-09-06")
	if got[1].Start.Hour() != 9 {
		t.Errorf("time of day not kept: %v", got[1].Start)
	}

	thanks := event("Thanksgiving", day(2025, 11, 27), model.Floating)
	thanks.Frequency = model.Frequency{Kind: model.Floating, Weekday: time.Thursday, Week: model.LastWeek, Month: time.November}
	got = NewStream(day(2025, 1, 1), []model.Event{thanks}).Take(2)
	assertStarts(t, got, "2025-11-27", "2026-11-26")
}

func TestMonthlySkipsShortMonths(t *testing.T) {
	rent := event("Rent", day(2025, 1, 31), model.Monthly)
	got := NewStream(day(2025, 1, 1), []model.Event{rent}).Take(3)
	assertStarts(t, got, "2025-01-31", "2025-03-31", "2025-05-31")
}

func TestDailyAndAnnually(t *testing.T) {
	got := NewStream(day(2025, 2, 27), []model.Event{event("pill", day(2025, 2, 27), model.Daily)}).Take(3)
	assertStarts(t, got, "2025-02-27", "2025-02-28", "2025-03-01")

	got = NewStream(day(2024, 1, 1), []model.Event{event("leap", day(2024, 2, 29), model.Annually)}).Take(2)
	assertStarts(t, got, "2024-02-29", "2028-02-29")
}

func TestStreamsDoNotShareState(t *testing.T) {
	events := []model.Event{event("Weekly", day(2023, 1, 1), model.Weekly)}
	first := NewStream(day(2023, 1, 1), events)
	first.Take(10)

	second := NewStream(day(2023, 1, 1), events)
	assertStarts(t, second.Take(1), "2023-01-01")
	if !events[0].Start.Equal(day(2023, 1, 1)) {
		t.Error("stream mutated the source events")
	}
}

func TestExhaustion(t *testing.T) {
	s := NewStream(day(2025, 1, 1), []model.Event{event("once", day(2025, 1, 2), model.Once)})
	if _, ok := s.Next(); !ok {
		t.Fatal("expected one occurrence")
	}
	if _, ok := s.Next(); ok {
		t.Fatal("expected exhaustion")
	}
	if _, ok := s.Next(); ok {
		t.Fatal("exhausted stream produced an occurrence")
	}
}
