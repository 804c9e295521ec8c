package model

import (
	"time"
)

// Event is one event occurrence. Parsed source events and the derived
// copies produced during enumeration share this type; a derived copy only
// differs from its source in Start/End (and Frequency for multi-day
// continuations).
//
// A zero Start marks an undated TODO item. A zero End means "no end".
type Event struct {
	Name      string
	Priority  float64
	Location  string
	Start     time.Time
	End       time.Time
	Frequency Frequency
	Tags      []string
}

// IsTodo reports whether the event has no start.
func (e Event) IsTodo() bool {
	return e.Start.IsZero()
}

// HasEnd reports whether the event carries an end instant.
func (e Event) HasEnd() bool {
	return !e.End.IsZero()
}

// Recurs reports whether the event starts a new cycle after each
// occurrence.
func (e Event) Recurs() bool {
	return e.Frequency.Kind != Once && e.Frequency.Kind != ""
}

// Clone returns a copy that does not share the Tags backing array.
func (e Event) Clone() Event {
	out := e
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	return out
}

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DaysUntil returns the number of calendar days from d to o.
func (d Date) DaysUntil(o Date) int {
	a := d.Time(time.UTC)
	b := o.Time(time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DayKeyLayout is the layout of day keys ("Wed Mar 19 2025").
const DayKeyLayout = "Mon Jan 02 2006"

// TodoKey is the day key of undated items.
const TodoKey = "TODO"

// DayKey returns the day key of t: its calendar day formatted with
// DayKeyLayout. Time of day is ignored.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}
