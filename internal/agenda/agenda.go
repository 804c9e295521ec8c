// Package agenda turns a start-ordered occurrence list into day groups
// for display.
package agenda

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"lifelist/internal/dateparse"
	"lifelist/internal/model"
)

// Summary is the display form of one occurrence.
type Summary struct {
	Name     string  `json:"name"`
	Priority float64 `json:"priority"`
	Location *string `json:"location"`
	// StartTime and EndTime are empty when the instant is absent or falls
	// exactly on midnight.
	StartTime string   `json:"startTime,omitempty"`
	EndTime   string   `json:"endTime,omitempty"`
	Tags      []string `json:"tags"`
}

// Day is one group: a day key ("Wed Mar 19 2025" or "TODO") and its
// occurrences, highest priority first.
type Day struct {
	Key    string
	Events []Summary
}

// MarshalJSON encodes a day as a [key, events] pair.
func (d Day) MarshalJSON() ([]byte, error) {
	events := d.Events
	if events == nil {
		events = []Summary{}
	}
	return json.Marshal([]any{d.Key, events})
}

type group struct {
	day   Day
	date  model.Date
	dated bool
}

// Group buckets occurrences by day key. Days come out in date order with
// TODO first; within a day, higher priorities come first and equal
// priorities keep their input order.
func Group(events []model.Event) []Day {
	var groups []*group
	byKey := make(map[string]*group)
	for _, ev := range events {
		key := model.TodoKey
		if !ev.IsTodo() {
			key = model.DayKey(ev.Start)
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{day: Day{Key: key}}
			if !ev.IsTodo() {
				g.date, g.dated = model.DateOf(ev.Start), true
			}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.day.Events = append(g.day.Events, Summarize(ev))
	}

	slices.SortStableFunc(groups, func(a, b *group) int {
		switch {
		case !a.dated && !b.dated:
			return 0
		case !a.dated:
			return -1
		case !b.dated:
			return 1
		case a.date.Before(b.date):
			return -1
		case b.date.Before(a.date):
			return 1
		}
		return 0
	})

	days := make([]Day, len(groups))
	for i, g := range groups {
		slices.SortStableFunc(g.day.Events, func(a, b Summary) int {
			switch {
			case a.Priority > b.Priority:
				return -1
			case a.Priority < b.Priority:
				return 1
			}
			return 0
		})
		days[i] = g.day
	}
	return days
}

// Summarize strips an occurrence down to its display fields. When both
// times are shown only the end carries the zone ("7pm", "10pm PT").
func Summarize(ev model.Event) Summary {
	s := Summary{
		Name:     ev.Name,
		Priority: ev.Priority,
		Tags:     ev.Tags,
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if ev.Location != "" {
		loc := ev.Location
		s.Location = &loc
	}

	hasStart := !ev.IsTodo() && hasClock(ev.Start)
	hasEnd := ev.HasEnd() && hasClock(ev.End)
	if hasStart {
		s.StartTime = Clock(ev.Start, !hasEnd)
	}
	if hasEnd {
		s.EndTime = Clock(ev.End, true)
	}
	return s
}

func hasClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0
}

// Clock formats t as "7pm" or "7:30am", with the generic zone name
// appended when withZone is set ("7pm PT").
func Clock(t time.Time, withZone bool) string {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(hour))
	if m := t.Minute(); m != 0 {
		fmt.Fprintf(&b, ":%02d", m)
	}
	if t.Hour() < 12 {
		b.WriteString("am")
	} else {
		b.WriteString("pm")
	}
	if withZone {
		b.WriteString(" ")
		b.WriteString(dateparse.GenericName(t))
	}
	return b.String()
}

// Write renders days as plain text, one heading per day.
func Write(w io.Writer, days []Day) error {
	for i, d := range days {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, d.Key); err != nil {
			return err
		}
		for _, s := range d.Events {
			if _, err := fmt.Fprintln(w, "  "+line(s)); err != nil {
				return err
			}
		}
	}
	return nil
}

func line(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", strconv.FormatFloat(s.Priority, 'f', -1, 64))
	switch {
	case s.StartTime != "" && s.EndTime != "":
		b.WriteString(s.StartTime + " - " + s.EndTime + "  ")
	case s.StartTime != "":
		b.WriteString(s.StartTime + "  ")
	case s.EndTime != "":
		b.WriteString("until " + s.EndTime + "  ")
	}
	b.WriteString(s.Name)
	if s.Location != nil {
		b.WriteString(" @ " + *s.Location)
	}
	for _, tag := range s.Tags {
		b.WriteString(" #" + tag)
	}
	return b.String()
}
