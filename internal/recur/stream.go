// Package recur expands a finite set of events into the infinite,
// start-ordered sequence of their occurrences.
package recur

import (
	"time"

	"lifelist/internal/model"
)

// Stream yields the occurrences on or after one query day, in start
// order. It owns a private copy of the events it was built from and
// cannot be rewound. A Stream is not safe for concurrent use.
type Stream struct {
	from model.Date
	q    *queue
}

// NewStream starts an enumeration from the calendar day of from (in
// from's location).
func NewStream(from time.Time, events []model.Event) *Stream {
	return &Stream{
		from: model.DateOf(from),
		q:    newQueue(events),
	}
}

// Next returns the next occurrence, or false once the working set is
// empty. A stream holding a recurring event never runs dry.
func (s *Stream) Next() (model.Event, bool) {
	for {
		ev, ok := s.q.take()
		if !ok {
			return model.Event{}, false
		}

		if next, ok := nextCycle(ev); ok {
			s.q.add(next)
		}

		if !ev.IsTodo() && model.DateOf(ev.Start).Before(s.from) {
			continue
		}

		if next, ok := continuation(ev); ok {
			s.q.add(next)
		}
		return ev, true
	}
}

// Take pulls up to n occurrences.
func (s *Stream) Take(n int) []model.Event {
	out := make([]model.Event, 0, n)
	for len(out) < n {
		ev, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, ev)
	}
	return out
}
