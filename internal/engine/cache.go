package engine

import (
	"sync"
	"time"

	"lifelist/internal/model"
	"lifelist/internal/recur"
)

// Cache memoizes occurrences per query day. Each day keeps the
// occurrences pulled so far and the stream that produced them, so a
// larger request resumes where the last one stopped.
type Cache struct {
	events []model.Event

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	items  []model.Event
	stream *recur.Stream
	done   bool
}

// NewCache builds an empty cache over one parsed event set.
func NewCache(events []model.Event) *Cache {
	return &Cache{
		events:  events,
		entries: make(map[string]*entry),
	}
}

func (c *Cache) lookup(from time.Time) *entry {
	key := model.DayKey(from)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{stream: recur.NewStream(from, c.events)}
		c.entries[key] = e
	}
	return e
}

// Occurrences returns the first count occurrences on or after the
// calendar day of from, or fewer if the stream runs dry.
func (c *Cache) Occurrences(from time.Time, count int) []model.Event {
	if count <= 0 {
		return []model.Event{}
	}
	e := c.lookup(from)

	e.mu.Lock()
	defer e.mu.Unlock()
	for !e.done && len(e.items) < count {
		ev, ok := e.stream.Next()
		if !ok {
			e.done = true
			e.stream = nil
			break
		}
		e.items = append(e.items, ev)
	}

	n := min(count, len(e.items))
	out := make([]model.Event, n)
	copy(out, e.items[:n])
	return out
}

// Len returns how many occurrences are materialized for the day of from.
func (c *Cache) Len(from time.Time) int {
	c.mu.Lock()
	e, ok := c.entries[model.DayKey(from)]
	c.mu.Unlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}
