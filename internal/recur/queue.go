package recur

import (
	"container/heap"

	"lifelist/internal/model"
)

type item struct {
	ev  model.Event
	seq uint64
}

// queue is the working set: a min-heap ordered by start, undated events
// first. seq breaks ties in insertion order, so equal starts come out in
// source order and pushed-back copies after the items already waiting.
type queue struct {
	items []item
	next  uint64
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	switch at, bt := a.ev.IsTodo(), b.ev.IsTodo(); {
	case at && bt:
		return a.seq < b.seq
	case at != bt:
		return at
	}
	if !a.ev.Start.Equal(b.ev.Start) {
		return a.ev.Start.Before(b.ev.Start)
	}
	return a.seq < b.seq
}

func (q *queue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *queue) Push(x any) { q.items = append(q.items, x.(item)) }

func (q *queue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = item{}
	q.items = old[:n-1]
	return it
}

func newQueue(events []model.Event) *queue {
	q := &queue{items: make([]item, 0, len(events))}
	for _, ev := range events {
		q.items = append(q.items, item{ev: ev.Clone(), seq: q.next})
		q.next++
	}
	heap.Init(q)
	return q
}

func (q *queue) add(ev model.Event) {
	heap.Push(q, item{ev: ev, seq: q.next})
	q.next++
}

func (q *queue) take() (model.Event, bool) {
	if q.Len() == 0 {
		return model.Event{}, false
	}
	return heap.Pop(q).(item).ev, true
}
