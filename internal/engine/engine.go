// Package engine owns the parsed event set, the per-day occurrence cache
// and the machinery that keeps both in step with the data file.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"lifelist/internal/agenda"
	"lifelist/internal/dateparse"
	appLog "lifelist/internal/log"
	"lifelist/internal/model"
	"lifelist/internal/store"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 800 * time.Millisecond

// Source is the backing data file: whole-document reads and writes.
// Read fails with store.ErrNotFound when the file is missing.
type Source interface {
	Read() ([]byte, error)
	Write(data []byte) error
}

// Options tune an Engine. The zero value is usable.
type Options struct {
	// Location resolves dates without a zone, in the file and on writes.
	// Nil means time.Local.
	Location *time.Location
	// Debounce is the quiet period before a change is parsed.
	Debounce time.Duration
	// Now is the reference clock for time-only dates. Nil means time.Now.
	Now func() time.Time
}

// snapshot pairs a parsed event set with the cache built over it. It is
// replaced as a whole, never mutated.
type snapshot struct {
	events []model.Event
	cache  *Cache
}

// Engine serves occurrence queries against the latest valid parse of its
// source.
type Engine struct {
	src    Source
	parser *dateparse.Parser

	current  atomic.Pointer[snapshot]
	reparse  *Debouncer
	writeMu  sync.Mutex
	reloadMu sync.Mutex
	reloads  atomic.Uint64
}

// New parses src and returns a ready engine. A missing or invalid file
// is an error; no engine is returned in that case.
func New(src Source, opts Options) (*Engine, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	e := &Engine{
		src:    src,
		parser: &dateparse.Parser{Location: opts.Location, Now: opts.Now},
	}
	snap, err := e.parse()
	if err != nil {
		return nil, err
	}
	e.current.Store(snap)
	e.reparse = NewDebouncer(opts.Debounce, e.reloadLogged)
	return e, nil
}

func (e *Engine) parse() (*snapshot, error) {
	appLog.Debug("parsing events data file")
	data, err := e.src.Read()
	if err != nil {
		return nil, err
	}
	events, err := store.Decode(data, e.parser)
	if err != nil {
		return nil, fmt.Errorf("data file is not valid: %w", err)
	}
	appLog.Info("events parsed", "count", len(events))
	return &snapshot{events: events, cache: NewCache(events)}, nil
}

// Reload re-parses the source now. On success the event set and every
// cached stream are replaced together; on failure the previous state is
// kept and the error returned.
func (e *Engine) Reload() error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	snap, err := e.parse()
	if err != nil {
		return err
	}
	e.current.Store(snap)
	e.reloads.Add(1)
	return nil
}

func (e *Engine) reloadLogged() {
	if err := e.Reload(); err != nil {
		appLog.Error("re-parse failed; keeping previous events", err)
	}
}

// Invalidate schedules a debounced Reload. Bursts of calls within the
// quiet period produce one parse.
func (e *Engine) Invalidate() {
	e.reparse.Schedule()
}

// Reloads returns the number of successful re-parses since New.
func (e *Engine) Reloads() uint64 {
	return e.reloads.Load()
}

// Events returns the current parsed event set.
func (e *Engine) Events() []model.Event {
	snap := e.current.Load()
	out := make([]model.Event, len(snap.events))
	for i, ev := range snap.events {
		out[i] = ev.Clone()
	}
	return out
}

// Occurrences returns the next count occurrences from the calendar day
// of from, in start order with undated items first.
func (e *Engine) Occurrences(from time.Time, count int) []model.Event {
	return e.current.Load().cache.Occurrences(from, count)
}

// Agenda is Occurrences grouped into display-ready days.
func (e *Engine) Agenda(from time.Time, count int) []agenda.Day {
	return agenda.Group(e.Occurrences(from, count))
}

// Parser returns the date parser used for the data file.
func (e *Engine) Parser() *dateparse.Parser {
	return e.parser
}

// Add appends events to the data file. The file is read fresh, the
// whole document must still be valid, and the result replaces the file
// in one write. A debounced re-parse follows.
func (e *Engine) Add(events ...model.Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		events[i].Normalize()
		if err := events[i].Validate(); err != nil {
			if len(events) == 1 {
				return err
			}
			return fmt.Errorf("event %d: %w", i, err)
		}
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	data, err := e.src.Read()
	if err != nil {
		return err
	}
	doc, err := store.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("existing data file is not valid: %w", err)
	}
	if _, err := doc.Events(e.parser); err != nil {
		return fmt.Errorf("existing data file is not valid: %w", err)
	}
	for _, ev := range events {
		if err := doc.Append(ev, e.parser); err != nil {
			return err
		}
	}
	out, err := doc.Bytes()
	if err != nil {
		return fmt.Errorf("render data file: %w", err)
	}
	if err := e.src.Write(out); err != nil {
		return err
	}

	appLog.Info("events added", "added", len(events), "first", events[0].Name, "entries", doc.Len())
	// Change notification may be slow or missing; do not wait for it.
	e.Invalidate()
	return nil
}

// Run watches path for changes, plus a cron-scheduled stat poll when
// rescan is non-empty, until ctx is done. A watcher that cannot start is
// logged and polling carries on alone.
func (e *Engine) Run(ctx context.Context, f *store.File, rescan string) error {
	if rescan != "" {
		p, err := NewPoller(rescan, f.Stat, e.Invalidate)
		if err != nil {
			return err
		}
		p.Start()
		defer p.Stop()
	}

	err := WatchFile(ctx, f.Path, e.Invalidate)
	if err != nil && !errors.Is(err, context.Canceled) {
		appLog.Warn("file watcher unavailable; relying on rescan", "path", f.Path, "error", err.Error())
		<-ctx.Done()
	}
	return nil
}

// Close drops a pending re-parse.
func (e *Engine) Close() {
	e.reparse.Cancel()
}
