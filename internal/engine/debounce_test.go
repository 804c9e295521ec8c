package engine

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lifelist/internal/store"
)

func TestDebouncerCoalesces(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(100*time.Millisecond, func() { calls.Add(1) })

	for range 5 {
		d.Schedule()
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Pending() {
		t.Fatal("expected a pending call")
	}
	waitFor(t, "debounced call", func() bool { return calls.Load() == 1 })
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if d.Pending() {
		t.Error("still pending after firing")
	}
}

func TestDebouncerCancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	if d.Cancel() {
		t.Error("Cancel reported a pending call on a fresh debouncer")
	}
	d.Schedule()
	if !d.Cancel() {
		t.Error("Cancel did not report the pending call")
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("calls = %d after Cancel, want 0", n)
	}
}

func TestDebouncerFlush(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(time.Hour, func() { calls.Add(1) })

	d.Schedule()
	d.Flush()
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d after Flush, want 1", n)
	}
	if d.Pending() {
		t.Error("Flush left the scheduled call pending")
	}

	d.Flush()
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want Flush to run without a pending call", n)
	}
}

func TestPollerDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	f := &store.File{Path: filepath.Join(dir, "data.yaml")}
	if err := os.WriteFile(f.Path, []byte("upcoming: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	p, err := NewPoller("@every 1h", f.Stat, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}

	p.check()
	if n := calls.Load(); n != 0 {
		t.Fatalf("unchanged file reported %d changes", n)
	}

	if err := os.WriteFile(f.Path, []byte("upcoming: []\n# edited\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p.check()
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d after edit, want 1", n)
	}
	p.check()
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d after a quiet poll, want 1", n)
	}

	if err := os.Remove(f.Path); err != nil {
		t.Fatal(err)
	}
	p.check()
	if n := calls.Load(); n != 1 {
		t.Errorf("missing file reported a change")
	}

	p.Start()
	p.Stop()
}

func TestPollerRejectsBadSpec(t *testing.T) {
	if _, err := NewPoller("every so often", func() (store.Version, error) { return store.Version{}, nil }, func() {}); err == nil {
		t.Error("expected an error for a bad schedule")
	}
}
