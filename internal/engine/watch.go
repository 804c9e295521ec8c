package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	appLog "lifelist/internal/log"
	"lifelist/internal/store"
)

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// WatchFile calls notify for every change notification about path until
// ctx is done. The parent directory is watched so that atomic replaces
// (write to a temp file, rename over path) are seen too.
func WatchFile(ctx context.Context, path string, notify func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&changeOps == 0 {
				continue
			}
			appLog.Debug("data file changed", "op", ev.Op.String(), "path", ev.Name)
			notify()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Warn("file watcher error", "path", path, "error", err.Error())
		}
	}
}

// Poller stats the data file on a cron schedule and calls notify when
// its size or modification time changes. It backs up WatchFile on file
// systems without reliable change notification.
type Poller struct {
	stat   func() (store.Version, error)
	notify func()
	cron   *cron.Cron

	mu    sync.Mutex
	last  store.Version
	known bool
}

// NewPoller validates spec (standard cron syntax or "@every 30s") and
// records the current version. Start begins polling.
func NewPoller(spec string, stat func() (store.Version, error), notify func()) (*Poller, error) {
	p := &Poller{stat: stat, notify: notify, cron: cron.New()}
	if _, err := p.cron.AddFunc(spec, p.check); err != nil {
		return nil, fmt.Errorf("rescan schedule %q: %w", spec, err)
	}
	if v, err := stat(); err == nil {
		p.last, p.known = v, true
	}
	return p, nil
}

func (p *Poller) Start() { p.cron.Start() }

// Stop halts the schedule and waits for a running check to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Poller) check() {
	v, err := p.stat()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			appLog.Warn("rescan stat failed", "error", err.Error())
		}
		return
	}

	p.mu.Lock()
	changed := !p.known || !v.ModTime.Equal(p.last.ModTime) || v.Size != p.last.Size
	p.last, p.known = v, true
	p.mu.Unlock()

	if changed {
		appLog.Debug("rescan found a change", "size", v.Size, "mod_time", v.ModTime)
		p.notify()
	}
}
