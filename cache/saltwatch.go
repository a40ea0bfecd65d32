package cache

import (
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/internal/anlog"
)

// SaltWatch watches the optional persisted encryption-salt file (spec
// §6's "Persisted state": "an optional encryption-salt cache, keyed by
// username, may be persisted across sessions") and invalidates any
// caller-registered in-memory copy if the file changes or is removed
// out from under the process — e.g. another process on the same
// machine re-authenticating and overwriting it.
type SaltWatch struct {
	path    string
	log     anlog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	onStale func()
}

// NewSaltWatch starts watching path (which need not exist yet). onStale
// is invoked whenever the file is written or removed; it should clear
// whatever cached salt the caller holds so the next read picks up the
// new value from disk.
func NewSaltWatch(path string, onStale func(), log anlog.Logger) (*SaltWatch, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, anerr.Wrap(err, anerr.IOError, "create salt file watcher")
	}
	dir := parentDir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, anerr.Wrap(err, anerr.IOError, "watch salt directory %s", dir)
	}

	sw := &SaltWatch{path: path, log: log, watcher: watcher, onStale: onStale}
	go sw.run()
	return sw, nil
}

func (sw *SaltWatch) run() {
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != sw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				sw.log.Log(anlog.LevelDebug, "salt file changed, invalidating cached copy",
					anlog.F("path", sw.path), anlog.F("op", ev.Op.String()))
				sw.mu.Lock()
				cb := sw.onStale
				sw.mu.Unlock()
				if cb != nil {
					cb()
				}
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.log.Log(anlog.LevelWarning, "salt file watcher error", anlog.F("error", err.Error()))
		}
	}
}

func (sw *SaltWatch) Close() error { return sw.watcher.Close() }

func parentDir(path string) string {
	i := len(path) - 1
	for i >= 0 && !os.IsPathSeparator(path[i]) {
		i--
	}
	if i <= 0 {
		return "."
	}
	return path[:i]
}
