package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-invokes onChange whenever any of the watched files is written.
// Grounded on the teacher's fsnotify-based config reload: a single watcher
// goroutine fans writes on any tracked path out to one callback, coalescing
// nothing — the caller's onChange is expected to be idempotent and cheap.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange func(path string)
	done     chan struct{}
}

// NewWatcher starts watching paths, invoking onChange with the path that
// changed on every Write or Create event.
func NewWatcher(paths []string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: new watcher: %w", err)
	}
	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("config: watch %s: %w", p, err)
		}
	}
	w := &Watcher{fsw: fsw, onChange: onChange, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 && w.onChange != nil {
				w.onChange(ev.Name)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
