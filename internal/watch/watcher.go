package watch

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// OnChange is invoked, debounced, with the root-relative path that
// changed.
type OnChange func(relPath string)

// Watcher drives a Registry-attached fsnotify session over a project
// root: when config.Watch.Enabled is true, it takes over from
// SaveDocument's inline recheck (spec.md §4.5's "external notifier"
// branch) and instead debounces filesystem write events into calls to
// OnChange.
type Watcher struct {
	fsw      *fsnotify.Watcher
	registry *Registry
	root     string
	onChange OnChange
	debounce time.Duration

	debouncer *eventDebouncer
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// New starts watching root for writes, debounced by debounceMs, and
// attaches to registry for the duration of its lifetime.
func New(root string, debounceMs int, registry *Registry, onChange OnChange) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		registry: registry,
		root:     root,
		onChange: onChange,
		debounce: time.Duration(debounceMs) * time.Millisecond,
		stopCh:   make(chan struct{}),
	}
	w.debouncer = newEventDebouncer(w.debounce, w.dispatch)

	if err := addTree(fsw, root); err != nil {
		fsw.Close()
		return nil, err
	}

	registry.Attach()
	go w.loop()
	return w, nil
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			_ = fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rel, err := filepath.Rel(w.root, ev.Name)
			if err != nil {
				continue
			}
			w.debouncer.addEvent(filepath.ToSlash(rel))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("tychk: watcher error: %v", err)
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) dispatch(relPath string) {
	if w.onChange != nil {
		w.onChange(relPath)
	}
}

// Close stops the watcher and detaches it from its registry.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.registry.Detach()
	})
	return w.fsw.Close()
}

// eventDebouncer batches per-path write events, adapted from the
// teacher's internal/indexing/watcher.go eventDebouncer.
type eventDebouncer struct {
	mu       sync.Mutex
	pending  map[string]struct{}
	debounce time.Duration
	timer    *time.Timer
	fire     func(string)
}

func newEventDebouncer(debounce time.Duration, fire func(string)) *eventDebouncer {
	return &eventDebouncer{
		pending:  map[string]struct{}{},
		debounce: debounce,
		fire:     fire,
	}
}

func (d *eventDebouncer) addEvent(relPath string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[relPath] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	paths := d.pending
	d.pending = map[string]struct{}{}
	d.mu.Unlock()

	for p := range paths {
		d.fire(p)
	}
}
