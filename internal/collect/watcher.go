package collect

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches bursts of filesystem events into one trigger.
const DefaultDebounce = 2 * time.Second

// Watcher invokes a callback when source files change. Events are
// debounced so a save-all or branch switch triggers one scan, not
// hundreds. Newly created directories are added to the watch.
type Watcher struct {
	fsw        *fsnotify.Watcher
	extensions map[string]bool
	debounce   time.Duration
	onChange   func()

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewWatcher recursively watches root and calls onChange (debounced)
// when a file with one of the given extensions changes. Extensions are
// matched with their leading dot (".java").
func NewWatcher(root string, extensions []string, debounce time.Duration, onChange func()) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("change callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[ext] = true
	}

	w := &Watcher{
		fsw:        fsw,
		extensions: extSet,
		debounce:   debounce,
		onChange:   onChange,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Close stops the watcher and releases its resources. Safe to call more
// than once; the watcher is also shut down by emergency memory
// mitigation, which may race a regular shutdown.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
		<-w.doneCh
	})
	return err
}

// addRecursive watches root and every directory under it. Hidden
// directories are skipped; build output churn under .git or .modforge
// must not trigger scans.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// loop drains filesystem events, resetting a debounce timer on each
// relevant one. The callback fires when the timer expires.
func (w *Watcher) loop() {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-w.stopCh:
			timer.Stop()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to watch %s: %v\n", event.Name, err)
					}
					continue
				}
			}
			if !w.relevant(event) {
				continue
			}
			if pending {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Warning: filesystem watcher error: %v\n", err)

		case <-timer.C:
			pending = false
			w.onChange()
		}
	}
}

// relevant reports whether an event concerns a watched source file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[filepath.Ext(event.Name)]
}
