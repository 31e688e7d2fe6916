// Package watcher reports changes to catalog sources so the viewer can
// rebuild its forest. A source is either one file or a directory whose
// matching files are merged. It uses fsnotify and falls back to polling
// when fsnotify is unavailable or polling is forced.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when the source changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithMatch limits which entries of a watched directory count as catalog
// files. It has no effect when a single file is watched. Hidden files never
// match.
func WithMatch(fn func(name string) bool) WatcherOption {
	return func(w *Watcher) {
		w.match = fn
	}
}

// fingerprint summarizes the watched files for polling. Any write, add or
// remove moves at least one field.
type fingerprint struct {
	newest int64 // Latest mtime, unix nanoseconds
	size   int64
	count  int
}

func (f fingerprint) empty() bool { return f.count == 0 }

// Watcher monitors a catalog file, or the catalog files in a directory.
type Watcher struct {
	path             string
	isDir            bool
	match            func(name string) bool
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	last        fingerprint

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a watcher for path, which may be a file or a
// directory. A path that does not exist yet is treated as a file.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		match:            func(string) bool { return true },
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}
	if info, err := os.Stat(absPath); err == nil && info.IsDir() {
		w.isDir = true
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.useFallback = w.forcePoll || envBool("CV_FORCE_POLL")

	fp, err := w.scan()
	if err != nil && os.IsPermission(err) {
		w.cancel()
		return ErrPermission
	}
	// A missing file is fine; it may be created later.
	w.last = fp

	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.useFallback = true
		} else if err := fsw.Add(w.watchDir()); err != nil {
			fsw.Close()
			w.useFallback = true
		} else {
			w.fsWatcher = fsw
			go w.watchFsnotify(fsw.Events, fsw.Errors)
		}
	}

	if w.useFallback {
		go w.watchPolling()
	}

	w.started = true
	return nil
}

// Stop stops watching. The change channel is left open so a goroutine
// blocked on Changed() is not woken spuriously.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// IsDir reports whether a directory of catalog files is watched.
func (w *Watcher) IsDir() bool {
	return w.isDir
}

// Changed returns a channel that receives when the source changes.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the watched path.
func (w *Watcher) Path() string {
	return w.path
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// watchDir is what fsnotify subscribes to. For a single file it is the
// parent directory, since editors replace files by rename.
func (w *Watcher) watchDir() string {
	if w.isDir {
		return w.path
	}
	return filepath.Dir(w.path)
}

// relevant reports whether an event path names a watched file.
func (w *Watcher) relevant(name string) bool {
	if !w.isDir {
		return filepath.Base(name) == filepath.Base(w.path)
	}
	if filepath.Dir(name) != w.path {
		return false
	}
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && w.match(base)
}

// scan fingerprints the watched file or directory entries.
func (w *Watcher) scan() (fingerprint, error) {
	if !w.isDir {
		info, err := os.Stat(w.path)
		if err != nil {
			return fingerprint{}, err
		}
		return fingerprint{newest: info.ModTime().UnixNano(), size: info.Size(), count: 1}, nil
	}

	entries, err := os.ReadDir(w.path)
	if err != nil {
		return fingerprint{}, err
	}
	var fp fingerprint
	for _, e := range entries {
		if e.IsDir() || !w.relevant(filepath.Join(w.path, e.Name())) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		fp.count++
		fp.size += info.Size()
		if ns := info.ModTime().UnixNano(); ns > fp.newest {
			fp.newest = ns
		}
	}
	return fp, nil
}

func (w *Watcher) watchFsnotify(events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0 && !w.isDir:
				w.onError(ErrFileRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			fp, err := w.scan()
			if err != nil {
				switch {
				case os.IsNotExist(err):
					w.mu.RLock()
					hadFile := !w.last.empty()
					w.mu.RUnlock()
					if hadFile {
						w.onError(ErrFileRemoved)
					}
				case os.IsPermission(err):
					w.onError(ErrPermission)
				default:
					w.onError(err)
				}
				continue
			}

			w.mu.Lock()
			changed := fp != w.last
			w.last = fp
			w.mu.Unlock()

			if changed {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	if !started {
		return
	}

	w.onChange()

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
