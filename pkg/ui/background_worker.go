// This file implements the BackgroundWorker that reloads the catalog off
// the UI thread.
package ui

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/vanderheijden86/catview/pkg/forest"
	"github.com/vanderheijden86/catview/pkg/loader"
	"github.com/vanderheijden86/catview/pkg/model"
	"github.com/vanderheijden86/catview/pkg/watcher"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is building a new snapshot.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load" or "build"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Number of consecutive failures
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// CatalogSnapshot is an immutable result of loading and building a catalog.
type CatalogSnapshot struct {
	Records  []model.CatalogRecord
	Columns  []model.Column
	Forest   *forest.Forest
	Sources  []string
	DataHash string
	LoadedAt time.Time
}

// SnapshotOptions controls how a snapshot is built.
type SnapshotOptions struct {
	AdoptOrphans bool
}

// LoadSnapshot loads the catalog at path and builds its forest. Columns are
// returned as declared by the source; callers apply config fallbacks.
func LoadSnapshot(ctx context.Context, path string, opts SnapshotOptions) (*CatalogSnapshot, error) {
	cat, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	return buildSnapshotFrom(cat, opts)
}

func buildSnapshotFrom(cat *loader.Catalog, opts SnapshotOptions) (*CatalogSnapshot, error) {
	var fopts []forest.Option
	if opts.AdoptOrphans {
		fopts = append(fopts, forest.WithOrphansAsRoots())
	}
	f, err := forest.Build(cat.Records, fopts...)
	if err != nil {
		return nil, err
	}
	hash, err := ComputeDataHash(cat.Records, cat.Columns)
	if err != nil {
		return nil, err
	}
	return &CatalogSnapshot{
		Records:  f.Records(),
		Columns:  cat.Columns,
		Forest:   f,
		Sources:  cat.Sources,
		DataHash: hash,
		LoadedAt: time.Now(),
	}, nil
}

// ComputeDataHash returns a content hash of records and columns. Map
// iteration order does not affect it.
func ComputeDataHash(records []model.CatalogRecord, columns []model.Column) (string, error) {
	h, err := hashstructure.Hash(struct {
		Records []model.CatalogRecord
		Columns []model.Column
	}{records, columns}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hashing catalog: %w", err)
	}
	return fmt.Sprintf("%016x", h), nil
}

// Sender delivers messages to the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// BackgroundWorker manages background reloading of catalog data.
// It owns the file watcher, implements coalescing, and builds snapshots
// off the UI thread.
type BackgroundWorker struct {
	// Configuration
	catalogPath   string
	debounceDelay time.Duration
	opts          SnapshotOptions

	// State
	mu       sync.RWMutex
	state    WorkerState
	dirty    bool // True if a change came in while processing
	snapshot *CatalogSnapshot
	started  bool
	lastHash string // Content hash of last processed snapshot (for dedup)

	// Error tracking
	lastError  *WorkerError
	errorCount int

	// Components
	watcher *watcher.Watcher
	sender  Sender

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	CatalogPath   string
	DebounceDelay time.Duration
	ForcePoll     bool
	Options       SnapshotOptions
	Sender        Sender
	// LastHash seeds dedup with the hash of an already displayed snapshot.
	LastHash string
}

// NewBackgroundWorker creates a new background worker.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = watcher.DefaultDebounceDuration
	}

	w := &BackgroundWorker{
		catalogPath:   cfg.CatalogPath,
		debounceDelay: cfg.DebounceDelay,
		opts:          cfg.Options,
		sender:        cfg.Sender,
		lastHash:      cfg.LastHash,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	if cfg.CatalogPath != "" {
		watchPath, err := resolveWatchPath(cfg.CatalogPath)
		if err != nil {
			cancel()
			return nil, err
		}
		fw, err := watcher.NewWatcher(watchPath,
			watcher.WithDebounceDuration(cfg.DebounceDelay),
			watcher.WithForcePoll(cfg.ForcePoll),
			watcher.WithMatch(loader.IsSupported),
			watcher.WithOnError(func(err error) {
				log.Printf("warning: watching %s: %v", watchPath, err)
			}),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// resolveWatchPath checks that a catalog directory holds at least one
// catalog file. The directory itself is watched so every merged file counts.
func resolveWatchPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return path, nil
	}
	files, err := loader.CatalogFiles(path)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%s: %w", path, loader.ErrNoCatalog)
	}
	return path, nil
}

// Start begins watching for file changes and processing in the background.
// Start is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Start(); err != nil {
			return err
		}
		go w.processLoop()
	} else {
		// No watcher - close done channel immediately so Stop() doesn't block
		close(w.done)
	}

	return nil
}

// Stop halts the background worker and cleans up resources.
// Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()

	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// TriggerRefresh manually triggers a reload.
// Has no effect if the worker is stopped; coalesces while processing.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// GetSnapshot returns the latest snapshot (may be nil).
func (w *BackgroundWorker) GetSnapshot() *CatalogSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// processLoop watches for file changes and triggers processing.
func (w *BackgroundWorker) processLoop() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

// process builds a new snapshot from the current file.
func (w *BackgroundWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	snapshot := w.buildSnapshot()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if snapshot != nil {
		w.snapshot = snapshot
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	w.mu.Unlock()

	if w.sender != nil && snapshot != nil {
		w.sender.Send(RecordsReadyMsg{Snapshot: snapshot})
	}

	if wasDirty {
		go w.process()
	}
}

// safeCompute executes fn and recovers from any panics.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

// recordError tracks an error and updates error state.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// LastError returns the most recent error (nil if last operation succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

func (w *BackgroundWorker) fail(err *WorkerError) {
	w.recordError(err)
	log.Printf("warning: reloading %s: %v", w.catalogPath, err)
	if w.sender != nil {
		w.sender.Send(RecordsErrorMsg{Err: err, Recoverable: true})
	}
}

// buildSnapshot loads the catalog and builds its forest.
// Called from the worker goroutine, never the UI thread.
// Returns nil if the path is empty, loading fails, or content is unchanged
// since the last successful build.
func (w *BackgroundWorker) buildSnapshot() *CatalogSnapshot {
	if w.catalogPath == "" {
		return nil
	}

	start := time.Now()

	var cat *loader.Catalog
	if loadErr := w.safeCompute("load", func() error {
		var err error
		cat, err = loader.Load(w.ctx, w.catalogPath)
		return err
	}); loadErr != nil {
		w.fail(loadErr)
		return nil
	}

	hash, err := ComputeDataHash(cat.Records, cat.Columns)
	if err != nil {
		w.fail(&WorkerError{Phase: "load", Cause: err, Time: time.Now()})
		return nil
	}

	w.mu.RLock()
	lastHash := w.lastHash
	failing := w.errorCount > 0
	w.mu.RUnlock()

	// Content equal to the displayed snapshot is skipped, unless the UI is
	// still showing a failed reload and needs a fresh snapshot to clear it.
	if hash == lastHash && lastHash != "" && !failing {
		return nil
	}

	var snapshot *CatalogSnapshot
	if buildErr := w.safeCompute("build", func() error {
		var err error
		snapshot, err = buildSnapshotFrom(cat, w.opts)
		return err
	}); buildErr != nil {
		w.fail(buildErr)
		return nil
	}

	w.recordError(nil)

	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	log.Printf("reload: %d records, %d nodes in %v (hash=%s)",
		len(snapshot.Records), snapshot.Forest.Len(), time.Since(start), hash)

	return snapshot
}

// RecordsReadyMsg is sent to the UI when a new snapshot is ready.
type RecordsReadyMsg struct {
	Snapshot *CatalogSnapshot
}

// RecordsErrorMsg is sent to the UI when a reload fails. The UI keeps the
// last good snapshot.
type RecordsErrorMsg struct {
	Err         error
	Recoverable bool
}

// LastHash returns the content hash from the last successful build.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// ResetHash clears the stored content hash, forcing the next build
// even if content is unchanged.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.lastHash = ""
	w.mu.Unlock()
}
