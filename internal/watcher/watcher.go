// Package watcher re-indexes markdown documents as they change on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/nickcecere/kb/internal/fs"
	"github.com/nickcecere/kb/internal/indexer"
)

// DefaultDebounce is how long events are collected before a flush.
const DefaultDebounce = 500 * time.Millisecond

// Adder indexes a single document.
type Adder interface {
	Add(ctx context.Context, path string) indexer.Result
}

// Watcher watches a directory tree and re-adds markdown files that change.
type Watcher struct {
	root        string
	adder       Adder
	extensions  []string
	maxFileSize int64

	// debounce holds pending file events to batch process
	debounce     map[string]fsnotify.Op
	debounceMu   sync.Mutex
	debounceTime time.Duration

	// hashes tracks the content hash last indexed per path
	hashes   map[string]string
	hashesMu sync.Mutex

	onResult func(indexer.Result)
	onRemove func(path string)
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceTime sets the debounce duration for batching events.
func WithDebounceTime(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceTime = d
	}
}

// WithExtensions restricts the watched files to the given extensions.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		w.extensions = exts
	}
}

// WithMaxFileSize ignores files larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(w *Watcher) {
		w.maxFileSize = n
	}
}

// WithResultCallback is called after every re-index attempt.
func WithResultCallback(fn func(indexer.Result)) Option {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// WithRemoveCallback is called when a watched document disappears.
func WithRemoveCallback(fn func(path string)) Option {
	return func(w *Watcher) {
		w.onRemove = fn
	}
}

// New creates a new file watcher. Paths reported to the adder are joined onto
// root as given, so they match the IDs produced by indexing the same directory.
func New(root string, adder Adder, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "watch", Path: root, Err: os.ErrInvalid}
	}

	w := &Watcher{
		root:         filepath.Clean(root),
		adder:        adder,
		extensions:   fs.MarkdownExtensions,
		debounce:     make(map[string]fsnotify.Op),
		debounceTime: DefaultDebounce,
		hashes:       make(map[string]string),
		onResult:     func(indexer.Result) {},
		onRemove:     func(string) {},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Remember records the hash of an already indexed document so an unchanged
// write does not trigger a re-embed.
func (w *Watcher) Remember(res indexer.Result) {
	if res.Outcome != indexer.Indexed || res.Hash == "" {
		return
	}
	w.hashesMu.Lock()
	w.hashes[filepath.Clean(res.ID)] = res.Hash
	w.hashesMu.Unlock()
}

// Start begins watching for file changes. Blocks until context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := w.addDirectories(watcher); err != nil {
		return err
	}

	log.Info("Watching for document changes", "root", w.root)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, watcher)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// addDirectories recursively adds all directories to the watcher.
func (w *Watcher) addDirectories(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && shouldSkipDir(d.Name()) {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			log.Debug("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// shouldSkipDir returns true if directory should not be watched.
func shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor", "dist", "build", "out", "target", "__pycache__":
		return true
	}
	return false
}

// handleEvent processes a single file system event.
func (w *Watcher) handleEvent(event fsnotify.Event, watcher *fsnotify.Watcher) {
	path := event.Name

	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !shouldSkipDir(filepath.Base(path)) {
				if err := watcher.Add(path); err != nil {
					log.Debug("Failed to watch directory", "path", path, "error", err)
				} else {
					log.Debug("Added directory to watch", "path", path)
				}
			}
			return
		}
	}

	if !fs.HasExtension(path, w.extensions) {
		return
	}

	w.enqueue(path, event.Op)
}

func (w *Watcher) enqueue(path string, op fsnotify.Op) {
	w.debounceMu.Lock()
	w.debounce[filepath.Clean(path)] |= op
	w.debounceMu.Unlock()
}

// processDebounced processes debounced file events periodically.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounceTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flushDebounced(ctx)
		}
	}
}

// flushDebounced processes all pending debounced events.
func (w *Watcher) flushDebounced(ctx context.Context) {
	w.debounceMu.Lock()
	if len(w.debounce) == 0 {
		w.debounceMu.Unlock()
		return
	}
	events := w.debounce
	w.debounce = make(map[string]fsnotify.Op)
	w.debounceMu.Unlock()

	for path := range events {
		if ctx.Err() != nil {
			return
		}

		// The file's current state decides, whatever sequence of ops led here.
		info, err := os.Stat(path)
		if err != nil {
			w.handleRemove(path)
			continue
		}
		if info.IsDir() {
			continue
		}
		if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
			log.Debug("Skipping large file", "path", path, "size", info.Size())
			continue
		}

		w.handleModify(ctx, path)
	}
}

// handleModify re-adds a created or modified document unless its content is unchanged.
func (w *Watcher) handleModify(ctx context.Context, path string) {
	hash, err := fs.HashFile(path)
	if err == nil && w.unchanged(path, hash) {
		log.Debug("Content unchanged", "path", path)
		return
	}

	res := w.adder.Add(ctx, path)
	switch res.Outcome {
	case indexer.Indexed:
		w.Remember(res)
		log.Info("Re-indexed", "file", path, "title", res.Title)
	case indexer.Skipped, indexer.Empty:
		w.forget(path)
		log.Warn("Not indexed", "file", path, "reason", res.Outcome)
	default:
		log.Error("Failed to index", "file", path, "error", res.Err)
	}
	w.onResult(res)
}

// handleRemove reports a document that no longer exists. Its entry stays in the store.
func (w *Watcher) handleRemove(path string) {
	w.forget(path)
	log.Info("Document removed; its index entry is kept", "file", path)
	w.onRemove(path)
}

func (w *Watcher) unchanged(path, hash string) bool {
	w.hashesMu.Lock()
	defer w.hashesMu.Unlock()
	return w.hashes[path] == hash
}

func (w *Watcher) forget(path string) {
	w.hashesMu.Lock()
	delete(w.hashes, path)
	w.hashesMu.Unlock()
}
