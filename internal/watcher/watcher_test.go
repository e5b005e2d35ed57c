package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/kb/internal/fs"
	"github.com/nickcecere/kb/internal/indexer"
)

// mockAdder records the paths it was asked to index.
type mockAdder struct {
	mu      sync.Mutex
	paths   []string
	outcome indexer.Outcome
}

func (m *mockAdder) Add(ctx context.Context, path string) indexer.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)

	hash, _ := fs.HashFile(path)
	return indexer.Result{ID: path, Title: path, Outcome: m.outcome, Hash: hash}
}

func (m *mockAdder) added() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

func writeDoc(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Doc\n---\n"+body), 0644))
}

func TestNewRequiresDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), &mockAdder{})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "a.md")
	writeDoc(t, file, "body")
	_, err = New(file, &mockAdder{})
	assert.Error(t, err)
}

func TestFlushIndexesChangedDocuments(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "a.md")
	writeDoc(t, doc, "first")

	adder := &mockAdder{outcome: indexer.Indexed}
	var results []indexer.Result
	w, err := New(root, adder, WithResultCallback(func(r indexer.Result) {
		results = append(results, r)
	}))
	require.NoError(t, err)

	ctx := context.Background()

	w.enqueue(doc, fsnotify.Create)
	w.enqueue(doc, fsnotify.Write)
	w.flushDebounced(ctx)
	assert.Equal(t, []string{doc}, adder.added(), "events for one path are coalesced")
	require.Len(t, results, 1)

	// Same content is not re-embedded
	w.enqueue(doc, fsnotify.Write)
	w.flushDebounced(ctx)
	assert.Len(t, adder.added(), 1)

	// New content is
	writeDoc(t, doc, "second")
	w.enqueue(doc, fsnotify.Write)
	w.flushDebounced(ctx)
	assert.Len(t, adder.added(), 2)
}

func TestFlushSkipsLargeFiles(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "big.md")
	writeDoc(t, doc, "a long body that exceeds the limit")

	adder := &mockAdder{outcome: indexer.Indexed}
	w, err := New(root, adder, WithMaxFileSize(10))
	require.NoError(t, err)

	w.enqueue(doc, fsnotify.Write)
	w.flushDebounced(context.Background())
	assert.Empty(t, adder.added())
}

func TestFlushReportsRemovals(t *testing.T) {
	root := t.TempDir()
	doc := filepath.Join(root, "gone.md")

	var removed []string
	adder := &mockAdder{}
	w, err := New(root, adder, WithRemoveCallback(func(p string) {
		removed = append(removed, p)
	}))
	require.NoError(t, err)

	w.Remember(indexer.Result{ID: doc, Outcome: indexer.Indexed, Hash: "abc"})
	w.enqueue(doc, fsnotify.Remove)
	w.flushDebounced(context.Background())

	assert.Equal(t, []string{doc}, removed)
	assert.Empty(t, adder.added())
	assert.False(t, w.unchanged(doc, "abc"))
}

func TestRememberIgnoresUnindexed(t *testing.T) {
	w, err := New(t.TempDir(), &mockAdder{})
	require.NoError(t, err)

	w.Remember(indexer.Result{ID: "a.md", Outcome: indexer.Skipped, Hash: "abc"})
	assert.False(t, w.unchanged("a.md", "abc"))

	w.Remember(indexer.Result{ID: "./a.md", Outcome: indexer.Indexed, Hash: "abc"})
	assert.True(t, w.unchanged("a.md", "abc"))
}

func TestShouldSkipDir(t *testing.T) {
	assert.True(t, shouldSkipDir(".git"))
	assert.True(t, shouldSkipDir(".obsidian"))
	assert.True(t, shouldSkipDir("node_modules"))
	assert.False(t, shouldSkipDir("patterns"))
}

func TestStartWatchesTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "patterns"), 0755))

	adder := &mockAdder{outcome: indexer.Indexed}
	w, err := New(root, adder, WithDebounceTime(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the watcher time to register directories
	time.Sleep(100 * time.Millisecond)

	doc := filepath.Join(root, "patterns", "cqrs.md")
	writeDoc(t, doc, "Command query separation.")
	require.NoError(t, os.WriteFile(filepath.Join(root, "patterns", "notes.txt"), []byte("ignored"), 0644))

	assert.Eventually(t, func() bool {
		return len(adder.added()) > 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, doc, adder.added()[0])
	for _, p := range adder.added() {
		assert.Equal(t, ".md", filepath.Ext(p))
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
