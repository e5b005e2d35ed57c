package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHashContent tests content hashing.
func TestHashContent(t *testing.T) {
	content := []byte("hello world")
	hash1 := HashContent(content)
	assert.Equal(t, hash1, HashContent(content))
	assert.NotEqual(t, hash1, HashContent([]byte("hello world!")))
	assert.Len(t, hash1, 16)
}

func TestHashFileMatchesHashContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	content := []byte("---\ntitle: A\n---\nbody\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	hash, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashContent(content), hash)
}

func TestIsBinaryContent(t *testing.T) {
	assert.False(t, isBinaryContent([]byte("# Title\n\nSome text.\n")))
	assert.True(t, isBinaryContent([]byte("hello\x00world")))
	assert.False(t, isBinaryContent([]byte{}))
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("notes/a.md", nil))
	assert.True(t, HasExtension("notes/A.MD", nil))
	assert.True(t, HasExtension("b.markdown", nil))
	assert.False(t, HasExtension("c.txt", nil))
	assert.True(t, HasExtension("c.txt", []string{"txt"}))
}

// writeTree creates files under a temp dir and returns its path.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func walkAll(t *testing.T, opts WalkOptions) []string {
	t.Helper()
	walker, err := NewFileWalker(opts)
	require.NoError(t, err)

	var found []string
	require.NoError(t, walker.Walk(func(info FileInfo) error {
		found = append(found, info.RelPath)
		return nil
	}))
	return found
}

func TestFileWalker(t *testing.T) {
	root := writeTree(t, map[string]string{
		"patterns/cqrs.md":          "---\ntitle: CQRS\n---\nbody",
		"patterns/saga.markdown":    "---\ntitle: Saga\n---\nbody",
		"README.md":                 "# Readme\n",
		"notes.txt":                 "not markdown",
		"drafts/wip.md":             "---\ntitle: WIP\n---\nbody",
		".obsidian/workspace.md":    "hidden",
		"node_modules/pkg/readme.md": "vendored",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("drafts/\n"), 0644))

	t.Run("finds markdown files only", func(t *testing.T) {
		found := walkAll(t, WalkOptions{
			Root:           root,
			UseGitignore:   true,
			IgnorePatterns: []string{"node_modules/"},
		})

		assert.ElementsMatch(t, []string{
			"README.md",
			filepath.Join("patterns", "cqrs.md"),
			filepath.Join("patterns", "saga.markdown"),
		}, found)
	})

	t.Run("gitignore disabled", func(t *testing.T) {
		found := walkAll(t, WalkOptions{Root: root, IgnorePatterns: []string{"node_modules/"}})
		assert.Contains(t, found, filepath.Join("drafts", "wip.md"))
	})

	t.Run("extra ignore patterns", func(t *testing.T) {
		found := walkAll(t, WalkOptions{
			Root:           root,
			IgnorePatterns: []string{"README.md", "node_modules/"},
		})
		assert.NotContains(t, found, "README.md")
	})

	t.Run("extension filter", func(t *testing.T) {
		found := walkAll(t, WalkOptions{Root: root, Extensions: []string{"markdown"}})
		require.Len(t, found, 1)
		assert.True(t, strings.HasSuffix(found[0], "saga.markdown"))
	})

	t.Run("hidden directories", func(t *testing.T) {
		found := walkAll(t, WalkOptions{Root: root, IncludeHidden: true})
		assert.Contains(t, found, filepath.Join(".obsidian", "workspace.md"))
	})

	t.Run("max file count", func(t *testing.T) {
		found := walkAll(t, WalkOptions{Root: root, MaxFileCount: 2})
		assert.Len(t, found, 2)
	})

	t.Run("max file size", func(t *testing.T) {
		found := walkAll(t, WalkOptions{Root: root, MaxFileSize: 10, IgnorePatterns: []string{"node_modules/"}})
		assert.Equal(t, []string{"README.md"}, found)
	})

	t.Run("stats and hashes", func(t *testing.T) {
		walker, err := NewFileWalker(WalkOptions{Root: root})
		require.NoError(t, err)

		require.NoError(t, walker.Walk(func(info FileInfo) error {
			assert.Len(t, info.Hash, 16)
			assert.True(t, strings.HasPrefix(info.Path, root))
			return nil
		}))

		stats := walker.Stats()
		assert.Greater(t, stats.FilesFound, 0)
		assert.Greater(t, stats.FilesSkipped, 0) // notes.txt
		assert.Greater(t, stats.DirsSkipped, 0)  // .obsidian
	})
}

func TestFileWalkerErrors(t *testing.T) {
	_, err := NewFileWalker(WalkOptions{Root: "/nonexistent/path"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	file := filepath.Join(t.TempDir(), "a.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = NewFileWalker(WalkOptions{Root: file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestDefaultWalkOptions(t *testing.T) {
	opts := DefaultWalkOptions()
	assert.Equal(t, int64(1024*1024), opts.MaxFileSize)
	assert.True(t, opts.UseGitignore)
	assert.Equal(t, MarkdownExtensions, opts.Extensions)
}
