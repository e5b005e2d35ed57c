package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testModel = Model{Provider: "gemini", Name: "gemini-embedding-001", Dimensions: 4}

// backends opens a fresh store of every kind in a temp dir.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	stores := map[string]Store{}
	for _, backend := range []string{BackendChromem, BackendSQLite} {
		s, err := Open(Options{
			Backend:    backend,
			Path:       filepath.Join(t.TempDir(), "kb_db"),
			Collection: "software_architecture",
			Model:      testModel,
		})
		require.NoError(t, err, backend)
		t.Cleanup(func() { s.Close() })
		stores[backend] = s
	}
	return stores
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := Document{
				ID:       "docs/event-sourcing.md",
				Content:  "hello",
				Metadata: map[string]string{"title": "X", "tags": "a, b"},
			}
			require.NoError(t, s.Upsert(ctx, doc, []float32{1, 0, 0, 0}))

			got, err := s.Get(ctx, doc.ID)
			require.NoError(t, err)
			assert.Equal(t, doc.ID, got.ID)
			assert.Equal(t, "hello", got.Content)
			assert.Equal(t, map[string]string{"title": "X", "tags": "a, b"}, got.Metadata)

			_, err = s.Get(ctx, "missing.md")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Upsert(ctx, Document{
				ID:       "a.md",
				Content:  "first",
				Metadata: map[string]string{"title": "Old"},
			}, []float32{1, 0, 0, 0}))
			require.NoError(t, s.Upsert(ctx, Document{
				ID:       "a.md",
				Content:  "second",
				Metadata: map[string]string{"title": "New"},
			}, []float32{0, 1, 0, 0}))

			count, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			got, err := s.Get(ctx, "a.md")
			require.NoError(t, err)
			assert.Equal(t, "second", got.Content)
			assert.Equal(t, "New", got.Metadata["title"])

			// The replaced vector is the one that matches
			matches, err := s.Query(ctx, []float32{0, 1, 0, 0}, 3)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			require.NotNil(t, matches[0].Distance)
			assert.InDelta(t, 0.0, *matches[0].Distance, 1e-5)
		})
	}
}

func TestQueryOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			docs := []struct {
				id  string
				vec []float32
			}{
				{"far.md", []float32{0, 0, 0, 1}},
				{"near.md", []float32{1, 0.1, 0, 0}},
				{"exact.md", []float32{1, 0, 0, 0}},
				{"mid.md", []float32{1, 1, 0, 0}},
			}
			for _, d := range docs {
				require.NoError(t, s.Upsert(ctx, Document{ID: d.id, Content: d.id}, d.vec))
			}

			matches, err := s.Query(ctx, []float32{1, 0, 0, 0}, 3)
			require.NoError(t, err)
			require.Len(t, matches, 3)

			assert.Equal(t, "exact.md", matches[0].ID)
			assert.Equal(t, "near.md", matches[1].ID)
			assert.Equal(t, "mid.md", matches[2].ID)

			for i := 1; i < len(matches); i++ {
				assert.LessOrEqual(t, *matches[i-1].Distance, *matches[i].Distance)
			}
			assert.InDelta(t, 0.0, *matches[0].Distance, 1e-5)
			// cos(45°) = 0.7071
			assert.InDelta(t, 1-0.7071, *matches[2].Distance, 1e-3)
		})
	}
}

func TestQueryMoreThanCount(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Upsert(ctx, Document{ID: "only.md", Content: "x"}, []float32{1, 0, 0, 0}))

			matches, err := s.Query(ctx, []float32{1, 0, 0, 0}, 3)
			require.NoError(t, err)
			assert.Len(t, matches, 1)
		})
	}
}

func TestQueryEmptyCollection(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			matches, err := s.Query(ctx, []float32{1, 0, 0, 0}, 3)
			require.NoError(t, err)
			assert.Empty(t, matches)

			count, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestQueryInvalidCount(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Query(context.Background(), []float32{1, 0, 0, 0}, 0)
			assert.Error(t, err)
		})
	}
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Upsert(ctx, Document{Content: "x"}, []float32{1}))
			assert.Error(t, s.Upsert(ctx, Document{ID: "a.md"}, nil))
		})
	}
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendChromem, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			opts := Options{
				Backend:    backend,
				Path:       filepath.Join(t.TempDir(), "kb_db"),
				Collection: "notes",
				Model:      testModel,
			}

			s, err := Open(opts)
			require.NoError(t, err)
			require.NoError(t, s.Upsert(ctx, Document{
				ID:       "a.md",
				Content:  "persisted",
				Metadata: map[string]string{"title": "A"},
			}, []float32{1, 0, 0, 0}))
			require.NoError(t, s.Close())

			reopened, err := Open(opts)
			require.NoError(t, err)
			defer reopened.Close()

			got, err := reopened.Get(ctx, "a.md")
			require.NoError(t, err)
			assert.Equal(t, "persisted", got.Content)
			assert.Equal(t, "A", got.Metadata["title"])

			info, err := reopened.Info(ctx)
			require.NoError(t, err)
			assert.Equal(t, backend, info.Backend)
			assert.Equal(t, "notes", info.Collection)
			assert.Equal(t, 1, info.Count)
			assert.Equal(t, "gemini-embedding-001", info.Model.Name)
		})
	}
}

func TestSQLiteDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"), "notes", testModel)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, Document{ID: "a.md", Content: "x"}, []float32{1, 0, 0, 0}))

	err = s.Upsert(ctx, Document{ID: "b.md", Content: "y"}, []float32{1, 0})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Query(ctx, []float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSQLiteCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	a, err := NewSQLiteStore(dbPath, "a", testModel)
	require.NoError(t, err)
	require.NoError(t, a.Upsert(ctx, Document{ID: "x.md", Content: "in a"}, []float32{1, 0, 0, 0}))
	require.NoError(t, a.Close())

	// Different dimensions in a second collection of the same database
	b, err := NewSQLiteStore(dbPath, "b", Model{Provider: "ollama", Name: "tiny"})
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Upsert(ctx, Document{ID: "y.md", Content: "in b"}, []float32{0, 1}))

	count, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = b.Get(ctx, "x.md")
	assert.ErrorIs(t, err, ErrNotFound)

	info, err := b.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Model.Dimensions)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "kb_db")

	s, err := Open(Options{Backend: BackendSQLite, Path: dir, Collection: "c"})
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "index.db"))
	assert.NoError(t, err)
}

func TestOpenExisting(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []string{BackendChromem, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			opts := Options{
				Backend:    backend,
				Path:       filepath.Join(t.TempDir(), "kb_db"),
				Collection: "software_architecture",
				Model:      testModel,
			}

			_, err := OpenExisting(opts)
			assert.ErrorIs(t, err, ErrNoCollection)
			assert.NoDirExists(t, opts.Path)

			s, err := Open(opts)
			require.NoError(t, err)
			require.NoError(t, s.Upsert(ctx, Document{ID: "a.md", Content: "hello"}, []float32{1, 0, 0, 0}))
			require.NoError(t, s.Close())

			existing, err := OpenExisting(opts)
			require.NoError(t, err)
			defer existing.Close()

			count, err := existing.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			got, err := existing.Get(ctx, "a.md")
			require.NoError(t, err)
			assert.Equal(t, "hello", got.Content)

			opts.Collection = "other"
			_, err = OpenExisting(opts)
			assert.ErrorIs(t, err, ErrNoCollection)
		})
	}
}

func TestOpenUnsupportedBackend(t *testing.T) {
	_, err := Open(Options{Backend: "postgres", Path: t.TempDir(), Collection: "c"})
	assert.Error(t, err)
}

func TestSerializeEmbedding(t *testing.T) {
	blob := serializeEmbedding([]float32{1.0, -2.5})
	require.Len(t, blob, 8)
	// 1.0 = 0x3f800000 little endian
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, blob[:4])
}
