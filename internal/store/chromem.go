package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/philippgille/chromem-go"
)

// ChromemStore implements Store on a persistent chromem-go collection.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	path       string
	name       string
	model      Model
}

// errNoEmbeddingFunc guards against chromem embedding content on its own.
// Every call passes a precomputed embedding.
var errNoEmbeddingFunc = errors.New("embeddings must be computed by the caller")

// NewChromemStore opens (or creates) the collection name in the chromem database at path.
func NewChromemStore(path, name string, compress bool, model Model) (*ChromemStore, error) {
	return openChromem(path, name, compress, model, true)
}

// OpenChromemStore opens an existing collection without writing anything to disk.
// It returns ErrNoCollection when the database or the collection is absent.
func OpenChromemStore(path, name string, compress bool, model Model) (*ChromemStore, error) {
	return openChromem(path, name, compress, model, false)
}

func openChromem(path, name string, compress bool, model Model, create bool) (*ChromemStore, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path: %w", err)
	}

	if create {
		if err := os.MkdirAll(expanded, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	} else if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
		}
		return nil, fmt.Errorf("failed to stat store directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(expanded, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}

	embed := func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	}

	var collection *chromem.Collection
	if create {
		collection, err = db.GetOrCreateCollection(name, model.metadata(), embed)
		if err != nil {
			return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
		}
	} else if collection = db.GetCollection(name, embed); collection == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
	}

	log.Debug("Opened chromem store", "path", expanded, "collection", name, "documents", collection.Count())

	return &ChromemStore{
		db:         db,
		collection: collection,
		path:       expanded,
		name:       name,
		model:      model,
	}, nil
}

// Upsert adds doc, replacing any document with the same ID.
func (s *ChromemStore) Upsert(ctx context.Context, doc Document, embedding []float32) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required")
	}

	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:        doc.ID,
		Content:   doc.Content,
		Metadata:  doc.Metadata,
		Embedding: embedding,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// Query returns up to n documents ordered by cosine distance.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, n int) ([]Match, error) {
	if n < 1 {
		return nil, fmt.Errorf("result count must be positive, got %d", n)
	}

	// chromem rejects n larger than the collection
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if n > count {
		n = count
	}

	results, err := s.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, Match{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Distance: Distance(1 - float64(r.Similarity)),
		})
	}
	return matches, nil
}

// Get returns the document with the given ID.
func (s *ChromemStore) Get(ctx context.Context, id string) (*Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	doc, err := s.collection.GetByID(ctx, id)
	if err != nil {
		log.Debug("Document lookup failed", "id", id, "error", err)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return &Document{
		ID:       doc.ID,
		Content:  doc.Content,
		Metadata: doc.Metadata,
	}, nil
}

// Count returns the number of documents in the collection.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Info describes the collection.
func (s *ChromemStore) Info(ctx context.Context) (*Info, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{
		Backend:    BackendChromem,
		Location:   s.path,
		Collection: s.name,
		Count:      count,
		Model:      s.model,
	}, nil
}

// Close is a no-op; chromem persists every write immediately.
func (s *ChromemStore) Close() error {
	return nil
}

func (m Model) metadata() map[string]string {
	meta := map[string]string{}
	if m.Provider != "" {
		meta["embedding_provider"] = m.Provider
	}
	if m.Name != "" {
		meta["embedding_model"] = m.Name
	}
	if m.Dimensions > 0 {
		meta["embedding_dimensions"] = strconv.Itoa(m.Dimensions)
	}
	return meta
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
