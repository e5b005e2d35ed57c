package cli

import (
	"errors"
	"fmt"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/embeddings"
	"github.com/nickcecere/kb/internal/store"
)

// newEmbedder builds the embedding service; tests replace it.
var newEmbedder = embeddings.NewService

// openServices creates the embedding client and opens the configured collection.
// Both are created once per process and shared by every operation.
func openServices(cfg *config.Config) (store.Store, embeddings.Service, error) {
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedding service: %w", err)
	}

	st, err := openStore(cfg, store.Model{
		Provider:   string(emb.Provider()),
		Name:       emb.ModelName(),
		Dimensions: emb.Dimensions(),
	})
	if err != nil {
		return nil, nil, err
	}
	return st, emb, nil
}

// openStore opens the configured collection, creating it on first use.
func openStore(cfg *config.Config, model store.Model) (store.Store, error) {
	st, err := store.Open(store.Options{
		Backend:    cfg.Store.Backend,
		Path:       cfg.Store.Path,
		Collection: cfg.Store.Collection,
		Compress:   cfg.Store.Compress,
		Model:      model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// openExistingStore opens the configured collection for reading without
// creating it. store.ErrNoCollection means nothing has been indexed yet.
func openExistingStore(cfg *config.Config) (store.Store, error) {
	st, err := store.OpenExisting(store.Options{
		Backend:    cfg.Store.Backend,
		Path:       cfg.Store.Path,
		Collection: cfg.Store.Collection,
		Compress:   cfg.Store.Compress,
		Model:      configuredModel(cfg),
	})
	if err != nil && !errors.Is(err, store.ErrNoCollection) {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, err
}

// configuredModel describes the embedding model from configuration alone.
func configuredModel(cfg *config.Config) store.Model {
	return store.Model{
		Provider: cfg.Embeddings.Provider,
		Name:     cfg.EmbeddingModel(),
	}
}
