// Package embeddings provides text embedding services for semantic search.
package embeddings

import (
	"context"
	"fmt"

	"github.com/nickcecere/kb/internal/config"
)

// Provider represents an embedding provider type.
type Provider string

const (
	ProviderGemini Provider = config.ProviderGemini
	ProviderOpenAI Provider = config.ProviderOpenAI
	ProviderOllama Provider = config.ProviderOllama
)

// Service defines the interface for embedding services.
type Service interface {
	// Embed generates an embedding for the given text (for documents).
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery generates an embedding for a query (may use different task prefix).
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple document texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimensions for this model.
	Dimensions() int

	// Provider returns the provider name.
	Provider() Provider

	// ModelName returns the model name.
	ModelName() string
}

// Known model dimensions
var modelDimensions = map[string]int{
	// Gemini models
	"gemini-embedding-001": 3072,
	"text-embedding-004":   768,

	// Ollama models
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,

	// OpenAI models
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// GetModelDimensions returns the known dimensions for a model, or 0 if unknown.
func GetModelDimensions(model string) int {
	return modelDimensions[model]
}

// NewService creates an embedding service based on the configuration.
func NewService(cfg *config.Config) (Service, error) {
	switch cfg.Embeddings.Provider {
	case config.ProviderGemini:
		c := cfg.Embeddings.Gemini
		return NewOpenAIService(ProviderGemini, c.APIKey, c.Model, c.BaseURL, c.Dimensions)
	case config.ProviderOpenAI:
		c := cfg.Embeddings.OpenAI
		return NewOpenAIService(ProviderOpenAI, c.APIKey, c.Model, c.BaseURL, c.Dimensions)
	case config.ProviderOllama:
		return NewOllamaService(
			cfg.Embeddings.Ollama.URL,
			cfg.Embeddings.Ollama.Model,
		)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embeddings.Provider)
	}
}
