package config

import (
	"os"
	"path/filepath"
)

// Provider and backend names
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	BackendChromem = "chromem"
	BackendSQLite  = "sqlite"
)

// Default configuration values
const (
	// Embedding defaults
	DefaultEmbeddingProvider = ProviderGemini
	DefaultGeminiEmbedModel  = "gemini-embedding-001"
	DefaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultOllamaEmbedModel  = "nomic-embed-text"

	// Store defaults
	DefaultStoreBackend = BackendChromem
	DefaultStorePath    = "kb_db"
	DefaultCollection   = "software_architecture"

	DefaultSearchLimit = 3

	DefaultMaxFileSize = 1 << 20 // 1MB

	// Environment
	EnvPrefix       = "KB"
	GeminiAPIKeyEnv = "GEMINI_API_KEY"
	OpenAIAPIKeyEnv = "OPENAI_API_KEY"
	DotEnvFile      = ".env"
	RCFileName      = ".kbrc.yaml"
)

// DefaultExtensions returns the file extensions treated as markdown documents.
func DefaultExtensions() []string {
	return []string{".md", ".markdown"}
}

// DefaultIgnorePatterns returns the default list of paths skipped during directory indexing.
func DefaultIgnorePatterns() []string {
	return []string{
		// Version control
		".git/",
		".svn/",
		".hg/",

		// Dependencies and build outputs
		"node_modules/",
		"vendor/",
		".venv/",
		"dist/",
		"build/",

		// IDE/Editor
		".idea/",
		".vscode/",
		"*.swp",
		"*~",

		// Store data
		DefaultStorePath + "/",

		// Misc
		".DS_Store",
		"CHANGELOG.md",
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/kb"
	}
	return filepath.Join(home, ".config", "kb")
}
