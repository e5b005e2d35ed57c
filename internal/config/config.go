// Package config handles configuration loading and validation for kb.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// ErrMissingAPIKey is returned when the selected embedding provider needs an API key and none is set.
var ErrMissingAPIKey = errors.New("missing embedding API key")

// Config represents the complete kb configuration.
type Config struct {
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	Store      StoreConfig      `mapstructure:"store"`
	Search     SearchConfig     `mapstructure:"search"`
	Indexing   IndexingConfig   `mapstructure:"indexing"`
	Ignore     []string         `mapstructure:"ignore"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider string            `mapstructure:"provider"`
	Gemini   APIEmbedConfig    `mapstructure:"gemini"`
	OpenAI   APIEmbedConfig    `mapstructure:"openai"`
	Ollama   OllamaEmbedConfig `mapstructure:"ollama"`
}

// APIEmbedConfig configures an OpenAI-compatible embedding endpoint.
type APIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// StoreConfig configures the vector store.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	Collection string `mapstructure:"collection"`
	Compress   bool   `mapstructure:"compress"`
}

// SearchConfig configures search defaults.
type SearchConfig struct {
	Limit int `mapstructure:"limit"`
}

// IndexingConfig configures directory indexing.
type IndexingConfig struct {
	MaxFileSize int      `mapstructure:"max_file_size"`
	Extensions  []string `mapstructure:"extensions"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration, or the defaults with API keys from
// the environment when Load has not succeeded.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
		loadAPIKeysFromEnv()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Embeddings: EmbeddingsConfig{
			Provider: DefaultEmbeddingProvider,
			Gemini: APIEmbedConfig{
				Model:   DefaultGeminiEmbedModel,
				BaseURL: DefaultGeminiBaseURL,
			},
			OpenAI: APIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
		},
		Store: StoreConfig{
			Backend:    DefaultStoreBackend,
			Path:       DefaultStorePath,
			Collection: DefaultCollection,
		},
		Search: SearchConfig{
			Limit: DefaultSearchLimit,
		},
		Indexing: IndexingConfig{
			MaxFileSize: DefaultMaxFileSize,
			Extensions:  DefaultExtensions(),
		},
		Ignore: DefaultIgnorePatterns(),
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	cfg = nil

	// .env first so its values are visible to AutomaticEnv and the key lookups
	if err := loadDotEnv(DotEnvFile); err != nil {
		return err
	}

	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")

		if rcPath := findRCFile(); rcPath != "" {
			viper.SetConfigFile(rcPath)
		}
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	loadAPIKeysFromEnv()

	return cfg.Validate()
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	switch c.Embeddings.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embeddings.Provider)
	}
	switch c.Store.Backend {
	case BackendChromem, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if c.Store.Collection == "" {
		return errors.New("store.collection must not be empty")
	}
	if c.Search.Limit < 1 {
		return fmt.Errorf("search.limit must be positive, got %d", c.Search.Limit)
	}
	return nil
}

// RequireAPIKey returns ErrMissingAPIKey when the selected provider needs a key that is not set.
func (c *Config) RequireAPIKey() error {
	switch c.Embeddings.Provider {
	case ProviderGemini:
		if c.Embeddings.Gemini.APIKey == "" {
			return fmt.Errorf("%w: %s not set", ErrMissingAPIKey, GeminiAPIKeyEnv)
		}
	case ProviderOpenAI:
		if c.Embeddings.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: %s not set", ErrMissingAPIKey, OpenAIAPIKeyEnv)
		}
	}
	return nil
}

// APIKeyEnv returns the environment variable holding the key for the selected provider.
func (c *Config) APIKeyEnv() string {
	switch c.Embeddings.Provider {
	case ProviderGemini:
		return GeminiAPIKeyEnv
	case ProviderOpenAI:
		return OpenAIAPIKeyEnv
	}
	return ""
}

// EmbeddingModel returns the model name of the selected provider.
func (c *Config) EmbeddingModel() string {
	switch c.Embeddings.Provider {
	case ProviderGemini:
		return c.Embeddings.Gemini.Model
	case ProviderOpenAI:
		return c.Embeddings.OpenAI.Model
	case ProviderOllama:
		return c.Embeddings.Ollama.Model
	}
	return ""
}

func setDefaults() {
	// Embeddings
	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.gemini.model", DefaultGeminiEmbedModel)
	viper.SetDefault("embeddings.gemini.base_url", DefaultGeminiBaseURL)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)

	// Store
	viper.SetDefault("store.backend", DefaultStoreBackend)
	viper.SetDefault("store.path", DefaultStorePath)
	viper.SetDefault("store.collection", DefaultCollection)
	viper.SetDefault("store.compress", false)

	viper.SetDefault("search.limit", DefaultSearchLimit)

	// Indexing
	viper.SetDefault("indexing.max_file_size", DefaultMaxFileSize)
	viper.SetDefault("indexing.extensions", DefaultExtensions())

	viper.SetDefault("ignore", DefaultIgnorePatterns())
}

// loadDotEnv loads KEY=VALUE pairs from path without overriding variables already set.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	log.Debug("Loaded environment file", "file", path)
	return nil
}

// findRCFile searches for .kbrc.yaml starting from current directory.
func findRCFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		rcPath := filepath.Join(dir, RCFileName)
		if _, err := os.Stat(rcPath); err == nil {
			return rcPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// loadAPIKeysFromEnv loads API keys from environment variables if not already set.
func loadAPIKeysFromEnv() {
	if cfg.Embeddings.Gemini.APIKey == "" {
		cfg.Embeddings.Gemini.APIKey = os.Getenv(GeminiAPIKeyEnv)
	}
	if cfg.Embeddings.OpenAI.APIKey == "" {
		cfg.Embeddings.OpenAI.APIKey = os.Getenv(OpenAIAPIKeyEnv)
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}
