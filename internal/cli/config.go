package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  kb config

  # Show config file paths
  kb config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Get()

	if configShowPath {
		fmt.Fprintln(out, ui.SectionTitle.Render("Configuration Paths"))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Global config: %s\n", config.GlobalConfigPath())
		fmt.Fprintf(out, "Local config:  %s (searched from cwd upward)\n", config.RCFileName)
		fmt.Fprintf(out, "Active config: %s\n", orNone(config.ConfigFilePath()))
		fmt.Fprintf(out, "Environment:   %s (loaded from the working directory)\n", config.DotEnvFile)
		fmt.Fprintf(out, "Store:         %s\n", cfg.Store.Path)
		return nil
	}

	fmt.Fprintln(out, ui.SectionTitle.Render("Current Configuration"))
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Embeddings:"))
	fmt.Fprintf(out, "  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Fprintf(out, "  Model: %s\n", cfg.EmbeddingModel())
	if env := cfg.APIKeyEnv(); env != "" {
		state := ui.Success.Render("set")
		if cfg.RequireAPIKey() != nil {
			state = ui.Warning.Render("not set")
		}
		fmt.Fprintf(out, "  API Key (%s): %s\n", env, state)
	}
	switch cfg.Embeddings.Provider {
	case config.ProviderGemini:
		fmt.Fprintf(out, "  Base URL: %s\n", cfg.Embeddings.Gemini.BaseURL)
	case config.ProviderOpenAI:
		if cfg.Embeddings.OpenAI.BaseURL != "" {
			fmt.Fprintf(out, "  Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
		}
	case config.ProviderOllama:
		fmt.Fprintf(out, "  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Store:"))
	fmt.Fprintf(out, "  Backend: %s\n", cfg.Store.Backend)
	fmt.Fprintf(out, "  Path: %s\n", cfg.Store.Path)
	fmt.Fprintf(out, "  Collection: %s\n", cfg.Store.Collection)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Search:"))
	fmt.Fprintf(out, "  Limit: %d\n", cfg.Search.Limit)
	fmt.Fprintln(out)

	fmt.Fprintln(out, ui.Bold.Render("Indexing:"))
	fmt.Fprintf(out, "  Max File Size: %d bytes\n", cfg.Indexing.MaxFileSize)
	fmt.Fprintf(out, "  Extensions: %v\n", cfg.Indexing.Extensions)
	fmt.Fprintf(out, "  Ignore Patterns: %d configured\n", len(cfg.Ignore))

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
