// Package cli implements the command-line interface for kb.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/ui"
)

var (
	// Version information set at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	debug   bool
)

// needsEmbeddings marks commands that cannot run without an embedding API key.
const needsEmbeddings = "needs-embeddings"

// SetVersionInfo sets the version information from build flags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "Markdown knowledge base with semantic search",
	Long: `kb indexes markdown documents with YAML front matter into a local vector
store and finds them again by meaning.

Examples:
  # Add or update one document
  kb add docs/patterns/cqrs.md

  # Search the knowledge base
  kb search "separating reads from writes"

  # Index a whole directory
  kb index docs/`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.SetDebug(debug)
		if debug {
			log.Debug("Debug logging enabled")
		}

		if err := config.Load(cfgFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Annotations[needsEmbeddings] == "" {
			return nil
		}
		return requireAPIKey(cmd, config.Get())
	},
}

// requireAPIKey reports a missing credential the way a user can act on it.
func requireAPIKey(cmd *cobra.Command, cfg *config.Config) error {
	err := cfg.RequireAPIKey()
	if err == nil {
		return nil
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintln(w, ui.Fatal.Render(fmt.Sprintf("Error: %s environment variable not set.", cfg.APIKeyEnv())))
	fmt.Fprintln(w, ui.Hint.Render(fmt.Sprintf("Please set your %s API key to proceed.", providerLabel(cfg.Embeddings.Provider))))
	return err
}

func providerLabel(provider string) string {
	switch provider {
	case config.ProviderGemini:
		return "Gemini"
	case config.ProviderOpenAI:
		return "OpenAI"
	case config.ProviderOllama:
		return "Ollama"
	}
	return provider
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, config.ErrMissingAPIKey) {
		fmt.Fprintln(rootCmd.ErrOrStderr(), ui.Fatal.Render("Error: "+err.Error()))
	}
	return err
}

func init() {
	ui.InitLogger()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/kb/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kb %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(onSignal func(os.Signal)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			if onSignal != nil {
				onSignal(sig)
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
