package cli

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/indexer"
	"github.com/nickcecere/kb/internal/mcp"
	"github.com/nickcecere/kb/internal/search"
	"github.com/nickcecere/kb/internal/ui"
	"github.com/nickcecere/kb/internal/watcher"
)

var mcpWatch string

// mcpCmd represents the MCP server command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server on stdin/stdout.

Tools:
  - kb_search: semantic search over the knowledge base
  - kb_add:    add or replace one markdown document
  - kb_index:  add every markdown document under a directory

With --watch, a background watcher keeps the given directory indexed.

This command is typically started by an AI agent, not run directly.`,
	Annotations: map[string]string{needsEmbeddings: "true"},
	RunE:        runMcpCmd,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpWatch, "watch", "", "directory to keep indexed while serving")
}

func runMcpCmd(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	ui.SetLogOutput(os.Stderr)

	cfg := config.Get()

	ctx, cancel := signalContext(func(sig os.Signal) {
		log.Info("Received signal, shutting down", "signal", sig)
	})
	defer cancel()

	st, emb, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	idx := indexer.New(st, emb, cfg)

	if mcpWatch != "" {
		go startBackgroundWatcher(ctx, idx, cfg, mcpWatch)
	}

	server := mcp.NewServer(search.New(st, emb), idx, version, cfg.Search.Limit)
	return server.Run(ctx)
}

// startBackgroundWatcher re-indexes dir as it changes until ctx is cancelled.
func startBackgroundWatcher(ctx context.Context, idx *indexer.Indexer, cfg *config.Config, dir string) {
	w, err := watcher.New(dir, idx,
		watcher.WithDebounceTime(time.Second),
		watcher.WithExtensions(cfg.Indexing.Extensions),
		watcher.WithMaxFileSize(int64(cfg.Indexing.MaxFileSize)),
	)
	if err != nil {
		log.Error("Failed to create watcher", "error", err)
		return
	}

	log.Info("Starting background watcher", "dir", dir)
	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error("Watcher error", "error", err)
	}
}
