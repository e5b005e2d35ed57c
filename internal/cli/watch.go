package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/indexer"
	"github.com/nickcecere/kb/internal/ui"
	"github.com/nickcecere/kb/internal/watcher"
)

var (
	watchNoInitial bool
	watchDebounce  time.Duration
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and re-index changed documents",
	Long: `Watch a directory for markdown changes and add each changed document again.

The directory is indexed first (unless --no-initial is given). Documents whose
content did not change are not re-embedded. Deleted documents are reported but
keep their entry in the knowledge base.

Examples:
  # Watch current directory
  kb watch

  # Watch a specific directory without the initial pass
  kb watch ./docs --no-initial`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{needsEmbeddings: "true"},
	RunE:        runWatchCmd,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial", false, "skip the initial index")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "time to collect events before re-indexing")
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	out := cmd.OutOrStdout()

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	cfg := config.Get()

	ctx, cancel := signalContext(func(os.Signal) {
		fmt.Fprintln(out, "\nShutting down...")
	})
	defer cancel()

	st, emb, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	idx := indexer.New(st, emb, cfg)

	w, err := watcher.New(dir, idx,
		watcher.WithDebounceTime(watchDebounce),
		watcher.WithExtensions(cfg.Indexing.Extensions),
		watcher.WithMaxFileSize(int64(cfg.Indexing.MaxFileSize)),
		watcher.WithResultCallback(func(res indexer.Result) {
			printAddResult(out, res.ID, res)
		}),
		watcher.WithRemoveCallback(func(path string) {
			fmt.Fprintln(out, ui.Warning.Render(fmt.Sprintf("Removed %s (entry kept in the knowledge base)", path)))
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if !watchNoInitial {
		fmt.Fprintln(out, ui.Header.Render("Initial Index"))
		fmt.Fprintf(out, "Path: %s\n\n", dir)

		summary, err := idx.AddDir(ctx, dir, indexer.DirOptions{
			OnResult: func(res indexer.Result) {
				w.Remember(res)
				printAddResult(out, res.ID, res)
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("initial index failed: %w", err)
		}
		printSummary(out, summary)
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, ui.Header.Render("Watching for Changes"))
	fmt.Fprintf(out, "Directory: %s\n", dir)
	fmt.Fprintln(out, "Press Ctrl+C to stop.")
	fmt.Fprintln(out)

	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
