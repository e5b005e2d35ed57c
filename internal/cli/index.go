package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/indexer"
	"github.com/nickcecere/kb/internal/ui"
)

var (
	indexDryRun     bool
	indexExtensions []string
	indexIgnore     []string
	indexBatchSize  int
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Add every markdown document under a directory",
	Long: `Walk a directory (default: current directory) and add each markdown file,
exactly as 'kb add' would. .gitignore files and the configured ignore patterns
are honored. Documents are embedded in batches.

Examples:
  # Index the current directory
  kb index

  # Index a specific directory
  kb index ./docs

  # Only .md files, skipping drafts
  kb index --ext .md --ignore drafts/

  # Preview what would be indexed
  kb index --dry-run`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{needsEmbeddings: "true"},
	RunE:        runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexDryRun, "dry-run", "d", false, "list documents without indexing")
	indexCmd.Flags().StringSliceVarP(&indexExtensions, "ext", "e", nil, "file extensions to include (e.g., .md)")
	indexCmd.Flags().StringSliceVarP(&indexIgnore, "ignore", "i", nil, "additional patterns to ignore")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", indexer.DefaultBatchSize, "documents embedded per request")
}

func runIndex(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	out := cmd.OutOrStdout()

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	cfg := config.Get()

	log.Debug("Starting index", "dir", dir, "dry-run", indexDryRun)

	ctx, cancel := signalContext(func(os.Signal) {
		fmt.Fprintln(out, "\nInterrupted, stopping...")
	})
	defer cancel()

	st, emb, err := openServices(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	idx := indexer.New(st, emb, cfg)

	if indexDryRun {
		return runDryRun(out, idx, dir)
	}

	fmt.Fprintln(out, ui.Header.Render("Indexing "+dir))
	fmt.Fprintf(out, "Collection: %s\n", cfg.Store.Collection)
	fmt.Fprintf(out, "Provider: %s (%s)\n\n", emb.Provider(), emb.ModelName())

	summary, err := idx.AddDir(ctx, dir, indexer.DirOptions{
		Extensions:     indexExtensions,
		IgnorePatterns: indexIgnore,
		BatchSize:      indexBatchSize,
		OnResult: func(res indexer.Result) {
			printAddResult(out, res.ID, res)
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(out, ui.Warning.Render("Indexing cancelled"))
			return nil
		}
		return fmt.Errorf("indexing failed: %w", err)
	}

	printSummary(out, summary)
	return nil
}

// runDryRun lists the documents that would be indexed.
func runDryRun(out io.Writer, idx *indexer.Indexer, dir string) error {
	files, err := idx.Discover(dir, indexExtensions, indexIgnore)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, ui.Header.Render("Dry Run - Preview"))
	fmt.Fprintf(out, "Path: %s\n\n", dir)

	var totalSize int64
	for _, f := range files {
		fmt.Fprintf(out, "  %s (%s)\n", ui.FilePath.Render(f.Path), formatBytes(f.Size))
		totalSize += f.Size
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total documents: %d\n", len(files))
	fmt.Fprintf(out, "Total size:      %s\n", formatBytes(totalSize))
	return nil
}

func printSummary(out io.Writer, s *indexer.Summary) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Success.Render("Indexing complete!"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Documents: %d\n", s.Files)
	fmt.Fprintf(out, "  Indexed:   %d\n", s.Indexed)
	fmt.Fprintf(out, "  Skipped:   %d\n", s.Skipped)
	fmt.Fprintf(out, "  Empty:     %d\n", s.Empty)
	fmt.Fprintf(out, "  Failed:    %d\n", s.Failed)
	fmt.Fprintf(out, "  Duration:  %s\n", s.Duration.Round(time.Millisecond))
}

// formatBytes formats bytes as human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
