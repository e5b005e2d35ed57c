package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/indexer"
	"github.com/nickcecere/kb/internal/ui"
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add or update a document in the knowledge base",
	Long: `Add a markdown file with YAML front matter to the knowledge base.

The file must start with a front matter block between two '---' lines. The
front matter is stored as metadata (lists become comma separated strings) and
the text after it is embedded. Adding the same path again replaces the entry.

Examples:
  kb add docs/patterns/event-sourcing.md`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsEmbeddings: "true"},
	RunE:        runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()
	cfg := config.Get()

	log.Debug("Adding document", "path", path)

	ctx, cancel := signalContext(nil)
	defer cancel()

	st, emb, err := openServices(cfg)
	if err != nil {
		fmt.Fprintln(out, ui.Fatal.Render(fmt.Sprintf("Error indexing document %s: %v", path, err)))
		return nil
	}
	defer st.Close()

	idx := indexer.New(st, emb, cfg)
	printAddResult(out, path, idx.Add(ctx, path))
	return nil
}

// printAddResult reports the outcome of adding one document. path is the argument as given.
func printAddResult(out io.Writer, path string, res indexer.Result) {
	switch res.Outcome {
	case indexer.Indexed:
		fmt.Fprintf(out, "%s '%s'\n", ui.Success.Render("Successfully indexed document:"), res.Title)
	case indexer.Missing:
		fmt.Fprintln(out, ui.Fatal.Render(fmt.Sprintf("Error: File not found at '%s'", path)))
	case indexer.Skipped:
		log.Debug("Front matter not parsed", "path", res.ID, "error", res.Err)
		fmt.Fprintln(out, ui.Warning.Render(fmt.Sprintf("Skipping %s. Could not parse front matter.", res.ID)))
	case indexer.Empty:
		fmt.Fprintln(out, ui.Warning.Render(fmt.Sprintf("Warning: No content found in %s.", res.ID)))
	default:
		fmt.Fprintln(out, ui.Fatal.Render(fmt.Sprintf("Error indexing document %s: %v", res.ID, res.Err)))
	}
}
