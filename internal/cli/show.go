package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/document"
	"github.com/nickcecere/kb/internal/store"
	"github.com/nickcecere/kb/internal/ui"
)

var showRaw bool

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Show a stored document",
	Long: `Print a document as it is stored in the knowledge base: its metadata as
YAML followed by its rendered markdown body. The path is the one shown by
'kb search'.

Examples:
  kb show docs/patterns/cqrs.md
  kb show docs/patterns/cqrs.md --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "print without highlighting or markdown rendering")
}

func runShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Get()

	doc, err := loadDocument(cfg, args[0])
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNoCollection) {
		fmt.Fprintln(out, ui.Warning.Render(fmt.Sprintf("Document not found: %s", args[0])))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	meta, err := yaml.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to format metadata: %w", err)
	}

	if showRaw {
		fmt.Fprintf(out, "%s\n%s%s\n%s\n", document.Delimiter, meta, document.Delimiter, doc.Content)
		return nil
	}

	fmt.Fprintln(out, ui.Header.Render(document.TitleOf(doc.Metadata, doc.ID)))
	fmt.Fprintln(out, ui.FilePath.Render(doc.ID))
	fmt.Fprintln(out)
	fmt.Fprint(out, ui.HighlightYAML(string(meta)))
	fmt.Fprintln(out, ui.HorizontalRule(40))

	rendered, err := ui.RenderMarkdown(doc.Content)
	if err != nil {
		fmt.Fprintln(out, doc.Content)
		return nil
	}
	fmt.Fprintln(out, strings.TrimRight(rendered, "\n"))
	return nil
}

// loadDocument reads one stored document without creating the collection.
func loadDocument(cfg *config.Config, id string) (*store.Document, error) {
	st, err := openExistingStore(cfg)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	return st.Get(context.Background(), id)
}
