package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/store"
	"github.com/nickcecere/kb/internal/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base status",
	Long: `Display information about the knowledge base:
- Store backend and location
- Collection name and document count
- Embedding provider and model`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Get()

	info, err := storeInfo(cfg)
	if err != nil {
		return err
	}
	log.Debug("Store info", "backend", info.Backend, "count", info.Count)

	fmt.Fprintln(out, ui.Header.Render("Knowledge Base Status"))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "%s %s\n", ui.Highlight.Render("Collection:"), ui.Bold.Render(info.Collection))
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Backend:"), info.Backend)
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Location:"), info.Location)
	fmt.Fprintf(out, "  %s %d\n", ui.Dim.Render("Documents:"), info.Count)

	model := fmt.Sprintf("%s (%s)", info.Model.Name, info.Model.Provider)
	if info.Model.Dimensions > 0 {
		model += fmt.Sprintf(", %d dimensions", info.Model.Dimensions)
	}
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Model:"), model)
	fmt.Fprintf(out, "  %s %s\n", ui.Dim.Render("Updated:"), formatTime(info.UpdatedAt))

	if info.Count == 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.Warning.Render("The knowledge base is empty. Run 'kb add <path>' or 'kb index <dir>'."))
	}

	return nil
}

// storeInfo describes the configured collection, reporting an empty one when
// it has not been created yet.
func storeInfo(cfg *config.Config) (*store.Info, error) {
	st, err := openExistingStore(cfg)
	if errors.Is(err, store.ErrNoCollection) {
		return &store.Info{
			Backend:    cfg.Store.Backend,
			Location:   cfg.Store.Path,
			Collection: cfg.Store.Collection,
			Model:      configuredModel(cfg),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	defer st.Close()

	info, err := st.Info(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read store info: %w", err)
	}
	return info, nil
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "today at " + t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 2 at 15:04")
	}
	return t.Format("Jan 2, 2006 at 15:04")
}
