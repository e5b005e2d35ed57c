package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/search"
	"github.com/nickcecere/kb/internal/ui"
)

var (
	searchLimit   int
	searchJSON    bool
	searchContent bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base by meaning",
	Long: `Search for documents using a natural language query.

Results are ranked by vector similarity and shown as a table with a score
(1 - distance, rounded to two decimals), the document title and its path.

Examples:
  # Top 3 results
  kb search "how do services share data"

  # More results
  kb search "consistency" -n 10

  # Machine readable output
  kb search "consistency" --json`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{needsEmbeddings: "true"},
	RunE:        runSearchCmd,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from search.limit, 3)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVarP(&searchContent, "content", "c", false, "include document content in JSON output")
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	query := args[0]
	out := cmd.OutOrStdout()
	cfg := config.Get()

	// Checked before any client or store is created.
	if err := search.ValidateQuery(query); err != nil {
		fmt.Fprintln(out, ui.Fatal.Render("Search query cannot be empty."))
		return nil
	}

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Search.Limit
	}

	log.Debug("Starting search", "query", query, "limit", limit)

	ctx, cancel := signalContext(nil)
	defer cancel()

	st, emb, err := openServices(cfg)
	if err != nil {
		fmt.Fprintln(out, ui.Fatal.Render(fmt.Sprintf("Error during search: %v", err)))
		return nil
	}
	defer st.Close()

	searcher := search.New(st, emb)
	results, err := searcher.Search(ctx, query, search.Options{
		Limit:          limit,
		IncludeContent: searchJSON && searchContent,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintln(out, ui.Fatal.Render(fmt.Sprintf("Error during search: %v", err)))
		return nil
	}

	if searchJSON {
		return outputJSON(out, results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, ui.Warning.Render("No results found."))
		return nil
	}

	displayResults(out, query, results)
	return nil
}

// displayResults prints the results table.
func displayResults(out io.Writer, query string, results []search.Result) {
	rows := make([]ui.ResultRow, len(results))
	for i, r := range results {
		rows[i] = ui.ResultRow{
			Score: r.ScoreText(),
			Title: r.Title,
			Path:  r.ID,
		}
	}
	fmt.Fprintln(out, ui.ResultsTable(query, rows))
}

// outputJSON writes results as an indented JSON array.
func outputJSON(out io.Writer, results []search.Result) error {
	if results == nil {
		results = []search.Result{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
