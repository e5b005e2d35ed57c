package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("39")  // Cyan
	ColorSecondary = lipgloss.Color("212") // Pink
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorMuted     = lipgloss.Color("245") // Gray
	ColorHighlight = lipgloss.Color("226") // Yellow
)

// Styles for various UI elements
var (
	// Text styles
	Bold      = lipgloss.NewStyle().Bold(true)
	Dim       = lipgloss.NewStyle().Foreground(ColorMuted)
	Highlight = lipgloss.NewStyle().Foreground(ColorHighlight)
	Header    = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	// Status styles
	Success = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning = lipgloss.NewStyle().Foreground(ColorWarning)
	Error   = lipgloss.NewStyle().Foreground(ColorError)
	Fatal   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	Hint    = lipgloss.NewStyle().Foreground(ColorHighlight)

	FilePath = lipgloss.NewStyle().Foreground(ColorPrimary)

	// Search result table
	TableTitle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)
	TableHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(0, 1)
	TableBorder = lipgloss.NewStyle().
			Foreground(ColorMuted)
	ScoreCell = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Padding(0, 1)
	TitleCell = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Padding(0, 1)
	PathCell = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Padding(0, 1)

	// Section styles
	SectionTitle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true).
			MarginTop(1)
	Divider = lipgloss.NewStyle().
		Foreground(ColorMuted)
)

// ResultColumns are the headers of the search results table.
var ResultColumns = []string{"Score", "Title", "File Path"}

// ResultRow is one line of the search results table.
type ResultRow struct {
	Score string
	Title string
	Path  string
}

// ResultsTable renders search results under a title naming the query.
func ResultsTable(query string, rows []ResultRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(TableBorder).
		Headers(ResultColumns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeader
			}
			switch col {
			case 0:
				return ScoreCell
			case 1:
				return TitleCell
			default:
				return PathCell
			}
		})

	for _, r := range rows {
		t.Row(r.Score, r.Title, r.Path)
	}

	title := TableTitle.Render(fmt.Sprintf("Search Results for '%s'", query))
	return title + "\n" + t.String()
}

// HorizontalRule returns a styled horizontal divider.
func HorizontalRule(width int) string {
	return Divider.Render(strings.Repeat("─", width))
}
