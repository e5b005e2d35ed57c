// Package search provides semantic search over the document collection.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/nickcecere/kb/internal/document"
	"github.com/nickcecere/kb/internal/embeddings"
	"github.com/nickcecere/kb/internal/store"
)

// DefaultLimit is the number of results returned when none is requested.
const DefaultLimit = 3

// NotAvailable is displayed for a missing score or title.
const NotAvailable = "N/A"

// ErrEmptyQuery is returned for blank queries. No embedding or store call is made.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// Searcher embeds queries and looks up the nearest documents.
type Searcher struct {
	store    store.Store
	embedder embeddings.Service
}

// Result is one ranked hit.
type Result struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Score    *float64          `json:"score"`
	Distance *float64          `json:"distance,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Content  string            `json:"content,omitempty"`
}

// ScoreText returns the formatted score, or NotAvailable.
func (r Result) ScoreText() string {
	return FormatScore(r.Score)
}

// Options configures a search.
type Options struct {
	// Limit is the maximum number of results; DefaultLimit when zero.
	Limit int

	// IncludeContent copies the document body into each result.
	IncludeContent bool
}

// New creates a new Searcher.
func New(st store.Store, emb embeddings.Service) *Searcher {
	return &Searcher{
		store:    st,
		embedder: emb,
	}
}

// Search embeds query and returns up to opts.Limit results in store order.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	log.Debug("Generating query embedding", "query", truncate(query, 50))
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	log.Debug("Querying store", "limit", limit)
	matches, err := s.store.Query(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		r := Result{
			ID:       m.ID,
			Title:    document.TitleOf(m.Metadata, NotAvailable),
			Score:    Score(m.Distance),
			Distance: m.Distance,
			Metadata: m.Metadata,
		}
		if opts.IncludeContent {
			r.Content = m.Content
		}
		results = append(results, r)
	}

	log.Debug("Search complete", "results", len(results))
	return results, nil
}

// ValidateQuery returns ErrEmptyQuery for blank queries.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// Score converts a distance to a display score, 1 - distance rounded to two
// decimals. A nil distance yields a nil score.
func Score(distance *float64) *float64 {
	if distance == nil {
		return nil
	}
	score := math.Round((1-*distance)*100) / 100
	return &score
}

// FormatScore renders a score with the fewest digits that represent it,
// keeping at least one decimal: 1.0, 0.9, 0.87.
func FormatScore(score *float64) string {
	if score == nil {
		return NotAvailable
	}
	text := strconv.FormatFloat(*score, 'f', -1, 64)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	return text
}

// truncate shortens a string for display.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := max(maxLen-3, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
