// Package document parses markdown files with YAML front matter.
package document

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter separates the front matter block from the body.
const Delimiter = "---"

var (
	// ErrNoFrontMatter is returned when the text has fewer than three delimited segments.
	ErrNoFrontMatter = errors.New("no front matter found")

	// ErrInvalidFrontMatter is returned when the front matter is not a YAML mapping.
	ErrInvalidFrontMatter = errors.New("invalid front matter")
)

// Document is a parsed markdown file.
type Document struct {
	// Metadata holds the decoded front matter, values as YAML produced them.
	Metadata map[string]any
	// Body is the text after the front matter, trimmed.
	Body string
}

// Parse splits text on "---" and decodes the second segment as YAML.
// The body is the third segment; anything after a later delimiter is not part of it.
func Parse(text string) (*Document, error) {
	parts := strings.Split(text, Delimiter)
	if len(parts) < 3 {
		return nil, ErrNoFrontMatter
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontMatter, err)
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: empty front matter", ErrInvalidFrontMatter)
	}

	return &Document{
		Metadata: meta,
		Body:     strings.TrimSpace(parts[2]),
	}, nil
}

// TitleOf returns meta["title"] or fallback.
func TitleOf(meta map[string]string, fallback string) string {
	if title := meta["title"]; title != "" {
		return title
	}
	return fallback
}
