package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	text := `---
title: Event Sourcing
tags:
  - patterns
  - storage
status: draft
---

# Event Sourcing

Store every change as an event.
`
	doc, err := Parse(text)
	require.NoError(t, err)

	assert.Equal(t, "Event Sourcing", doc.Metadata["title"])
	assert.Equal(t, []any{"patterns", "storage"}, doc.Metadata["tags"])
	assert.Equal(t, "draft", doc.Metadata["status"])
	assert.Equal(t, "# Event Sourcing\n\nStore every change as an event.", doc.Body)
}

func TestParseTooFewSegments(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no delimiter", "# Just a heading\n\nbody"},
		{"one delimiter", "---\ntitle: X\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.text)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, ErrNoFrontMatter)
		})
	}
}

func TestParseInvalidFrontMatter(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"syntax error", "---\ntitle: [unclosed\n---\nbody"},
		{"scalar", "---\njust a string\n---\nbody"},
		{"empty block", "---\n---\nbody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			assert.ErrorIs(t, err, ErrInvalidFrontMatter)
		})
	}
}

func TestParseBodyStopsAtNextDelimiter(t *testing.T) {
	text := "---\ntitle: Rules\n---\nfirst part\n---\nsecond part\n"

	doc, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "first part", doc.Body)
}

func TestParseEmptyBody(t *testing.T) {
	doc, err := Parse("---\ntitle: Empty\n---\n   \n")
	require.NoError(t, err)
	assert.Empty(t, doc.Body)
}

func TestFlatten(t *testing.T) {
	doc, err := Parse(`---
title: X
tags: [a, b, c]
prerequisites: []
draft: true
order: 3
weight: 2.5
last_updated: 2024-01-15
owner:
---
hello`)
	require.NoError(t, err)

	meta := Flatten(doc.Metadata)
	assert.Equal(t, map[string]string{
		"title":         "X",
		"tags":          "a, b, c",
		"prerequisites": "",
		"draft":         "true",
		"order":         "3",
		"weight":        "2.5",
		"last_updated":  "2024-01-15",
		"owner":         "",
	}, meta)
}

func TestFlattenPreservesListOrder(t *testing.T) {
	meta := Flatten(map[string]any{"tags": []any{"z", "a", 1, "m"}})
	assert.Equal(t, "z, a, 1, m", meta["tags"])
}

func TestTitleOf(t *testing.T) {
	assert.Equal(t, "X", TitleOf(map[string]string{"title": "X"}, "id"))
	assert.Equal(t, "id", TitleOf(map[string]string{"tags": "a"}, "id"))
	assert.Equal(t, "id", TitleOf(map[string]string{"title": ""}, "id"))
	assert.Equal(t, "id", TitleOf(nil, "id"))
}
