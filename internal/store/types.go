// Package store provides persistent vector storage for indexed documents.
package store

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a document id is not in the collection.
	ErrNotFound = errors.New("document not found")

	// ErrNoCollection is returned by OpenExisting when the collection has not been created.
	ErrNoCollection = errors.New("collection does not exist")

	// ErrDimensionMismatch is returned when an embedding does not match the collection's dimensions.
	ErrDimensionMismatch = errors.New("embedding dimensions mismatch")
)

// Document is a stored entry. ID is unique within a collection.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Match is a query hit. Distance is nil when the backend did not report one.
type Match struct {
	Document
	Distance *float64 `json:"distance,omitempty"`
}

// Model identifies the embedding model a collection is built with.
type Model struct {
	Provider   string `json:"provider"`
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
}

// Info describes a collection.
type Info struct {
	Backend    string    `json:"backend"`
	Location   string    `json:"location"`
	Collection string    `json:"collection"`
	Count      int       `json:"count"`
	Model      Model     `json:"model"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Options configures Open.
type Options struct {
	Backend    string
	Path       string
	Collection string
	Compress   bool
	Model      Model
}

// Distance returns a pointer to d, for building matches.
func Distance(d float64) *float64 {
	return &d
}
