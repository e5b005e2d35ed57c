// Package indexer parses markdown documents, embeds them and upserts them into the store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nickcecere/kb/internal/config"
	"github.com/nickcecere/kb/internal/document"
	"github.com/nickcecere/kb/internal/embeddings"
	"github.com/nickcecere/kb/internal/fs"
	"github.com/nickcecere/kb/internal/store"
)

// ErrFileNotFound is returned when the path to add does not exist.
var ErrFileNotFound = errors.New("file not found")

// Outcome classifies what happened to a document.
type Outcome int

const (
	// Indexed means the document was embedded and upserted.
	Indexed Outcome = iota
	// Skipped means the front matter could not be parsed.
	Skipped
	// Empty means the document parsed but had no body.
	Empty
	// Missing means the file does not exist.
	Missing
	// Failed means reading, embedding or storing failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Indexed:
		return "indexed"
	case Skipped:
		return "skipped"
	case Empty:
		return "empty"
	case Missing:
		return "missing"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result reports the outcome of indexing one document.
type Result struct {
	// ID is the store key: the cleaned file path.
	ID      string
	Title   string
	Outcome Outcome
	Err     error
	// Hash is the xxhash of the file contents when it could be read.
	Hash string
}

// Indexer orchestrates the indexing of documents into the vector store.
type Indexer struct {
	store    store.Store
	embedder embeddings.Service
	cfg      *config.Config
}

// New creates a new Indexer.
func New(st store.Store, emb embeddings.Service, cfg *config.Config) *Indexer {
	return &Indexer{
		store:    st,
		embedder: emb,
		cfg:      cfg,
	}
}

// Add indexes the markdown file at path, replacing any entry stored under the same path.
// Failures are reported in the Result; Add never retries.
func (idx *Indexer) Add(ctx context.Context, path string) Result {
	id := filepath.Clean(path)

	prepared, res := prepare(id)
	if res.Outcome != Indexed {
		return res
	}

	embedding, err := idx.embedder.Embed(ctx, prepared.Content)
	if err != nil {
		res.Outcome = Failed
		res.Err = fmt.Errorf("failed to generate embedding: %w", err)
		return res
	}

	return idx.upsert(ctx, prepared, embedding, res)
}

// prepare reads and parses the file; the Result has Outcome Indexed when the
// document is ready to embed.
func prepare(id string) (store.Document, Result) {
	res := Result{ID: id, Title: id}

	info, err := os.Stat(id)
	if errors.Is(err, os.ErrNotExist) {
		res.Outcome = Missing
		res.Err = fmt.Errorf("%w: %s", ErrFileNotFound, id)
		return store.Document{}, res
	}
	if err != nil {
		res.Outcome = Failed
		res.Err = fmt.Errorf("failed to stat file: %w", err)
		return store.Document{}, res
	}
	if info.IsDir() {
		res.Outcome = Failed
		res.Err = fmt.Errorf("%s is a directory", id)
		return store.Document{}, res
	}

	content, err := os.ReadFile(id)
	if err != nil {
		res.Outcome = Failed
		res.Err = fmt.Errorf("failed to read file: %w", err)
		return store.Document{}, res
	}
	res.Hash = fs.HashContent(content)

	doc, err := document.Parse(string(content))
	if err != nil {
		res.Outcome = Skipped
		res.Err = err
		return store.Document{}, res
	}

	metadata := document.Flatten(doc.Metadata)
	res.Title = document.TitleOf(metadata, id)

	if doc.Body == "" {
		res.Outcome = Empty
		return store.Document{}, res
	}

	res.Outcome = Indexed
	return store.Document{ID: id, Content: doc.Body, Metadata: metadata}, res
}

func (idx *Indexer) upsert(ctx context.Context, doc store.Document, embedding []float32, res Result) Result {
	if err := idx.store.Upsert(ctx, doc, embedding); err != nil {
		res.Outcome = Failed
		res.Err = err
		return res
	}

	log.Debug("Indexed document", "id", doc.ID, "dimensions", len(embedding))
	return res
}

// DirOptions configures AddDir.
type DirOptions struct {
	// Extensions overrides the configured markdown extensions.
	Extensions []string

	// IgnorePatterns are added to the configured ignore patterns.
	IgnorePatterns []string

	// DryRun lists the files that would be indexed without embedding them.
	DryRun bool

	// BatchSize is the number of documents embedded per request.
	BatchSize int

	// OnResult is called after each document.
	OnResult func(Result)
}

// Summary counts the outcomes of AddDir.
type Summary struct {
	Files    int
	Indexed  int
	Skipped  int
	Empty    int
	Failed   int
	Duration time.Duration
}

func (s *Summary) count(o Outcome) {
	switch o {
	case Indexed:
		s.Indexed++
	case Skipped:
		s.Skipped++
	case Empty:
		s.Empty++
	default:
		s.Failed++
	}
}

// DefaultBatchSize is the number of documents embedded per request by AddDir.
const DefaultBatchSize = 16

// AddDir indexes every markdown file under dir. Document IDs are the walked
// paths, so `add dir/x.md` and AddDir("dir") address the same entries.
func (idx *Indexer) AddDir(ctx context.Context, dir string, opts DirOptions) (*Summary, error) {
	start := time.Now()

	files, err := idx.Discover(dir, opts.Extensions, opts.IgnorePatterns)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Files: len(files)}
	log.Info("Found documents to index", "count", len(files), "dir", dir)

	report := func(res Result) {
		summary.count(res.Outcome)
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
	}

	if opts.DryRun {
		for _, fi := range files {
			if opts.OnResult != nil {
				opts.OnResult(Result{ID: filepath.Clean(fi.Path), Title: fi.RelPath, Hash: fi.Hash})
			}
		}
		summary.Duration = time.Since(start)
		return summary, nil
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var docs []store.Document
	var results []Result

	flush := func() error {
		if len(docs) == 0 {
			return nil
		}
		defer func() { docs, results = docs[:0], results[:0] }()

		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Content
		}

		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(vectors) != len(docs) {
			err = fmt.Errorf("expected %d embeddings, got %d", len(docs), len(vectors))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			for _, res := range results {
				res.Outcome = Failed
				res.Err = fmt.Errorf("failed to generate embedding: %w", err)
				report(res)
			}
			return nil
		}

		for i, d := range docs {
			report(idx.upsert(ctx, d, vectors[i], results[i]))
		}
		return nil
	}

	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		doc, res := prepare(filepath.Clean(fi.Path))
		if res.Outcome != Indexed {
			report(res)
			continue
		}

		docs = append(docs, doc)
		results = append(results, res)
		if len(docs) >= batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	log.Info("Indexing complete",
		"indexed", summary.Indexed,
		"skipped", summary.Skipped+summary.Empty,
		"failed", summary.Failed,
		"duration", summary.Duration.Round(time.Millisecond),
	)

	return summary, nil
}

// Discover lists the markdown files under dir that AddDir would index.
func (idx *Indexer) Discover(dir string, extensions, ignore []string) ([]fs.FileInfo, error) {
	if len(extensions) == 0 {
		extensions = idx.cfg.Indexing.Extensions
	}

	walker, err := fs.NewFileWalker(fs.WalkOptions{
		Root:           dir,
		MaxFileSize:    int64(idx.cfg.Indexing.MaxFileSize),
		IgnorePatterns: append(append([]string{}, idx.cfg.Ignore...), ignore...),
		UseGitignore:   true,
		Extensions:     extensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file walker: %w", err)
	}

	var files []fs.FileInfo
	if err := walker.Walk(func(fi fs.FileInfo) error {
		files = append(files, fi)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	stats := walker.Stats()
	log.Debug("Walked directory", "dir", dir, "found", stats.FilesFound, "skipped", stats.FilesSkipped)

	return files, nil
}
