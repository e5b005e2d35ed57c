package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register sqlite-vec extension
	sqlite_vec.Auto()
}

// collectionRecord is a row of the collections table.
type collectionRecord struct {
	ID        int64
	Name      string
	Model     Model
	UpdatedAt time.Time
}

// SQLiteStore implements Store using SQLite and sqlite-vec.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	path   string
	name   string
	model  Model
	record *collectionRecord // nil until the first upsert creates the collection
}

// NewSQLiteStore opens the SQLite database at dbPath and the collection name within it.
func NewSQLiteStore(dbPath, name string, model Model) (*SQLiteStore, error) {
	dbPath, err := expandPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return newSQLiteStore(db, dbPath, name, model)
}

// OpenSQLiteStore opens an existing collection in a query-only connection.
// It returns ErrNoCollection when the database file or the collection is absent.
func OpenSQLiteStore(dbPath, name string, model Model) (*SQLiteStore, error) {
	dbPath, err := expandPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path: %w", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_query_only=true")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := newSQLiteStore(db, dbPath, name, model)
	if err != nil {
		return nil, err
	}
	if s.record == nil {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoCollection, name)
	}
	return s, nil
}

func newSQLiteStore(db *sql.DB, dbPath, name string, model Model) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, path: dbPath, name: name, model: model}

	record, err := s.loadCollection()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.record = record

	if record != nil && model.Name != "" && (record.Model.Provider != model.Provider || record.Model.Name != model.Name) {
		log.Warn("Collection was built with a different embedding model",
			"collection", name,
			"stored", record.Model.Provider+"/"+record.Model.Name,
			"configured", model.Provider+"/"+model.Name)
	}

	log.Debug("Opened SQLite store", "path", dbPath, "collection", name)

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) loadCollection() (*collectionRecord, error) {
	var record collectionRecord
	var updatedAt string

	err := s.db.QueryRow(`
		SELECT id, name, embedding_provider, embedding_model, embedding_dimensions, updated_at
		FROM collections WHERE name = ?
	`, s.name).Scan(
		&record.ID, &record.Name,
		&record.Model.Provider, &record.Model.Name, &record.Model.Dimensions,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	record.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &record, nil
}

// ensureCollection creates the collection with the given dimensions if it does not exist.
// Callers must hold the write lock.
func (s *SQLiteStore) ensureCollection(dimensions int) (*collectionRecord, error) {
	if s.record != nil {
		if s.record.Model.Dimensions != dimensions {
			return nil, fmt.Errorf("%w: collection %s has %d, got %d",
				ErrDimensionMismatch, s.name, s.record.Model.Dimensions, dimensions)
		}
		return s.record, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(`
		INSERT INTO collections (name, embedding_provider, embedding_model, embedding_dimensions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.name, s.model.Provider, s.model.Name, dimensions, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get collection ID: %w", err)
	}

	log.Debug("Creating vector table", "collection", s.name, "dimensions", dimensions)
	if err := createVectorTable(s.db, id, dimensions); err != nil {
		return nil, fmt.Errorf("failed to create vector table: %w", err)
	}

	model := s.model
	model.Dimensions = dimensions
	createdAt, _ := time.Parse(time.RFC3339, now)
	s.record = &collectionRecord{ID: id, Name: s.name, Model: model, UpdatedAt: createdAt}
	return s.record, nil
}

// Upsert inserts or replaces a document and its embedding.
func (s *SQLiteStore) Upsert(ctx context.Context, doc Document, embedding []float32) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embedding is required")
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.ensureCollection(len(embedding))
	if err != nil {
		return err
	}
	vectors := vectorTableName(record.ID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	var docID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM documents WHERE collection_id = ? AND external_id = ?",
		record.ID, doc.ID).Scan(&docID)
	switch {
	case err == sql.ErrNoRows:
		result, err := tx.ExecContext(ctx, `
			INSERT INTO documents (collection_id, external_id, content, metadata, indexed_at)
			VALUES (?, ?, ?, ?, ?)
		`, record.ID, doc.ID, doc.Content, string(metadata), now)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		docID, _ = result.LastInsertId()
	case err != nil:
		return fmt.Errorf("failed to check existing document: %w", err)
	default:
		// vec0 tables have no upsert; replace the vector row
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+vectors+" WHERE document_id = ?", docID); err != nil {
			return fmt.Errorf("failed to delete old vector: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET content = ?, metadata = ?, indexed_at = ? WHERE id = ?
		`, doc.Content, string(metadata), now, docID)
		if err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO "+vectors+" (document_id, embedding) VALUES (?, ?)",
		docID, serializeEmbedding(embedding))
	if err != nil {
		return fmt.Errorf("failed to insert vector: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE collections SET updated_at = ? WHERE id = ?", now, record.ID); err != nil {
		return fmt.Errorf("failed to update collection timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	record.UpdatedAt, _ = time.Parse(time.RFC3339, now)
	return nil
}

// Query performs a KNN search over the collection's vectors.
func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, n int) ([]Match, error) {
	if n < 1 {
		return nil, fmt.Errorf("result count must be positive, got %d", n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return nil, nil
	}
	if len(embedding) != s.record.Model.Dimensions {
		return nil, fmt.Errorf("%w: collection %s has %d, got %d",
			ErrDimensionMismatch, s.name, s.record.Model.Dimensions, len(embedding))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.external_id, d.content, d.metadata, v.distance
		FROM `+vectorTableName(s.record.ID)+` v
		JOIN documents d ON d.id = v.document_id
		WHERE v.embedding MATCH ?
			AND k = ?
		ORDER BY v.distance ASC
	`, serializeEmbedding(embedding), n)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metadata string
		var distance sql.NullFloat64

		if err := rows.Scan(&m.ID, &m.Content, &metadata, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", m.ID, err)
		}
		if distance.Valid {
			m.Distance = Distance(distance.Float64)
		}

		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// Get returns the document with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	doc := Document{ID: id}
	var metadata string
	err := s.db.QueryRowContext(ctx, `
		SELECT content, metadata FROM documents WHERE collection_id = ? AND external_id = ?
	`, s.record.ID, id).Scan(&doc.Content, &metadata)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &doc, nil
}

// Count returns the number of documents in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return 0, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE collection_id = ?", s.record.ID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Info describes the collection. The model is the one recorded at creation, if any.
func (s *SQLiteStore) Info(ctx context.Context) (*Info, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info := &Info{
		Backend:    BackendSQLite,
		Location:   s.path,
		Collection: s.name,
		Count:      count,
		Model:      s.model,
	}
	if s.record != nil {
		info.Model = s.record.Model
		info.UpdatedAt = s.record.UpdatedAt
	}
	return info, nil
}

// serializeEmbedding converts a float32 slice to bytes for sqlite-vec.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
