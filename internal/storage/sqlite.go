package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/docstore-mcp/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// applies pending migrations. ":memory:" gives a private in-memory store.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Location returns the database path
func (s *SQLiteStorage) Location() string {
	return s.path
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Collection operations

func (s *SQLiteStorage) getCollectionWithQuerier(ctx context.Context, q querier, name string) (*Collection, error) {
	query := `SELECT id, name, metadata, created_at FROM collections WHERE name = ?`

	var c Collection
	var metadata string
	err := q.QueryRowContext(ctx, query, name).Scan(&c.ID, &c.Name, &metadata, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Metadata, err = types.DecodeMetadata([]byte(metadata))
	if err != nil {
		return nil, fmt.Errorf("collection %s has malformed metadata: %w", name, err)
	}
	return &c, nil
}

func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return s.getCollectionWithQuerier(ctx, s.db, name)
}

func (s *SQLiteStorage) createCollectionWithQuerier(ctx context.Context, q querier, name string, metadata types.Metadata) (*Collection, error) {
	if metadata == nil {
		metadata = DefaultCollectionMetadata()
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode collection metadata: %w", err)
	}

	now := time.Now()
	result, err := q.ExecContext(ctx,
		`INSERT INTO collections (name, metadata, created_at) VALUES (?, ?, ?)`,
		name, string(data), now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("collection %s: %w", name, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Collection{ID: id, Name: name, Metadata: metadata.Clone(), CreatedAt: now}, nil
}

// GetOrCreateCollection returns the named collection, creating it with
// metadata when absent. Existing metadata is left untouched.
func (s *SQLiteStorage) GetOrCreateCollection(ctx context.Context, name string, metadata types.Metadata) (*Collection, error) {
	c, err := s.getCollectionWithQuerier(ctx, s.db, name)
	if err == nil {
		return c, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	return s.createCollectionWithQuerier(ctx, s.db, name, metadata)
}

// DeleteCollection removes a collection and its entries
func (s *SQLiteStorage) DeleteCollection(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, metadata, created_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	collections := make([]*Collection, 0)
	for rows.Next() {
		var c Collection
		var metadata string
		if err := rows.Scan(&c.ID, &c.Name, &metadata, &c.CreatedAt); err != nil {
			return nil, err
		}
		if c.Metadata, err = types.DecodeMetadata([]byte(metadata)); err != nil {
			c.Metadata = types.Metadata{}
		}
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

// Entry operations

// Count returns the number of entries in a collection; an absent collection has none
func (s *SQLiteStorage) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM entries e
		INNER JOIN collections c ON c.id = e.collection_id
		WHERE c.name = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// upsertRecordWithQuerier inserts or replaces one entry, keeping its
// original row position so Peek order stays stable
func (s *SQLiteStorage) upsertRecordWithQuerier(ctx context.Context, q querier, collectionID int64, r Record) error {
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", r.ID, err)
	}

	query := `
		INSERT INTO entries (collection_id, entry_id, document, metadata, document_title,
		                     vector, dimension, provider, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, entry_id) DO UPDATE SET
			document = excluded.document,
			metadata = excluded.metadata,
			document_title = excluded.document_title,
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err = q.ExecContext(ctx, query,
		collectionID, r.ID, r.Document, string(metadata), titleOf(r.Metadata),
		serializeVector(r.Vector), len(r.Vector), r.Provider, r.Model, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert entry %s: %w", r.ID, err)
	}
	return nil
}

// Upsert writes records into collection atomically, creating the
// collection with default metadata when needed
func (s *SQLiteStorage) Upsert(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Vector)
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record has empty id")
		}
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: %s has %d, expected %d", ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	c, err := s.getCollectionWithQuerier(ctx, tx, collection)
	if err == ErrNotFound {
		c, err = s.createCollectionWithQuerier(ctx, tx, collection, nil)
	}
	if err != nil {
		return err
	}

	for _, r := range records {
		if err := s.upsertRecordWithQuerier(ctx, tx, c.ID, r); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteByTitle removes every entry whose document_title equals title and
// whose id is not in keep
func (s *SQLiteStorage) DeleteByTitle(ctx context.Context, collection, title string, keep ...string) (int, error) {
	query := `
		DELETE FROM entries
		WHERE document_title = ?
		AND collection_id = (SELECT id FROM collections WHERE name = ?)`
	args := []interface{}{title, collection}
	if len(keep) > 0 {
		query += " AND entry_id NOT IN (?" + strings.Repeat(", ?", len(keep)-1) + ")"
		for _, id := range keep {
			args = append(args, id)
		}
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) Query(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error) {
	return searchVector(ctx, s.db, collection, vector, limit)
}

func (s *SQLiteStorage) Peek(ctx context.Context, collection string, limit int) ([]Match, error) {
	if limit <= 0 {
		return []Match{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.entry_id, e.document, e.metadata
		FROM entries e
		INNER JOIN collections c ON c.id = e.collection_id
		WHERE c.name = ?
		ORDER BY e.id
		LIMIT ?`, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to peek entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]Match, 0, limit)
	for rows.Next() {
		var m Match
		var metadata string
		if err := rows.Scan(&m.ID, &m.Document, &metadata); err != nil {
			return nil, err
		}
		m.Metadata = decodeOrEmpty(metadata)
		m.Distance = 1
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func decodeOrEmpty(s string) types.Metadata {
	md, err := types.DecodeMetadata([]byte(s))
	if err != nil || md == nil {
		return types.Metadata{}
	}
	return md
}
