package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/dshills/docstore-mcp/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func record(id, title string, vector ...float32) Record {
	return Record{
		ID:       id,
		Document: "text of " + id,
		Metadata: types.Metadata{"document_title": title, "chunk_index": 0},
		Vector:   vector,
		Provider: "local",
		Model:    "test",
	}
}

func TestNewSQLiteStorage_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.db")
	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Location())
	assert.FileExists(t, path)
}

func TestNewSQLiteStorage_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.db")

	s, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, "docs", []Record{record("a", "A", 1, 0)}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStorage(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollections(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.GetCollection(ctx, "docs")
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := s.GetOrCreateCollection(ctx, "docs", types.Metadata{"description": "custom"})
	require.NoError(t, err)
	assert.Greater(t, c.ID, int64(0))
	assert.Equal(t, "custom", c.Metadata.String("description", ""))

	again, err := s.GetOrCreateCollection(ctx, "docs", types.Metadata{"description": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, "custom", again.Metadata.String("description", ""))

	_, err = s.GetOrCreateCollection(ctx, "archive", nil)
	require.NoError(t, err)

	all, err := s.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "archive", all[0].Name)
	assert.Equal(t, "Document knowledge base", all[0].Metadata.String("description", ""))

	require.NoError(t, s.DeleteCollection(ctx, "archive"))
	assert.ErrorIs(t, s.DeleteCollection(ctx, "archive"), ErrNotFound)
}

func TestUpsert_CreatesCollectionAndReplaces(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []Record{
		record("a", "A", 1, 0),
		record("b", "B", 0, 1),
	}))

	n, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	replaced := record("a", "A2", 0, 1)
	replaced.Document = "updated"
	require.NoError(t, s.Upsert(ctx, "docs", []Record{replaced}))

	n, err = s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "same id must not add an entry")

	peek, err := s.Peek(ctx, "docs", 10)
	require.NoError(t, err)
	require.Len(t, peek, 2)
	assert.Equal(t, "a", peek[0].ID, "replacement keeps insertion position")
	assert.Equal(t, "updated", peek[0].Document)
	assert.Equal(t, "A2", peek[0].Metadata.String("document_title", ""))
	assert.Equal(t, 1.0, peek[0].Distance)
}

func TestUpsert_Validation(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	assert.NoError(t, s.Upsert(ctx, "docs", nil))

	err := s.Upsert(ctx, "docs", []Record{record("a", "A", 1, 0), record("b", "B", 1)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = s.Upsert(ctx, "docs", []Record{record("", "A", 1)})
	assert.Error(t, err)

	n, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCount_MissingCollection(t *testing.T) {
	s := setupTestDB(t)
	n, err := s.Count(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestDeleteByTitle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []Record{
		record("a0", "Alpha", 1, 0),
		record("a1", "Alpha", 1, 0),
		record("b0", "Beta", 0, 1),
	}))
	require.NoError(t, s.Upsert(ctx, "other", []Record{record("a0", "Alpha", 1, 0)}))

	n, err := s.DeleteByTitle(ctx, "docs", "Alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	other, err := s.Count(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, other, "other collections are untouched")
}

func TestDeleteByTitle_Keep(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []Record{
		record("a0", "Alpha", 1, 0),
		record("a1", "Alpha", 1, 0),
		record("a2", "Alpha", 1, 0),
	}))

	n, err := s.DeleteByTitle(ctx, "docs", "Alpha", "a0", "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 2, left)
}

func TestDeleteCollection_CascadesEntries(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []Record{record("a", "A", 1, 0)}))
	require.NoError(t, s.DeleteCollection(ctx, "docs"))

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n))
	assert.Equal(t, 0, n)
}

func TestPeek_Limit(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	records := make([]Record, 0, 5)
	for i := 0; i < 5; i++ {
		records = append(records, record(fmt.Sprintf("doc_%d", i), "T", 1, float32(i)))
	}
	require.NoError(t, s.Upsert(ctx, "docs", records))

	peek, err := s.Peek(ctx, "docs", 3)
	require.NoError(t, err)
	require.Len(t, peek, 3)
	assert.Equal(t, []string{"doc_0", "doc_1", "doc_2"}, []string{peek[0].ID, peek[1].ID, peek[2].ID})

	empty, err := s.Peek(ctx, "docs", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMigrations(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	v, err := SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)

	// applying again is a no-op
	require.NoError(t, ApplyMigrations(ctx, s.db))

	require.NoError(t, RollbackMigration(ctx, s.db))
	v, err = SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v)

	require.NoError(t, ApplyMigrations(ctx, s.db))
	v, err = SchemaVersion(ctx, s.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v)
}
