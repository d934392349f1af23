// Package storage persists collections of embedded document chunks.
//
// A collection is a named set of entries; each entry has a caller-chosen id
// (unique within its collection), the chunk text, JSON metadata, and a
// float32 vector stored as a little-endian blob. Writing an existing id
// replaces the entry in place.
//
// # Backends
//
// SQLiteStorage is the default backend. Two builds are available:
//
//   - default / purego: modernc.org/sqlite, vectors ranked in Go
//   - sqlite_vec tag: github.com/mattn/go-sqlite3 with SQL-side cosine distance
//
// The qdrant subpackage implements the same interface over a Qdrant server.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("./data/docstore.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	err = db.Upsert(ctx, "documents", []storage.Record{{
//	    ID:       "user_guide_chunk_0000",
//	    Document: text,
//	    Metadata: types.Metadata{"document_title": "User Guide"},
//	    Vector:   vec,
//	}})
//
//	matches, err := db.Query(ctx, "documents", queryVec, 5)
//
// # Schema
//
// Migrations are versioned with semantic versions and recorded in the
// schema_version table. ApplyMigrations runs on open; RollbackMigration
// undoes the most recent one.
package storage
