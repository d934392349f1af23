//go:build sqlite_vec
// +build sqlite_vec

package storage

// Compiled with the sqlite_vec tag: uses the cgo driver so that a
// statically registered sqlite-vec extension can rank entries in SQL.
//
//   CGO_ENABLED=1 go build -tags sqlite_vec ./...
//
// When vec_distance_cosine is unavailable at runtime, Query falls back to
// ranking in Go.

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// VectorExtensionAvailable reports whether SQL-side ranking is attempted
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
