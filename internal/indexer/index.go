package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultIndexFile is the file index path used when none is configured
const DefaultIndexFile = "vector_store_index.json"

// FileIndexEntry records the last successful ingestion of one source file
type FileIndexEntry struct {
	Hash          string   `json:"hash"`
	Size          int64    `json:"size"`
	ModifiedTime  float64  `json:"modified_time"`
	IngestedAt    string   `json:"ingested_at"`
	DocumentTitle string   `json:"document_title"`
	ChunksCreated int      `json:"chunks_created"`
	Category      string   `json:"category"`
	DocType       string   `json:"doc_type"`
	Tags          []string `json:"tags"`
}

// FileIndex maps absolute source paths to their entries
type FileIndex map[string]FileIndexEntry

// Paths returns the indexed paths in sorted order
func (idx FileIndex) Paths() []string {
	paths := make([]string, 0, len(idx))
	for p := range idx {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// LoadIndex reads the file index at path. A missing file yields an empty
// index; an unreadable or malformed one is logged and also yields an empty
// index, so every file is ingested again.
func LoadIndex(path string, log zerolog.Logger) FileIndex {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileIndex{}
	}
	if err != nil {
		log.Warn().Err(err).Str("index_file", path).Msg("Error loading index file")
		return FileIndex{}
	}

	idx := FileIndex{}
	if err := json.Unmarshal(data, &idx); err != nil {
		log.Warn().Err(err).Str("index_file", path).Msg("Error loading index file")
		return FileIndex{}
	}
	return idx
}

// SaveIndex writes the index as indented JSON. The file is replaced
// atomically through a temporary file in the same directory.
func SaveIndex(path string, idx FileIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp index: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Scan returns the absolute paths of all .pdf files under dir, matched
// case-insensitively, in sorted order. A missing dir yields no files.
// Symlinks to regular files are followed. Entries that cannot be read are
// logged and skipped; only a failure on dir itself is returned.
func Scan(dir string, log zerolog.Logger) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}

	files := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn().Str("path", path).Err(err).Msg("Skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}

		mode := d.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				log.Warn().Str("path", path).Err(err).Msg("Skipping broken link")
				return nil
			}
			mode = info.Mode().Type()
		}
		if mode.IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
