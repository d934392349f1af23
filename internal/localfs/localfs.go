// Package localfs exposes read-only views of local folders: a directory
// listing and a concatenated dump of the source files under a folder.
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotDirectory is returned when a path exists but is not a directory
var ErrNotDirectory = errors.New("not a directory")

// CodeExtensions are the file extensions ReadFolder includes
var CodeExtensions = []string{
	".mjs", ".tf", ".js", ".ts", ".py", ".go", ".java", ".c",
	".cpp", ".h", ".html", ".css", ".scss", ".json", ".yaml", ".yml", ".xml",
}

// SkippedDirs are directory names ReadFolder never descends into
var SkippedDirs = []string{"node_modules", ".git", ".terraform", ".idea"}

// Entry is one item of a directory listing
type Entry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// ExpandHome replaces a leading ~ with the current user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func openDir(path string) (string, error) {
	dir, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return dir, nil
}

// ListFolder lists the entries of a directory sorted by name
func ListFolder(path string) ([]Entry, error) {
	dir, err := openDir(path)
	if err != nil {
		return nil, err
	}

	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		e := Entry{Name: item.Name(), IsDir: item.IsDir()}
		if info, err := item.Info(); err == nil && !item.IsDir() {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ReadFolder concatenates every source file under path. Each file is
// preceded by a "# relative/path" heading. Files that cannot be read are
// skipped.
func ReadFolder(path string) (string, error) {
	root, err := openDir(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if p != root && isSkippedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasCodeExtension(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = d.Name()
		}
		fmt.Fprintf(&b, "\n\n# %s\n\n", filepath.ToSlash(rel))
		b.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func isSkippedDir(name string) bool {
	for _, s := range SkippedDirs {
		if name == s {
			return true
		}
	}
	return false
}

func hasCodeExtension(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range CodeExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
