package indexer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	hash, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)

	big := filepath.Join(dir, "big.pdf")
	data := []byte(strings.Repeat("x", hashBlockSize*3+17))
	require.NoError(t, os.WriteFile(big, data, 0o644))
	h1, err := HashFile(big)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	data[len(data)-1] = 'y'
	require.NoError(t, os.WriteFile(big, data, 0o644))
	h2, err := HashFile(big)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	_, err = HashFile(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt", "nested/deep/c.pdf", "nested/readme.md"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	}

	files, err := Scan(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.PDF"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "nested", "deep", "c.pdf"),
	}, files)

	files, err = Scan(filepath.Join(dir, "does-not-exist"), zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestScan_Symlinks(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "shared.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "linked.pdf")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone.pdf"), filepath.Join(dir, "broken.pdf")))

	files, err := Scan(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.pdf"),
		filepath.Join(dir, "linked.pdf"),
	}, files)
}

func TestScan_UnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.MkdirAll(locked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(locked, "hidden.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	files, err := Scan(dir, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.pdf")}, files)
}

func TestLoadIndex(t *testing.T) {
	dir := t.TempDir()
	log := zerolog.Nop()

	assert.Empty(t, LoadIndex(filepath.Join(dir, "absent.json"), log))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Empty(t, LoadIndex(bad, log))

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
  "/data/a.pdf": {"hash": "abc", "size": 10, "modified_time": 1700000000.5,
    "ingested_at": "2025-01-01T00:00:00Z", "document_title": "a",
    "chunks_created": 3, "category": "general", "doc_type": "documentation",
    "tags": ["general"]}
}`), 0o644))
	idx := LoadIndex(good, log)
	require.Len(t, idx, 1)
	entry := idx["/data/a.pdf"]
	assert.Equal(t, "abc", entry.Hash)
	assert.Equal(t, 1700000000.5, entry.ModifiedTime)
	assert.Equal(t, []string{"general"}, entry.Tags)
}

func TestSaveIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "index.json")

	idx := FileIndex{
		"/data/b.pdf": {Hash: "b", DocumentTitle: "b", Tags: []string{"x"}},
		"/data/a.pdf": {Hash: "a", DocumentTitle: "a", Tags: []string{}},
	}
	require.NoError(t, SaveIndex(path, idx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"/data/a.pdf\": {\n    \"hash\": \"a\"")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")

	loaded := LoadIndex(path, zerolog.Nop())
	assert.Equal(t, idx, loaded)
	assert.Equal(t, []string{"/data/a.pdf", "/data/b.pdf"}, loaded.Paths())
}

func TestIndexLock(t *testing.T) {
	var l IndexLock
	assert.False(t, l.Held())
	assert.True(t, l.TryAcquire())
	assert.True(t, l.Held())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
}
