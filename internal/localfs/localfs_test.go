package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestListFolder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.txt":      "12345",
		"a/inner.go": "package a",
	})

	entries, err := ListFolder(root)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "a", IsDir: true},
		{Name: "b.txt", Size: 5},
	}, entries)

	_, err = ListFolder(filepath.Join(root, "b.txt"))
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = ListFolder(filepath.Join(root, "missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestReadFolder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":                 "package main",
		"infra/main.tf":           "resource {}",
		"notes.md":                "skip me",
		"node_modules/lib/x.js":   "skip",
		".git/config.json":        "skip",
		"web/.terraform/mod.tf":   "skip",
		"web/app.ts":              "export {}",
		"web/.idea/workspace.xml": "skip",
	})

	out, err := ReadFolder(root)
	require.NoError(t, err)
	assert.Equal(t,
		"\n\n# infra/main.tf\n\nresource {}"+
			"\n\n# main.go\n\npackage main"+
			"\n\n# web/app.ts\n\nexport {}",
		out)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/projects")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "projects"), got)

	got, err = ExpandHome("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = ExpandHome("~user/x")
	require.NoError(t, err)
	assert.Equal(t, "~user/x", got)
}
