package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWatcher(t *testing.T, f *fixture) {
	t.Helper()
	w, err := NewWatcher(f.syncer, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatcher_SyncsNewFiles(t *testing.T) {
	f := newFixture(t, Config{})
	runWatcher(t, f)

	a := f.write(t, "a.pdf", "a")
	f.write(t, "ignored.txt", "x")

	require.Eventually(t, func() bool {
		_, ok := LoadIndex(f.index, f.syncer.log)[a]
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	calls := f.ingester.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, a, calls[0].Source)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	f := newFixture(t, Config{})
	runWatcher(t, f)

	sub := filepath.Join(f.dir, "manuals")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	// Wait for the first sync triggered by the directory itself so the
	// directory is being watched before the file appears.
	require.Eventually(t, func() bool {
		return f.syncer.LastSummary() != nil
	}, 5*time.Second, 20*time.Millisecond)

	p := f.write(t, "manuals/setup.pdf", "setup")
	require.Eventually(t, func() bool {
		_, ok := LoadIndex(f.index, f.syncer.log)[p]
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_FollowUpAfterBusySync(t *testing.T) {
	f := newFixture(t, Config{})
	f.ingester.block = make(chan struct{})
	runWatcher(t, f)

	a := f.write(t, "a.pdf", "a")

	// The first sync blocks inside ingestion.
	require.Eventually(t, f.syncer.Running, 5*time.Second, 10*time.Millisecond)

	b := f.write(t, "b.pdf", "b")
	// Let the debounced sync for b find the lock taken.
	time.Sleep(200 * time.Millisecond)
	close(f.ingester.block)

	require.Eventually(t, func() bool {
		idx := LoadIndex(f.index, f.syncer.log)
		_, okA := idx[a]
		_, okB := idx[b]
		return okA && okB
	}, 5*time.Second, 20*time.Millisecond)
}
