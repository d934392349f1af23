package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the watcher waits for changes to settle
const DefaultDebounce = 2 * time.Second

// Watcher re-syncs the data source when PDFs in it change. Bursts of events
// are coalesced into a single sync after the debounce interval.
type Watcher struct {
	syncer   *Syncer
	root     string
	debounce time.Duration
	log      zerolog.Logger
	fsw      *fsnotify.Watcher

	// retry receives a request for a follow-up sync when a debounced sync
	// found another one still running
	retry chan struct{}
	runs  sync.WaitGroup
}

// NewWatcher starts watching the syncer's data source and all of its
// subdirectories. Events are not processed until Run is called.
func NewWatcher(s *Syncer, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	root, err := filepath.Abs(s.cfg.DataSource)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		syncer:   s,
		root:     root,
		debounce: debounce,
		log:      s.log.With().Str("component", "watcher").Logger(),
		fsw:      fsw,
		retry:    make(chan struct{}, 1),
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable directory")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("Failed to watch directory")
		}
		return nil
	})
}

// Run processes file events until ctx is cancelled, then waits for any
// sync it started and closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		w.runs.Wait()
		_ = w.fsw.Close()
	}()

	w.log.Info().Str("data_source", w.root).Dur("debounce", w.debounce).Msg("Watching data source")

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
		} else {
			timer.Reset(w.debounce)
		}
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				schedule()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("File watcher error")

		case <-w.retry:
			schedule()

		case <-fire:
			fire = nil
			w.runs.Add(1)
			go w.sync(ctx)
		}
	}
}

// relevant reports whether event may change the set of synced files. New
// directories are watched as they appear.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
			}
			return true
		}
	}
	if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func (w *Watcher) sync(ctx context.Context) {
	defer w.runs.Done()

	summary, err := w.syncer.Sync(ctx)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		select {
		case w.retry <- struct{}{}:
		default:
		}
	case err != nil:
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Triggered sync failed")
		}
	default:
		w.log.Info().
			Int("new", summary.New).
			Int("updated", summary.Updated).
			Int("pruned", summary.Pruned).
			Msg("Triggered sync complete")
	}
}
