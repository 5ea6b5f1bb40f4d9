package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/recera/dualgraph/internal/logging"
	"github.com/recera/dualgraph/pkg/graph"
)

// DefaultDebounce groups the burst of events an editor save produces
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the freshly loaded dataset, or the error that
// prevented loading it
type ReloadFunc func(ds graph.Dataset, err error)

// Watcher reloads a dataset file whenever it changes on disk. The parent
// directory is watched so editors that save by rename are seen too.
type Watcher struct {
	path     string
	debounce time.Duration
	log      logging.Logger
	onReload ReloadFunc
	fsw      *fsnotify.Watcher
}

// NewWatcher starts watching path. Run delivers the reloads.
func NewWatcher(path string, log logging.Logger, onReload ReloadFunc) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		log:      log.With(logging.Path(abs)),
		onReload: onReload,
		fsw:      fsw,
	}, nil
}

// SetDebounce changes the quiet period before a reload. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run blocks until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	pending := false

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.isRelevant(event) {
				continue
			}
			pending = true
			debounce.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", logging.Err(err))

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			ds, err := Load(ctx, w.path)
			if err != nil {
				w.log.Warn("reload failed", logging.Err(err))
			} else {
				w.log.Info("dataset reloaded", logging.Int("nodes", len(ds.Nodes)), logging.Int("links", len(ds.Links)))
			}
			if w.onReload != nil {
				w.onReload(ds, err)
			}
		}
	}
}

// Close stops the watcher; a running Run returns
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) isRelevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
