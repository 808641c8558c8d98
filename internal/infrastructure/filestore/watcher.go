package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of events an editor produces on save.
const defaultDebounce = 200 * time.Millisecond

// Logger is the subset of the application logger the watcher uses.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Watcher calls onChange after the document file is created, written or
// replaced. The parent directory is watched rather than the file itself,
// because atomic saves replace the inode.
type Watcher struct {
	path     string
	onChange func()
	logger   Logger
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewWatcher creates a watcher for path. Call Start to begin delivering events.
func NewWatcher(path string, onChange func(), logger Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		onChange: onChange,
		logger:   logger,
		debounce: defaultDebounce,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start watches the file's directory until ctx is cancelled or Close is called.
// The directory must exist.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("site config file changed", "path", event.Name, "op", event.Op.String())
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("site config watcher error", "error", err)
		}
	}
}

// schedule fires onChange once the event burst has been quiet for the debounce period.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
		default:
			w.onChange()
		}
	})
}
