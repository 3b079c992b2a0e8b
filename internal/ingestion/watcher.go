package ingestion

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"
)

// FileWatcher maps filesystem events on bodyfile paths to per-source notify
// channels so processors can poll immediately instead of waiting for their
// ticker. Parent directories are watched rather than the files themselves;
// watching the file directly would break on rotation.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	logger  *pterm.Logger

	mu          sync.Mutex
	subscribers map[string]chan struct{} // keyed by cleaned absolute file path
	watchedDirs map[string]int           // refcount per watched directory
	doneCh      chan struct{}
}

// NewFileWatcher creates a watcher and starts its event loop.
func NewFileWatcher(logger *pterm.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher:     w,
		logger:      logger,
		subscribers: make(map[string]chan struct{}),
		watchedDirs: make(map[string]int),
		doneCh:      make(chan struct{}),
	}

	go fw.run()

	return fw, nil
}

// Subscribe registers interest in a file path and returns the channel that
// fires when the file is written, created, or renamed. The channel has a
// buffer of one; events arriving while a poll is in flight coalesce.
func (fw *FileWatcher) Subscribe(path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if ch, ok := fw.subscribers[abs]; ok {
		return ch, nil
	}

	if fw.watchedDirs[dir] == 0 {
		if err := fw.watcher.Add(dir); err != nil {
			return nil, err
		}
		fw.logger.Debug("Watching directory for bodyfile changes", fw.logger.Args("dir", dir))
	}
	fw.watchedDirs[dir]++

	ch := make(chan struct{}, 1)
	fw.subscribers[abs] = ch
	return ch, nil
}

// Unsubscribe removes a path subscription, dropping the directory watch when
// no other subscriber needs it.
func (fw *FileWatcher) Unsubscribe(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, ok := fw.subscribers[abs]; !ok {
		return
	}
	delete(fw.subscribers, abs)

	fw.watchedDirs[dir]--
	if fw.watchedDirs[dir] <= 0 {
		delete(fw.watchedDirs, dir)
		if err := fw.watcher.Remove(dir); err != nil {
			fw.logger.Trace("Failed to remove directory watch", fw.logger.Args("dir", dir, "error", err))
		}
	}
}

// Close stops the event loop and releases all watches.
func (fw *FileWatcher) Close() error {
	err := fw.watcher.Close()
	<-fw.doneCh
	return err
}

func (fw *FileWatcher) run() {
	defer close(fw.doneCh)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fw.dispatch(filepath.Clean(event.Name))
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("File watcher error", fw.logger.Args("error", err))
		}
	}
}

func (fw *FileWatcher) dispatch(path string) {
	fw.mu.Lock()
	ch, ok := fw.subscribers[path]
	fw.mu.Unlock()

	if !ok {
		return
	}

	// Non-blocking: a pending notification already guarantees a poll.
	select {
	case ch <- struct{}{}:
	default:
	}
}
