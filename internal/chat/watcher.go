package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"spacer/internal/logging"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// StateWatcher notices edits made to project files outside the session,
// such as spacer.yaml changed in an editor while the chat is open. Events
// only mark a file pending; Drain compares content hashes so the session's
// own writes and no-op saves are not reported.
type StateWatcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	known   map[string]uint64 // tracked file -> last acknowledged hash
	pending map[string]bool
	dirs    map[string]bool

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewStateWatcher tracks the given files. Their parent directories are
// watched, so files that do not exist yet are picked up when created.
func NewStateWatcher(files ...string) (*StateWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	sw := &StateWatcher{
		watcher: w,
		known:   make(map[string]uint64),
		pending: make(map[string]bool),
		dirs:    make(map[string]bool),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, f := range files {
		if err := sw.Track(f); err != nil {
			logging.SessionWarn("watcher: cannot track %s: %v", f, err)
		}
	}
	return sw, nil
}

// Track adds a file and records its current content as acknowledged.
func (sw *StateWatcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.known[abs] = hashFile(abs)
	if sw.dirs[dir] {
		return nil
	}
	if err := sw.watcher.Add(dir); err != nil {
		return err
	}
	sw.dirs[dir] = true
	logging.SessionDebug("watcher: watching %s", dir)
	return nil
}

// Start runs the event loop until ctx is done or Close is called.
func (sw *StateWatcher) Start(ctx context.Context) {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return
	}
	sw.running = true
	sw.mu.Unlock()

	go sw.run(ctx)
}

func (sw *StateWatcher) run(ctx context.Context) {
	defer close(sw.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopCh:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handleEvent(event)
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			logging.SessionWarn("watcher error: %v", err)
		}
	}
}

func (sw *StateWatcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, tracked := sw.known[event.Name]; tracked {
		sw.pending[event.Name] = true
	}
}

// Drain returns the tracked files whose content changed since they were
// last acknowledged, and acknowledges them.
func (sw *StateWatcher) Drain() []string {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	var changed []string
	for path := range sw.pending {
		h := hashFile(path)
		if h != sw.known[path] {
			sw.known[path] = h
			changed = append(changed, path)
		}
		delete(sw.pending, path)
	}
	sort.Strings(changed)
	return changed
}

// Acknowledge records path's current content as known. The session calls
// it after its own writes.
func (sw *StateWatcher) Acknowledge(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if _, tracked := sw.known[abs]; tracked {
		sw.known[abs] = hashFile(abs)
	}
}

// Close stops the event loop and releases the watcher.
func (sw *StateWatcher) Close() error {
	sw.mu.Lock()
	running := sw.running
	sw.running = false
	sw.mu.Unlock()

	if running {
		close(sw.stopCh)
		<-sw.doneCh
	}
	return sw.watcher.Close()
}

// hashFile returns the content hash of path, 0 when it is missing.
func hashFile(path string) uint64 {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.SessionWarn("watcher: read %s: %v", path, err)
		}
		return 0
	}
	return xxhash.Sum64(data)
}
