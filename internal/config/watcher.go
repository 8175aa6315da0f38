package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes a source and emits its raw contents on a channel.
// Implementations emit the current contents immediately.
type Watcher interface {
	Watch(ctx context.Context) (<-chan []byte, error)
}

// FileWatcher watches a file for changes and emits its contents.
type FileWatcher struct {
	path string
}

// NewFileWatcher creates a new FileWatcher for the given file path.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: path}
}

// Watch begins watching the file and returns a channel that emits the file
// contents whenever the file is written or replaced. The current contents are
// emitted immediately. The parent directory is watched so that editors that
// save by renaming a temporary file are seen.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if _, err := os.Stat(w.path); err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", w.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	target := filepath.Clean(w.path)
	out := make(chan []byte)

	go func() {
		defer close(out)
		defer watcher.Close()

		if data, err := os.ReadFile(w.path); err == nil && !send(ctx, out, data) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				data, err := os.ReadFile(w.path)
				if err != nil {
					continue
				}
				if !send(ctx, out, data) {
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}

// ChannelWatcher serves contents pushed by the caller, such as documents
// received over a control socket.
type ChannelWatcher struct {
	ch <-chan []byte
}

// NewChannelWatcher creates a ChannelWatcher over ch. The first value sent on
// ch is treated as the initial contents.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// Watch forwards values from the wrapped channel until it closes or ctx is
// done.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-w.ch:
				if !ok || !send(ctx, out, v) {
					return
				}
			}
		}
	}()
	return out, nil
}

// send delivers data unless ctx ends first.
func send(ctx context.Context, out chan<- []byte, data []byte) bool {
	select {
	case out <- data:
		return true
	case <-ctx.Done():
		return false
	}
}
