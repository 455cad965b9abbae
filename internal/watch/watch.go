// Package watch feeds images dropped into a directory to a handler, one at a
// time, after their writes settle.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long a path must stay quiet before it is handled.
const DefaultDelay = 500 * time.Millisecond

// producedWindow is how long events on a file the handler wrote are ignored.
const producedWindow = 2 * time.Second

// Handler processes one settled path and returns the file it wrote, if any,
// so the write is not mistaken for a new arrival.
type Handler func(path string) (output string, err error)

type Watcher struct {
	logger   *log.Logger
	match    func(path string) bool
	handle   Handler
	delay    time.Duration
	fsw      *fsnotify.Watcher
	pending  map[string]*time.Timer
	produced map[string]time.Time
	ready    chan string
	done     chan struct{}
}

// New watches dir (and its subdirectories when recursive) for files accepted
// by match.
func New(dir string, recursive bool, match func(string) bool, handle Handler, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dirs := []string{dir}
	if recursive {
		dirs, err = subdirs(dir)
		if err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch folder %s: %w", d, err)
		}
		logger.Debug("watching folder", "dir", d)
	}

	return &Watcher{
		logger:   logger,
		match:    match,
		handle:   handle,
		delay:    DefaultDelay,
		fsw:      fsw,
		pending:  make(map[string]*time.Timer),
		produced: make(map[string]time.Time),
		ready:    make(chan string),
		done:     make(chan struct{}),
	}, nil
}

// SetDelay changes the settle delay; call before Run.
func (w *Watcher) SetDelay(d time.Duration) {
	w.delay = d
}

// Run blocks until ctx ends or the handler fails, calling the handler from
// this goroutine only. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	defer func() {
		for _, timer := range w.pending {
			timer.Stop()
		}
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") || !w.match(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)

		case path := <-w.ready:
			if _, ok := w.pending[path]; !ok {
				// A reset timer that had already fired.
				continue
			}
			delete(w.pending, path)
			if at, ok := w.produced[path]; ok {
				if time.Since(at) < producedWindow {
					continue
				}
				delete(w.produced, path)
			}
			output, err := w.handle(path)
			if output != "" {
				w.produced[output] = time.Now()
			}
			if err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) schedule(path string) {
	if timer, exists := w.pending[path]; exists {
		timer.Reset(w.delay)
		return
	}
	w.pending[path] = time.AfterFunc(w.delay, func() {
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func subdirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}
