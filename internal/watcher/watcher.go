// package watcher rescans Plex library folders when new audio files land in the downloads directory.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a directory must stay quiet before it is scanned.
const DefaultDebounce = 5 * time.Second

// ScanFunc scans dir, given relative to the watched root with forward slashes.
type ScanFunc func(ctx context.Context, dir string) error

// Service watches a directory tree and triggers one scan per changed directory.
type Service struct {
	root       string
	scanFn     ScanFunc
	logger     *log.Logger
	debounce   time.Duration
	extensions map[string]bool

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching map[string]bool
	pending  map[string]*time.Timer
	fire     chan string
}

// NewService creates a watcher for root. Only files with the given extensions
// (default .mp3) trigger scans.
func NewService(root string, scanFn ScanFunc, logger *log.Logger, extensions ...string) *Service {
	if len(extensions) == 0 {
		extensions = []string{".mp3"}
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &Service{
		root:       filepath.Clean(root),
		scanFn:     scanFn,
		logger:     logger.WithPrefix("watcher"),
		debounce:   DefaultDebounce,
		extensions: exts,
		watching:   make(map[string]bool),
		pending:    make(map[string]*time.Timer),
		fire:       make(chan string, 16),
	}
}

// SetDebounce overrides [DefaultDebounce].
func (s *Service) SetDebounce(d time.Duration) {
	s.debounce = d
}

// Start blocks until ctx is cancelled, dispatching filesystem events.
func (s *Service) Start(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to watch %s: not a directory", s.root)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	if err := s.addTree(s.root); err != nil {
		return err
	}
	s.logger.Info("watching downloads", "root", s.root, "debounce", s.debounce)

	defer s.stopTimers()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watcher stopping")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, ev)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("fsnotify error", "error", err)

		case dir := <-s.fire:
			s.scan(ctx, dir)
		}
	}
}

func (s *Service) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}

	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if !ev.Has(fsnotify.Create) {
			return
		}
		if err := s.addTree(ev.Name); err != nil {
			s.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
		}
		// Files may land before the watch is in place.
		_ = filepath.WalkDir(ev.Name, func(path string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() && s.matches(path) {
				s.schedule(ctx, filepath.Dir(path))
			}
			return nil
		})
		return
	}

	if s.matches(ev.Name) {
		s.schedule(ctx, filepath.Dir(ev.Name))
	}
}

func (s *Service) matches(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// addTree watches dir and every directory below it.
func (s *Service) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.watching[path] {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		s.watching[path] = true
		s.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// schedule (re)starts the debounce timer for dir.
func (s *Service) schedule(ctx context.Context, dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.pending[dir]; ok {
		t.Reset(s.debounce)
		return
	}
	s.pending[dir] = time.AfterFunc(s.debounce, func() {
		select {
		case s.fire <- dir:
		case <-ctx.Done():
		}
	})
}

func (s *Service) scan(ctx context.Context, dir string) {
	s.mu.Lock()
	delete(s.pending, dir)
	s.mu.Unlock()

	rel, err := s.Relative(dir)
	if err != nil {
		s.logger.Warn("skipping directory outside root", "path", dir, "error", err)
		return
	}

	s.logger.Info("new files settled, scanning", "dir", rel)
	if err := s.scanFn(ctx, rel); err != nil {
		s.logger.Error("scan failed", "dir", rel, "error", err)
	}
}

// Relative converts dir to a slash-separated path under the watched root.
func (s *Service) Relative(dir string) (string, error) {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", dir, s.root)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

func (s *Service) stopTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for dir, t := range s.pending {
		t.Stop()
		delete(s.pending, dir)
	}
}
