// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when the files that decide module linking
// change: package manifests, module manifests, podspecs and Gradle builds.
//
// node_modules trees are too large to watch recursively, so each root is
// registered to a bounded depth. Events within the debounce window are
// coalesced so the callback fires once with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modlink/modlink/pkg/types"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period after the last event before the
// callback fires. Package managers write many files per install.
const defaultDebounce = 300 * time.Millisecond

var (
	// ErrNoRoots is returned by New when no root directory exists.
	ErrNoRoots = errors.New("watch: no existing directory to watch")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watch: Run called more than once")

	defaultPatterns = []string{
		"**/package.json",
		"**/expo-module.config.json",
		"**/unimodule.json",
		"**/*.podspec",
		"**/build.gradle",
		"**/build.gradle.kts",
	}
)

type (
	// Root is a directory watched to a fixed depth.
	Root struct {
		Dir types.FilesystemPath
		// Depth is the number of directory levels below Dir that are
		// watched. Zero watches Dir alone.
		Depth int
	}

	// Config holds the parameters for a Watcher.
	Config struct {
		// Roots are the directories to watch. Missing ones are skipped.
		Roots []Root

		// Patterns are doublestar globs matched against paths relative to
		// their root. Empty selects DefaultPatterns.
		Patterns []string

		// Debounce is the quiet period after the last event before OnChange
		// fires. Zero or negative values fall back to the default.
		Debounce time.Duration

		// OnChange receives the sorted absolute paths that changed. A nil
		// callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error
	}

	// Watcher monitors the roots and fires a debounced callback when a
	// matching file changes or a package appears or disappears directly in a
	// root. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		debounce time.Duration
		started  atomic.Bool

		mu   sync.Mutex
		dirs map[string]watchedDir
	}

	watchedDir struct {
		root  string
		level int
		depth int
	}
)

// DefaultPatterns returns a copy of the patterns used when Config.Patterns is
// empty.
func DefaultPatterns() []string {
	return slices.Clone(defaultPatterns)
}

// New validates cfg and registers every directory of each root down to its
// depth.
func New(cfg Config) (*Watcher, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid pattern %q", pat)
		}
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: patterns,
		debounce: debounce,
		dirs:     make(map[string]watchedDir),
	}

	for _, root := range cfg.Roots {
		dir, absErr := filepath.Abs(string(root.Dir))
		if absErr != nil || !isDir(dir) {
			slog.Debug("not watching missing directory", "path", root.Dir)
			continue
		}
		if err := w.addTree(dir, dir, 0, max(root.Depth, 0)); err != nil {
			fsw.Close() //nolint:errcheck // best-effort cleanup
			return nil, err
		}
	}
	if len(w.dirs) == 0 {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		return nil, ErrNoRoots
	}
	return w, nil
}

// WatchedDirs returns the sorted directories currently registered.
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Sorted(maps.Keys(w.dirs))
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after cancellation when scheduled by time.AfterFunc.
	// A callback still running when the timer fires causes a retry, so
	// pending paths are never dropped.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			slog.Debug("previous run still in progress, retrying")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			slog.Error("watch callback failed", "error", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			slog.Warn("failed to close file watcher", "error", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if !w.handle(evt) {
				continue
			}
			mu.Lock()
			pending[evt.Name] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			slog.Warn("file watcher error", "error", err)
		}
	}
}

// handle keeps the registered directories in step with evt and reports
// whether evt is a change the callback should see.
func (w *Watcher) handle(evt fsnotify.Event) bool {
	if evt.Op == fsnotify.Chmod {
		return false
	}

	w.mu.Lock()
	parent, ok := w.dirs[filepath.Dir(evt.Name)]
	w.mu.Unlock()
	if !ok {
		return false
	}
	// Entries directly in a search path are packages being installed or
	// removed.
	packageEntry := parent.level == 0 && parent.depth > 0

	if evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename) {
		if w.forget(evt.Name) {
			return packageEntry || w.matches(parent.root, evt.Name)
		}
	}

	if evt.Has(fsnotify.Create) && parent.level < parent.depth && isDir(evt.Name) {
		if !skipDir(filepath.Base(evt.Name), parent.level+1) {
			if err := w.addTree(parent.root, evt.Name, parent.level+1, parent.depth); err != nil {
				slog.Warn("failed to watch new directory", "path", evt.Name, "error", err)
			}
		}
		return packageEntry
	}

	return w.matches(parent.root, evt.Name)
}

// addTree registers dir and its subdirectories down to depth.
func (w *Watcher) addTree(root, dir string, level, depth int) error {
	if err := w.fsw.Add(dir); err != nil {
		if isFatalFsnotifyError(err) {
			return fmt.Errorf("watch: add directory %q: %w", dir, err)
		}
		slog.Debug("skipping unwatchable directory", "path", dir, "error", err)
		return nil
	}
	w.mu.Lock()
	w.dirs[dir] = watchedDir{root: root, level: level, depth: depth}
	w.mu.Unlock()

	if level >= depth {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Debug("skipping unreadable directory", "path", dir, "error", err)
		return nil
	}
	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		if skipDir(entry.Name(), level+1) || !isDirEntry(entry, child) {
			continue
		}
		if err := w.addTree(root, child, level+1, depth); err != nil {
			return err
		}
	}
	return nil
}

// forget drops path and everything below it, reporting whether path itself
// was a watched directory.
func (w *Watcher) forget(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, watched := w.dirs[path]
	prefix := path + string(filepath.Separator)
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.dirs, dir)
		}
	}
	return watched
}

func (w *Watcher) matches(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range w.patterns {
		if matched, matchErr := doublestar.Match(pat, rel); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// skipDir excludes hidden directories and nested installs, which discovery
// never reads.
func skipDir(name string, level int) bool {
	return strings.HasPrefix(name, ".") || (level > 1 && name == "node_modules")
}

func isDirEntry(entry fs.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	return entry.Type()&fs.ModeSymlink != 0 && isDir(path)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
