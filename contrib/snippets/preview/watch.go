package preview

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/couchbase/docs-sdk-go/contrib/snippets"
)

// Watch reloads files under the server root as they change, until ctx is
// done. Directories created while watching are watched too.
func (s *Server) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := s.addDirs(watcher, s.root); err != nil {
		return err
	}
	s.log.Info().Str("root", s.root).Msg("Watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("Watcher error")
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(watcher, event)
		}
	}
}

func (s *Server) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := s.addDirs(watcher, event.Name); err != nil {
				s.log.Warn().Err(err).Str("dir", event.Name).Msg("Failed to watch directory")
			}
			return
		}
	}

	if !s.wanted(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		s.Remove(event.Name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		s.Reload(event.Name)
	}
}

// wanted reports whether Scan would have parsed path.
func (s *Server) wanted(path string) bool {
	if !s.opts.Wants(path) {
		return false
	}

	rel, err := filepath.Rel(s.root, filepath.Dir(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if snippets.SkipDir(part) {
			return false
		}
	}
	return true
}

func (s *Server) addDirs(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != s.root && snippets.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
