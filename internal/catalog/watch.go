package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/m3rciful/bookbot/core/logger"
)

// Watch reloads the catalog whenever the backing file is replaced or edited
// by another process. It blocks until ctx is done.
func (s *JSONStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: watch: %w", err)
	}
	defer w.Close()

	// Atomic renames replace the inode, so watch the directory instead of the file.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", dir, err)
	}
	base := filepath.Base(s.path)

	logger.Catalog.Debug("catalog watch started",
		slog.String("event", "catalog.watch"),
		slog.String("path", s.path),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			changed, err := s.Reload()
			if err != nil {
				logger.Catalog.Warn("catalog reload failed",
					slog.String("event", "catalog.reload"),
					slog.String("path", s.path),
					slog.String("err", err.Error()),
				)
				continue
			}
			if changed {
				n, _ := s.Count(ctx)
				logger.Catalog.Info("catalog reloaded",
					slog.String("event", "catalog.reload"),
					slog.String("path", s.path),
					slog.Int("books", n),
				)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Catalog.Warn("catalog watch error",
				slog.String("event", "catalog.watch"),
				slog.String("err", err.Error()),
			)
		}
	}
}
