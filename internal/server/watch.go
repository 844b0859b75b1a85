package server

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// staleMarker is what the corpus watcher calls when the source directory
// changes. *pipeline.Pipeline satisfies it.
type staleMarker interface {
	MarkStale()
}

// WatchCorpus watches dir for PDF changes and flags the index as stale when
// one appears, changes, or disappears. Queries keep working against the old
// snapshot; /api/ready surfaces the staleness so an operator (or the UI) can
// trigger a re-ingestion. Blocks until the context is cancelled.
func WatchCorpus(ctx context.Context, dir string, marker staleMarker, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	log.Info("watching corpus directory", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".pdf") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Info("corpus changed, marking index stale",
				slog.String("file", filepath.Base(event.Name)),
				slog.String("op", event.Op.String()),
			)
			marker.MarkStale()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("corpus watcher error", slog.Any("error", err))
		}
	}
}
