package manifest

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/othala/internal/models"
)

// ChangeCallback is called after a watcher-driven rebuild of the derived
// indexes, with the manifest that was rebuilt.
type ChangeCallback func(m *models.Manifest)

// Watch observes the manifest file for out-of-band replacement (a restore
// from backup, a manual edit) and rebuilds the derived indexes when it
// changes, until ctx is cancelled. Events are debounced because an atomic
// replace surfaces as a Create/Rename pair. Rebuilds triggered by the
// request path land here too; RebuildIndex is idempotent so the extra pass
// is harmless.
func Watch(ctx context.Context, store Store, manifestPath string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(manifestPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(manifestPath)

	logger.Info("manifest watcher: started", slog.String("path", target))

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(200 * time.Millisecond)
			debounceCh = debounce.C
		} else {
			debounce.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("manifest watcher: stopped")
			return nil

		case <-debounceCh:
			m, loadErr := store.Load()
			if loadErr != nil {
				logger.Warn("manifest watcher: load failed", slog.String("error", loadErr.Error()))
				continue
			}
			if m == nil {
				continue
			}
			if rbErr := store.RebuildIndex(m); rbErr != nil {
				logger.Warn("manifest watcher: rebuild failed", slog.String("error", rbErr.Error()))
				continue
			}
			logger.Debug("manifest watcher: derived indexes rebuilt",
				slog.String("session_id", m.SessionID),
				slog.Int64("version", m.Version))
			if cb != nil {
				cb(m)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("manifest watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
