// Watches the database directory for external edits.

package directory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads all tables when a JSONL file in the database directory
// changes on disk and then calls onChange. Events within the debounce window
// coalesce into one reload, since editors and atomic renames produce bursts.
// Watch returns once the watcher goroutine is running; it stops when ctx is
// canceled.
func (d *Directory) Watch(ctx context.Context, dbDir string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(dbDir); err != nil {
		_ = w.Close()
		return err
	}
	const debounce = 250 * time.Millisecond
	go func() {
		defer func() { _ = w.Close() }()
		var pending *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case <-fire:
				fire = nil
				if err := d.Reload(); err != nil {
					slog.WarnContext(ctx, "Failed to reload tables", "err", err)
					continue
				}
				onChange()
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				if !strings.HasSuffix(event.Name, ".jsonl") {
					continue
				}
				if pending == nil {
					pending = time.NewTimer(debounce)
				} else {
					if !pending.Stop() {
						select {
						case <-pending.C:
						default:
						}
					}
					pending.Reset(debounce)
				}
				fire = pending.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching database directory", "err", err)
			}
		}
	}()
	return nil
}
