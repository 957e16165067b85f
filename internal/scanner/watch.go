package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"kaitiaki/internal/logging"
)

// debounceWindow batches filesystem event bursts (editors write, chmod,
// and rename in quick succession) into a single extra cycle.
const debounceWindow = 500 * time.Millisecond

// Watch subscribes to filesystem events on the intake folder and nudges
// the Run loop when documents arrive, so drops are picked up without
// waiting out the scan interval. It blocks until ctx is canceled.
func (s *Scanner) Watch(ctx context.Context, intakeDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(intakeDir); err != nil {
		return fmt.Errorf("watch %s: %w", intakeDir, err)
	}
	s.logger.Info("watching intake folder", logging.String("path", intakeDir))

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if debounce == nil {
				debounce = time.AfterFunc(debounceWindow, s.Trigger)
			} else {
				debounce.Reset(debounceWindow)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", logging.Error(err))
		}
	}
}
