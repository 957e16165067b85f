package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"kaitiaki/internal/config"
	"kaitiaki/internal/dispatch"
	"kaitiaki/internal/logging"
	"kaitiaki/internal/queue"
	"kaitiaki/internal/scanner"
	"kaitiaki/internal/status"
)

// Daemon coordinates the scanner, the worker pool, and the API server, and
// enforces single-instance execution via a lock file.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *queue.Store
	scanner    *scanner.Scanner
	dispatcher *dispatch.Dispatcher
	aggregator *status.Aggregator

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, scan *scanner.Scanner, dispatcher *dispatch.Dispatcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || scan == nil || dispatcher == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, scanner, dispatcher, and logger")
	}

	lockPath := filepath.Join(cfg.LogDir, "kaitiakid.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "daemon"),
		store:      store,
		scanner:    scan,
		dispatcher: dispatcher,
		aggregator: status.NewAggregator(store, scan),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, recovers orphaned tasks, and launches
// the background loops plus the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another kaitiaki daemon instance is already running")
	}

	// Tasks left processing by a crash go back to pending before any
	// worker claims.
	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stuck tasks: %w", err)
	}
	if reset > 0 {
		d.logger.Warn("recovered orphaned tasks", logging.Int64("count", reset))
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return d.dispatcher.Run(groupCtx)
	})
	group.Go(func() error {
		return d.scanner.Run(groupCtx)
	})
	if d.cfg.WatchIntake {
		group.Go(func() error {
			return d.scanner.Watch(groupCtx, d.cfg.IntakeDir)
		})
	}

	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			cancel()
			_ = group.Wait()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.cancel = cancel
	d.group = group
	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("intake_dir", d.cfg.IntakeDir),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down background processing, waits for in-flight tasks, and
// releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.group != nil {
		if err := d.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("background loop error", logging.Error(err))
		}
		d.group = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the daemon loops are active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound API address, or "" when the server is off.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}
