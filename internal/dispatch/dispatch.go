package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kaitiaki/internal/config"
	"kaitiaki/internal/logging"
	"kaitiaki/internal/processors"
	"kaitiaki/internal/queue"
)

// Processor handles one claimed task and returns its result JSON. Errors
// are classified through the processors sentinels: permanent errors land
// the task in terminal failed, anything else is retried under the
// configured attempt ceiling.
type Processor interface {
	Process(ctx context.Context, task *queue.Task) (string, error)
}

// Dispatcher runs a pool of workers that claim tasks and route them to
// registered processors by task type.
type Dispatcher struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger

	mu         sync.Mutex
	processors map[queue.TaskType]Processor
}

// New constructs a Dispatcher with no processors registered.
func New(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "dispatch"),
		processors: make(map[queue.TaskType]Processor),
	}
}

// Register binds a processor to a task type. Workers only claim task types
// that have a registered processor.
func (d *Dispatcher) Register(taskType queue.TaskType, processor Processor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processors[taskType] = processor
}

// Run starts the worker pool and blocks until ctx is canceled. In-flight
// tasks finish before Run returns; their outcome is persisted.
func (d *Dispatcher) Run(ctx context.Context) error {
	types := d.registeredTypes()
	if len(types) == 0 {
		return errors.New("dispatch: no processors registered")
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < d.cfg.Workers.Count; i++ {
		workerID := fmt.Sprintf("worker-%d", i+1)
		group.Go(func() error {
			return d.workerLoop(groupCtx, workerID, types)
		})
	}
	return group.Wait()
}

func (d *Dispatcher) workerLoop(ctx context.Context, workerID string, types []queue.TaskType) error {
	logger := d.logger.With(logging.String(logging.FieldWorkerID, workerID))
	poll := time.Duration(d.cfg.PollIntervalSeconds) * time.Second

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		task, err := d.store.ClaimNext(ctx, workerID, types...)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("claim failed", logging.Error(err))
			if !sleep(ctx, poll) {
				return nil
			}
			continue
		}
		if task == nil {
			if !sleep(ctx, poll) {
				return nil
			}
			continue
		}

		d.handle(ctx, logger, workerID, task)
	}
}

// handle runs a claimed task to completion. The processor context detaches
// from the worker context so shutdown does not abort work mid-flight; the
// task timeout still applies.
func (d *Dispatcher) handle(ctx context.Context, logger *slog.Logger, workerID string, task *queue.Task) {
	taskLogger := logger.With(
		logging.String(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldTaskType, string(task.Type)),
		logging.String(logging.FieldDocumentID, task.DocumentID),
		logging.Int(logging.FieldAttempt, task.Attempts+1),
	)

	processor := d.processorFor(task.Type)
	if processor == nil {
		d.resolveFailure(taskLogger, task,
			processors.Wrap(processors.ErrUnsupported, string(task.Type), "dispatch", "no processor registered", nil))
		return
	}

	timeout := time.Duration(d.cfg.TaskTimeoutSeconds) * time.Second
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	started := time.Now()
	result, err := processor.Process(taskCtx, task)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = processors.Wrap(processors.ErrTimeout, string(task.Type), "process",
				fmt.Sprintf("exceeded %s", timeout), err)
		}
		d.resolveFailure(taskLogger, task, err)
		return
	}

	if err := d.store.Complete(context.WithoutCancel(ctx), task.ID, result); err != nil {
		taskLogger.Error("complete failed", logging.Error(err))
		return
	}
	taskLogger.Info("task completed", logging.Duration("elapsed", time.Since(started)))
}

func (d *Dispatcher) resolveFailure(logger *slog.Logger, task *queue.Task, cause error) {
	retry := !processors.Permanent(cause)
	if err := d.store.Fail(context.Background(), task.ID, cause, retry); err != nil {
		logger.Error("fail transition failed", logging.Error(err))
		return
	}
	if retry {
		logger.Warn("task failed, will retry", logging.Error(cause))
	} else {
		logger.Error("task failed permanently", logging.Error(cause))
	}
}

func (d *Dispatcher) processorFor(taskType queue.TaskType) Processor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processors[taskType]
}

func (d *Dispatcher) registeredTypes() []queue.TaskType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]queue.TaskType, 0, len(d.processors))
	for taskType := range d.processors {
		types = append(types, taskType)
	}
	return types
}

// sleep waits for the interval or context cancellation, reporting whether
// the caller should keep looping.
func sleep(ctx context.Context, interval time.Duration) bool {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
