package task

import (
	"context"
	"log/slog"
)

// RunnerConfig holds configuration for the task runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// Runner owns a task queue and the worker pool draining it.
type Runner struct {
	queue  *TaskQueue
	pool   *WorkerPool
	logger *slog.Logger
}

// NewRunner creates a runner. Call Start before submitting work that must
// make progress.
func NewRunner(config RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	pool.SetErrorHandler(func(task Task, err error) {
		logger.Warn("background task failed",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
	})

	return &Runner{
		queue:  queue,
		pool:   pool,
		logger: logger.With("component", "task_runner"),
	}
}

// Queue returns the writer side of the runner's queue.
func (r *Runner) Queue() TaskQueueWriter {
	return r.queue
}

// Submit enqueues a task without blocking.
func (r *Runner) Submit(task Task) error {
	return r.queue.Enqueue(task)
}

// Start launches the worker pool.
func (r *Runner) Start() {
	r.pool.Start()
}

// Stop closes the queue and lets the workers deliver what is already queued
// until ctx ends.
func (r *Runner) Stop(ctx context.Context) error {
	r.queue.Close()
	if err := r.pool.Shutdown(ctx); err != nil {
		r.logger.Warn("task runner stopped before the queue drained", "error", err)
		return err
	}
	r.logger.Info("task runner stopped")
	return nil
}
