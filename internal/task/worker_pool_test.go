package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTaskQueue implements TaskQueueReader for testing
type mockTaskQueue struct {
	ch chan Task
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{ch: make(chan Task, 10)}
}

func (m *mockTaskQueue) GetChannel() <-chan Task {
	return m.ch
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNewWorkerPool(t *testing.T) {
	taskQueue := newMockTaskQueue()

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 5}, setupTestLogger())
	assert.Equal(t, 5, pool.workerCount)
	assert.Nil(t, pool.errorHandler)

	for _, n := range []int{0, -5} {
		pool = NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: n}, nil)
		assert.Equal(t, 1, pool.workerCount, "worker count %d", n)
	}
}

func TestWorkerPool_ProcessTask_Success(t *testing.T) {
	taskQueue := newMockTaskQueue()
	completed := make(chan struct{})

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(completed)
		return nil
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()
	pool.Start()
	defer pool.Stop()

	taskQueue.ch <- task
	waitFor(t, completed, "task completion")
}

func TestWorkerPool_ProcessTask_ErrorAndPanic(t *testing.T) {
	taskQueue := newMockTaskQueue()
	errs := make(chan error, 2)

	failing := newMockTask()
	failing.execFn = func(ctx context.Context) error { return errors.New("delivery refused") }
	panicking := newMockTask()
	panicking.execFn = func(ctx context.Context) error { panic("boom") }

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.SetErrorHandler(func(task Task, err error) { errs <- err })
	pool.Start()
	defer pool.Stop()

	taskQueue.ch <- failing
	taskQueue.ch <- panicking

	for _, want := range []string{"delivery refused", "task panic: boom"} {
		select {
		case err := <-errs:
			assert.EqualError(t, err, want)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for error handler")
		}
	}
}

func TestWorkerPool_StopCancelsRunningTask(t *testing.T) {
	taskQueue := newMockTaskQueue()
	started := make(chan struct{})
	canceled := make(chan struct{})

	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}

	pool := NewWorkerPool(taskQueue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()
	taskQueue.ch <- task
	waitFor(t, started, "task start")

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	waitFor(t, canceled, "task cancellation")
	waitFor(t, stopped, "pool stop")
}

func TestWorkerPool_ShutdownDrainsClosedQueue(t *testing.T) {
	queue := NewTaskQueue(10, setupTestLogger())
	var ran int32
	for i := 0; i < 5; i++ {
		task := newMockTask()
		task.execFn = func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}
		require.NoError(t, queue.Enqueue(task))
	}
	queue.Close()

	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 2}, setupTestLogger())
	pool.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	assert.Equal(t, int32(5), atomic.LoadInt32(&ran))
}

func TestWorkerPool_ShutdownDeadline(t *testing.T) {
	queue := NewTaskQueue(10, setupTestLogger())
	started := make(chan struct{})
	task := newMockTask()
	task.execFn = func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	require.NoError(t, queue.Enqueue(task))
	queue.Close()

	pool := NewWorkerPool(queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.Start()
	waitFor(t, started, "task start")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
}
