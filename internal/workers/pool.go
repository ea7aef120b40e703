// Package workers provides a bounded worker pool for parallel backtest
// trials.
package workers

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task represents a unit of work to be processed
type Task interface {
	Execute() error
}

// TaskFunc is a function that can be used as a Task
type TaskFunc func() error

func (f TaskFunc) Execute() error { return f() }

// Pool manages a fixed set of worker goroutines draining a task queue.
// Trials submitted to the pool are independent; callers own any aggregation.
type Pool struct {
	logger    *zap.Logger
	name      string
	taskQueue chan Task
	wg        sync.WaitGroup

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	tasksCompleted  atomic.Int64
	tasksFailed     atomic.Int64
	panicsRecovered atomic.Int64
}

// PoolError represents a pool error
type PoolError struct {
	Message string
}

func (e *PoolError) Error() string { return e.Message }

var (
	ErrPoolStopped = &PoolError{Message: "pool is stopped"}
	ErrQueueFull   = &PoolError{Message: "task queue is full"}
)

// NewPool creates a worker pool with the given concurrency. Zero or negative
// workers defaults to the CPU count.
func NewPool(logger *zap.Logger, name string, numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = numWorkers * 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger:    logger,
		name:      name,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}

	p.running.Store(true)
	p.logger.Debug("starting worker pool",
		zap.String("name", name),
		zap.Int("workers", numWorkers),
		zap.Int("queue_size", queueSize),
	)

	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.execute(id, task)
		}
	}
}

func (p *Pool) execute(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.panicsRecovered.Add(1)
			p.tasksFailed.Add(1)
			p.logger.Error("worker recovered from panic",
				zap.Int("worker_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	if err := task.Execute(); err != nil {
		p.tasksFailed.Add(1)
		p.logger.Debug("task failed", zap.Int("worker_id", id), zap.Error(err))
		return
	}
	p.tasksCompleted.Add(1)
}

// Submit adds a task to the queue, blocking while the queue is full.
func (p *Pool) Submit(task Task) error {
	if !p.running.Load() {
		return ErrPoolStopped
	}
	select {
	case p.taskQueue <- task:
		return nil
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// SubmitFunc submits a function as a task.
func (p *Pool) SubmitFunc(fn func() error) error {
	return p.Submit(TaskFunc(fn))
}

// Stop drains no further work and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	if !p.running.Swap(false) {
		return
	}
	close(p.taskQueue)
	p.wg.Wait()
	p.cancel()

	p.logger.Debug("worker pool stopped",
		zap.String("name", p.name),
		zap.Int64("completed", p.tasksCompleted.Load()),
		zap.Int64("failed", p.tasksFailed.Load()),
	)
}

// Completed returns the number of successfully executed tasks.
func (p *Pool) Completed() int64 {
	return p.tasksCompleted.Load()
}

// Failed returns the number of failed tasks, including recovered panics.
func (p *Pool) Failed() int64 {
	return p.tasksFailed.Load()
}
