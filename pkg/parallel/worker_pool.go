// Package parallel runs independent tasks on a bounded set of goroutines.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
)

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	logger    logging.Logger
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // guards closed and the send on taskQueue
	closed    bool
}

// NewWorkerPool starts a pool with the given number of workers. Zero or
// less means one worker per CPU.
func NewWorkerPool(workers int, logger logging.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	wp := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
		logger:    logging.OrDefault(logger).With(logging.Component("parallel")),
	}
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.run(task)
	}
}

// run executes task, logging a panic instead of taking the worker down.
func (wp *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("task panicked", logging.String("panic", fmt.Sprint(r)))
		}
	}()
	task()
}

// Submit queues task. It returns false once the pool is closed.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	wp.taskQueue <- task
	return true
}

// Close stops accepting tasks and waits for queued ones to finish. It is
// safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// ForEach calls fn(i) for every i in [0, n) using up to workers goroutines
// and returns when all calls are done. Calls must not depend on each other;
// writing to slot i of a preallocated slice is the intended use.
func ForEach(n, workers int, logger logging.Logger, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || n == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	if workers > n {
		workers = n
	}

	wp := NewWorkerPool(workers, logger)
	for i := 0; i < n; i++ {
		wp.Submit(func() { fn(i) })
	}
	wp.Close()
}
