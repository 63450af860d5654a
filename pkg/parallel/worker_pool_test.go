package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
)

func TestWorkerPoolBasicOperations(t *testing.T) {
	pool := NewWorkerPool(4, logging.NopLogger{})

	executed := false
	if !pool.Submit(func() { executed = true }) {
		t.Error("Task submission failed")
	}
	pool.Close()

	if !executed {
		t.Error("Task was not executed")
	}
}

func TestWorkerPoolDefaultWorkers(t *testing.T) {
	pool := NewWorkerPool(0, logging.NopLogger{})
	defer pool.Close()
	if pool.Workers() < 1 {
		t.Errorf("Expected at least one worker, got %d", pool.Workers())
	}
}

func TestWorkerPoolConcurrentSubmissions(t *testing.T) {
	pool := NewWorkerPool(10, logging.NopLogger{})

	numTasks := 100
	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() { atomic.AddInt64(&counter, 1) })
		}()
	}
	wg.Wait()
	pool.Close()

	if counter != int64(numTasks) {
		t.Errorf("Expected counter %d, got %d", numTasks, counter)
	}
}

// Closing while other goroutines submit must not panic.
func TestWorkerPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool := NewWorkerPool(4, logging.NopLogger{})

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() { time.Sleep(time.Millisecond) })
				}
			}()
		}

		time.Sleep(2 * time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(4, logging.NopLogger{})
	pool.Close()
	pool.Close()

	if pool.Submit(func() { t.Error("This task should never execute") }) {
		t.Error("Task submission after close should return false")
	}
}

func TestWorkerPoolWithPanic(t *testing.T) {
	log := logging.NewCaptureLogger()
	pool := NewWorkerPool(2, log)

	var counter int64
	for i := 0; i < 3; i++ {
		pool.Submit(func() { panic("intentional panic") })
	}
	for i := 0; i < 10; i++ {
		pool.Submit(func() { atomic.AddInt64(&counter, 1) })
	}
	pool.Close()

	if counter != 10 {
		t.Errorf("Expected 10 tasks after panics, got %d", counter)
	}
	if got := log.Count(logging.ErrorLevel); got != 3 {
		t.Errorf("Expected 3 logged panics, got %d", got)
	}
}

func TestForEach(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		out := make([]int, 100)
		ForEach(len(out), workers, logging.NopLogger{}, func(i int) {
			out[i] = i * i
		})
		for i, v := range out {
			if v != i*i {
				t.Fatalf("workers=%d: slot %d = %d, want %d", workers, i, v, i*i)
			}
		}
	}

	called := false
	ForEach(0, 4, nil, func(int) { called = true })
	if called {
		t.Error("ForEach with n=0 should not call fn")
	}
}
