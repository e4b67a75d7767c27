package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/advance-portal/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker runs fire-and-forget jobs and recurring maintenance tasks
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	asyncSem      chan struct{}
	maxConcurrent int
	stats         WorkerStats
	statsMu       sync.RWMutex
}

// WorkerStats holds statistics about the worker.
// FinishedJobs counts every run; FailedJobs is the subset that errored or panicked.
type WorkerStats struct {
	ActiveJobs    int   `json:"activeJobs"`
	FinishedJobs  int64 `json:"finishedJobs"`
	FailedJobs    int64 `json:"failedJobs"`
	MaxConcurrent int   `json:"maxConcurrent"`
}

// NewWorker creates a worker that runs at most maxConcurrent async jobs at once
func NewWorker(maxConcurrent int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Worker{
		ctx:           ctx,
		cancel:        cancel,
		asyncSem:      make(chan struct{}, maxConcurrent),
		maxConcurrent: maxConcurrent,
	}
}

// EnqueueAsync runs a job in a new goroutine, bounded by the semaphore.
// Jobs enqueued before Shutdown still run, with an already cancelled context.
func (w *Worker) EnqueueAsync(name string, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.run("[Worker]", name, job)
	}()
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval.
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, false, job)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals.
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, true, job)
}

func (w *Worker) schedule(name string, interval time.Duration, immediate bool, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if immediate {
			w.run("[Scheduler]", name, job)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run("[Scheduler]", name, job)
			}
		}
	}()
}

func (w *Worker) run(prefix, name string, job Job) {
	w.trackJobStart()
	start := time.Now()
	failed := false

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("%s Job panic: %v", prefix, r), "job", name)
			failed = true
		}
		w.trackJobEnd(failed)
	}()

	if err := job(w.ctx); err != nil {
		logger.Error(prefix+" Job error", "job", name, "error", err)
		failed = true
		return
	}
	logger.Debug(prefix+" Job completed", "job", name, "elapsed", time.Since(start))
}

// Shutdown cancels scheduled jobs and waits for running ones
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.MaxConcurrent = w.maxConcurrent
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

func (w *Worker) trackJobEnd(failed bool) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.FinishedJobs++
	if failed {
		w.stats.FailedJobs++
	}
}
