// Package queue runs render jobs strictly one at a time in submission
// order. Jobs are durable: every state change is written to sqlite
// before it becomes observable, and queued work survives a restart.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/events"
)

const pendingCapacity = 256

// Queue owns the pending channel and the single worker goroutine.
// One consumer on one channel is what enforces both FIFO order and
// the at-most-one-running invariant.
type Queue struct {
	store  *Store
	runner *Runner
	bus    *events.Bus
	logger *slog.Logger

	pending chan string

	mu      sync.Mutex
	running string

	wg sync.WaitGroup
}

func New(store *Store, runner *Runner, bus *events.Bus, logger *slog.Logger) *Queue {
	return &Queue{
		store:   store,
		runner:  runner,
		bus:     bus,
		logger:  logger,
		pending: make(chan string, pendingCapacity),
	}
}

// Start recovers persisted state and launches the worker. Jobs left
// running by a crashed process are failed, not silently re-run;
// queued jobs are re-enqueued in their original order.
func (q *Queue) Start(ctx context.Context) error {
	if n, err := q.store.MarkInterrupted(); err != nil {
		q.logger.Warn("failed to mark interrupted jobs", "error", err)
	} else if n > 0 {
		q.logger.Info("marked interrupted jobs as failed", "count", n)
	}

	backlog, err := q.store.Pending()
	if err != nil {
		return err
	}
	for _, job := range backlog {
		select {
		case q.pending <- job.ID:
		default:
			return ErrQueueFull
		}
	}
	if len(backlog) > 0 {
		q.logger.Info("re-enqueued persisted jobs", "count", len(backlog))
	}

	q.wg.Add(1)
	go q.worker(ctx)
	return nil
}

// Wait blocks until the worker has exited after context cancellation.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Submit persists a new job and enqueues it. The returned job carries
// the assigned id and queued status.
func (q *Queue) Submit(job Job) (Job, error) {
	job.ID = uuid.NewString()
	job.Status = StatusQueued
	job.OutputName = SanitizeOutputName(job.OutputName, job.ID)

	if err := q.store.Create(job); err != nil {
		return Job{}, err
	}

	select {
	case q.pending <- job.ID:
	default:
		// Keep the durable record consistent with what will run.
		if err := q.store.Delete(job.ID); err != nil {
			q.logger.Warn("failed to roll back overflowed job", "job_id", job.ID, "error", err)
		}
		return Job{}, ErrQueueFull
	}

	q.publish(job.ID, "queue", "queued", "", 0)
	q.logger.Info("render job queued", "job_id", job.ID, "clip_id", job.HookClipID, "output", job.OutputName)
	return q.store.Get(job.ID)
}

// Get returns one job by id.
func (q *Queue) Get(id string) (Job, error) {
	return q.store.Get(id)
}

// List returns all jobs, most recent first.
func (q *Queue) List() ([]Job, error) {
	return q.store.List()
}

// Remove deletes a job record. The running job is protected; a queued
// job simply loses its record and the worker skips its id when it
// surfaces.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	active := q.running
	q.mu.Unlock()
	if active == id {
		return ErrJobRunning
	}

	job, err := q.store.Get(id)
	if err != nil {
		return err
	}
	if job.Status == StatusRunning {
		return ErrJobRunning
	}
	return q.store.Delete(id)
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-q.pending:
			job, err := q.store.Get(id)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					q.logger.Warn("failed to load queued job", "job_id", id, "error", err)
				}
				continue
			}
			if job.Status != StatusQueued {
				continue
			}
			q.runOne(ctx, job)
		}
	}
}

// runOne executes a single job to a terminal state. A failure is
// recorded on the job and never stops the worker.
func (q *Queue) runOne(ctx context.Context, job Job) {
	q.setRunning(job.ID)
	defer q.setRunning("")

	if err := q.store.SetStatus(job.ID, StatusRunning); err != nil {
		q.logger.Error("failed to mark job running", "job_id", job.ID, "error", err)
		return
	}
	q.publish(job.ID, "queue", "running", "", 5)

	result, err := q.runner.Run(ctx, job)
	if err != nil {
		q.logger.Error("render job failed", "job_id", job.ID, "error", err)
		if serr := q.store.SetError(job.ID, err.Error()); serr != nil {
			q.logger.Error("failed to record job error", "job_id", job.ID, "error", serr)
		}
		q.publish(job.ID, "queue", "error", err.Error(), 0)
		return
	}

	if serr := q.store.SetResult(job.ID, result); serr != nil {
		q.logger.Error("failed to record job result", "job_id", job.ID, "error", serr)
		return
	}
	q.publish(job.ID, "queue", "done", result, 100)
	q.logger.Info("render job complete", "job_id", job.ID, "result", result)
}

func (q *Queue) setRunning(id string) {
	q.mu.Lock()
	q.running = id
	q.mu.Unlock()
}

func (q *Queue) publish(jobID, step, status, msg string, progress int) {
	if q.bus == nil {
		return
	}
	q.bus.Publish(events.Event{JobID: jobID, Step: step, Status: status, Message: msg, Progress: progress})
}
