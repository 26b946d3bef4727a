// Package dispatch runs the poll-claim-enqueue loop that feeds pending
// upload jobs from the store into the task queue.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/clipflow/api/internal/model"
	"github.com/hibiken/asynq"
)

// JobStore is the slice of the store the dispatcher needs.
type JobStore interface {
	ClaimPendingJobs(ctx context.Context, limit int) ([]*model.DispatchedJob, error)
	RequeueStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)
	CountStrandedJobs(ctx context.Context) (int64, error)
}

// TaskEnqueuer submits tasks to the queue. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher claims pending upload jobs on a fixed interval and enqueues
// one task per job. The claim is atomic (pending -> dispatched in the
// fetch query), so a job is submitted exactly once per claim even with
// concurrent dispatcher instances.
type Dispatcher struct {
	store        JobStore
	enqueuer     TaskEnqueuer
	interval     time.Duration
	batchSize    int
	requeueAfter time.Duration
}

func NewDispatcher(store JobStore, enqueuer TaskEnqueuer, interval time.Duration, batchSize int, requeueAfter time.Duration) *Dispatcher {
	return &Dispatcher{
		store:        store,
		enqueuer:     enqueuer,
		interval:     interval,
		batchSize:    batchSize,
		requeueAfter: requeueAfter,
	}
}

// Run executes dispatch cycles until ctx is canceled. A failing cycle is
// logged and the loop keeps going; only cancellation stops it.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Printf("Dispatcher started (interval=%s, batch=%d)", d.interval, d.batchSize)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.RunCycle(ctx); err != nil {
			log.Printf("Dispatch cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Println("Dispatcher stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one fetch-and-enqueue pass.
func (d *Dispatcher) RunCycle(ctx context.Context) error {
	if d.requeueAfter > 0 {
		requeued, err := d.store.RequeueStaleJobs(ctx, d.requeueAfter)
		if err != nil {
			return fmt.Errorf("requeue stale jobs: %w", err)
		}
		if requeued > 0 {
			log.Printf("Requeued %d stale dispatched jobs", requeued)
		}
	}

	jobs, err := d.store.ClaimPendingJobs(ctx, d.batchSize)
	if err != nil {
		return fmt.Errorf("claim pending jobs: %w", err)
	}

	submitted := 0
	for _, job := range jobs {
		task, err := NewUploadTask(job)
		if err != nil {
			return fmt.Errorf("build task for job %d: %w", job.ID, err)
		}
		if _, err := d.enqueuer.Enqueue(task,
			asynq.Queue(QueueUpload),
			asynq.MaxRetry(3),
			asynq.Retention(24*time.Hour),
		); err != nil {
			// The claim stands; the stale requeue pass will recover this job.
			return fmt.Errorf("enqueue job %d: %w", job.ID, err)
		}
		log.Printf("Dispatched job %d (platform=%s, group=%d)", job.ID, job.Platform, job.GroupID)
		submitted++
	}

	log.Printf("Dispatch cycle complete: %d jobs submitted", submitted)

	stranded, err := d.store.CountStrandedJobs(ctx)
	if err != nil {
		return fmt.Errorf("count stranded jobs: %w", err)
	}
	if stranded > 0 {
		log.Printf("Warning: %d pending jobs have no session for their (group, platform) and cannot be dispatched", stranded)
	}

	return nil
}
