// Package scrape schedules the periodic subreddit ingestion tasks
// (the weekly-scrape idle process).
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/clipflow/api/internal/model"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeScrape = "scrape:subreddit"

	QueueScrape = "scrape"
)

// TaskEnqueuer submits tasks to the queue. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewScrapeTask builds the asynq task for one subreddit pass
func NewScrapeTask(subreddit string, limit int) (*asynq.Task, error) {
	data, err := json.Marshal(model.ScrapeTaskPayload{Subreddit: subreddit, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape payload: %w", err)
	}
	return asynq.NewTask(TaskTypeScrape, data), nil
}

// Scheduler enqueues one scrape task per configured subreddit on a fixed
// interval. Errors are logged and retried on the next cycle.
type Scheduler struct {
	enqueuer   TaskEnqueuer
	interval   time.Duration
	subreddits []string
	postLimit  int
}

func NewScheduler(enqueuer TaskEnqueuer, interval time.Duration, subreddits []string, postLimit int) *Scheduler {
	return &Scheduler{
		enqueuer:   enqueuer,
		interval:   interval,
		subreddits: subreddits,
		postLimit:  postLimit,
	}
}

// Run enqueues a scrape pass immediately and then on every tick until ctx
// is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.subreddits) == 0 {
		log.Println("Scrape scheduler idle: no subreddits configured")
		<-ctx.Done()
		return ctx.Err()
	}

	log.Printf("Scrape scheduler started (interval=%s, subreddits=%d)", s.interval, len(s.subreddits))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunCycle(ctx); err != nil {
			log.Printf("Scrape cycle failed: %v", err)
		}

		select {
		case <-ctx.Done():
			log.Println("Scrape scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle enqueues one scrape task per subreddit.
func (s *Scheduler) RunCycle(_ context.Context) error {
	for _, subreddit := range s.subreddits {
		task, err := NewScrapeTask(subreddit, s.postLimit)
		if err != nil {
			return err
		}
		if _, err := s.enqueuer.Enqueue(task,
			asynq.Queue(QueueScrape),
			asynq.MaxRetry(2),
		); err != nil {
			return fmt.Errorf("enqueue scrape for r/%s: %w", subreddit, err)
		}
		log.Printf("Enqueued scrape for r/%s", subreddit)
	}
	return nil
}
