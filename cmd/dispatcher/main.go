// The dispatcher process: polls the job store, claims pending upload jobs,
// and enqueues them for the worker fleet. Also runs the periodic subreddit
// scrape scheduler. Runs separately from the API server so it can be
// supervised and scaled on its own.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clipflow/api/internal/config"
	"github.com/clipflow/api/internal/dispatch"
	"github.com/clipflow/api/internal/scrape"
	"github.com/clipflow/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	jobStore := store.NewPostgresStore(pool)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	dispatcher := dispatch.NewDispatcher(
		jobStore,
		asynqClient,
		time.Duration(cfg.Dispatcher.Interval)*time.Second,
		cfg.Dispatcher.BatchSize,
		time.Duration(cfg.Dispatcher.RequeueAfter)*time.Second,
	)
	scheduler := scrape.NewScheduler(
		asynqClient,
		time.Duration(cfg.Scrape.Interval)*time.Second,
		cfg.Scrape.Subreddits,
		cfg.Scrape.PostLimit,
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Dispatcher stopped: %v", err)
		}
	}()

	go func() {
		defer wg.Done()
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Scrape scheduler stopped: %v", err)
		}
	}()

	wg.Wait()
	log.Println("Dispatcher process exited")
}
