package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/clipflow/api/internal/client"
	"github.com/clipflow/api/internal/model"
	"github.com/hibiken/asynq"
)

// SubredditFetcher fetches subreddit listings
type SubredditFetcher interface {
	FetchNewPosts(ctx context.Context, subreddit string, limit int) ([]client.RedditPost, error)
}

// PostStore is the slice of the store the scrape worker needs.
type PostStore interface {
	InsertPosts(ctx context.Context, posts []*model.IngestedPost) (int64, error)
}

// ScrapeWorker processes subreddit scrape tasks
type ScrapeWorker struct {
	reddit SubredditFetcher
	store  PostStore
}

// NewScrapeWorker creates a new scrape worker
func NewScrapeWorker(reddit SubredditFetcher, postStore PostStore) *ScrapeWorker {
	return &ScrapeWorker{
		reddit: reddit,
		store:  postStore,
	}
}

// ProcessTask handles one subreddit scrape pass
func (w *ScrapeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ScrapeTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("Scraping r/%s (limit=%d)", payload.Subreddit, payload.Limit)

	fetched, err := w.reddit.FetchNewPosts(ctx, payload.Subreddit, payload.Limit)
	if err != nil {
		return fmt.Errorf("fetch r/%s: %w", payload.Subreddit, err)
	}

	now := time.Now().UTC()
	posts := make([]*model.IngestedPost, 0, len(fetched))
	for _, p := range fetched {
		posts = append(posts, &model.IngestedPost{
			ID:        p.ID,
			Subreddit: p.Subreddit,
			Title:     p.Title,
			Author:    p.Author,
			URL:       p.URL,
			Permalink: p.Permalink,
			Score:     p.Score,
			PostedAt:  p.PostedAt(),
			ScrapedAt: now,
		})
	}

	inserted, err := w.store.InsertPosts(ctx, posts)
	if err != nil {
		return fmt.Errorf("store posts for r/%s: %w", payload.Subreddit, err)
	}

	log.Printf("Scraped r/%s: %d fetched, %d new", payload.Subreddit, len(posts), inserted)
	return nil
}
