package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipflow/api/internal/client"
	"github.com/clipflow/api/internal/model"
)

type fakeFetcher struct {
	posts []client.RedditPost
	err   error

	subreddit string
	limit     int
}

func (f *fakeFetcher) FetchNewPosts(_ context.Context, subreddit string, limit int) ([]client.RedditPost, error) {
	f.subreddit = subreddit
	f.limit = limit
	return f.posts, f.err
}

type fakePostStore struct {
	inserted []*model.IngestedPost
	err      error
}

func (f *fakePostStore) InsertPosts(_ context.Context, posts []*model.IngestedPost) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, posts...)
	return int64(len(posts)), nil
}

func scrapeTask(t *testing.T, payload model.ScrapeTaskPayload) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask("scrape:subreddit", data)
}

func TestScrapeProcessTask(t *testing.T) {
	fetcher := &fakeFetcher{
		posts: []client.RedditPost{
			{ID: "t3_abc", Subreddit: "videos", Title: "a clip", Author: "someone", Score: 12, CreatedUTC: 1700000000},
			{ID: "t3_def", Subreddit: "videos", Title: "another", Author: "other", Score: 3, CreatedUTC: 1700000100},
		},
	}
	postStore := &fakePostStore{}
	w := NewScrapeWorker(fetcher, postStore)

	task := scrapeTask(t, model.ScrapeTaskPayload{Subreddit: "videos", Limit: 25})
	require.NoError(t, w.ProcessTask(context.Background(), task))

	assert.Equal(t, "videos", fetcher.subreddit)
	assert.Equal(t, 25, fetcher.limit)

	require.Len(t, postStore.inserted, 2)
	assert.Equal(t, "t3_abc", postStore.inserted[0].ID)
	assert.Equal(t, "a clip", postStore.inserted[0].Title)
	assert.Equal(t, int64(1700000000), postStore.inserted[0].PostedAt.Unix())
	assert.False(t, postStore.inserted[0].ScrapedAt.IsZero())
}

func TestScrapeProcessTaskFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("rate limited")}
	postStore := &fakePostStore{}
	w := NewScrapeWorker(fetcher, postStore)

	task := scrapeTask(t, model.ScrapeTaskPayload{Subreddit: "videos", Limit: 25})
	err := w.ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.Empty(t, postStore.inserted)
}

func TestScrapeProcessTaskStoreError(t *testing.T) {
	fetcher := &fakeFetcher{posts: []client.RedditPost{{ID: "t3_abc"}}}
	postStore := &fakePostStore{err: errors.New("connection refused")}
	w := NewScrapeWorker(fetcher, postStore)

	task := scrapeTask(t, model.ScrapeTaskPayload{Subreddit: "videos", Limit: 25})
	assert.Error(t, w.ProcessTask(context.Background(), task))
}
