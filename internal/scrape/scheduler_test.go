package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipflow/api/internal/model"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "fake", Queue: QueueScrape}, nil
}

func TestRunCycleEnqueuesPerSubreddit(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := NewScheduler(enqueuer, time.Hour, []string{"videos", "funny"}, 25)

	require.NoError(t, s.RunCycle(context.Background()))
	require.Len(t, enqueuer.tasks, 2)

	var payload model.ScrapeTaskPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, TaskTypeScrape, enqueuer.tasks[0].Type())
	assert.Equal(t, "videos", payload.Subreddit)
	assert.Equal(t, 25, payload.Limit)

	require.NoError(t, json.Unmarshal(enqueuer.tasks[1].Payload(), &payload))
	assert.Equal(t, "funny", payload.Subreddit)
}

func TestRunCycleEnqueueError(t *testing.T) {
	enqueuer := &fakeEnqueuer{err: errors.New("redis down")}
	s := NewScheduler(enqueuer, time.Hour, []string{"videos"}, 25)

	assert.Error(t, s.RunCycle(context.Background()))
}

func TestRunIdlesWithoutSubreddits(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := NewScheduler(enqueuer, time.Millisecond, nil, 25)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, enqueuer.tasks)
}

func TestRunEnqueuesImmediately(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := NewScheduler(enqueuer, time.Hour, []string{"videos"}, 25)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}

	// First pass runs before the first tick.
	assert.Len(t, enqueuer.tasks, 1)
}
