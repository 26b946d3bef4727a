package dispatch

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

type fakeJobStore struct {
	claimable  []*model.DispatchedJob
	claimErr   error
	claimCalls int

	requeued   int64
	requeueErr error

	stranded int64
}

func (f *fakeJobStore) ClaimPendingJobs(_ context.Context, limit int) ([]*model.DispatchedJob, error) {
	f.claimCalls++
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.claimable) > limit {
		claimed := f.claimable[:limit]
		f.claimable = f.claimable[limit:]
		return claimed, nil
	}
	claimed := f.claimable
	f.claimable = nil
	return claimed, nil
}

func (f *fakeJobStore) RequeueStaleJobs(_ context.Context, _ time.Duration) (int64, error) {
	return f.requeued, f.requeueErr
}

func (f *fakeJobStore) CountStrandedJobs(_ context.Context) (int64, error) {
	return f.stranded, nil
}

type enqueuedTask struct {
	task *asynq.Task
	opts []asynq.Option
}

type fakeEnqueuer struct {
	tasks []enqueuedTask
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, enqueuedTask{task: task, opts: opts})
	return &asynq.TaskInfo{ID: "fake", Queue: QueueUpload}, nil
}

func TestRunCycleSubmitsClaimedJobs(t *testing.T) {
	jobStore := &fakeJobStore{
		claimable: []*model.DispatchedJob{
			{
				ID:           7,
				UserID:       "user-1",
				GroupID:      3,
				VideoPath:    "videos/clip.mp4",
				Caption:      "first post",
				Platform:     model.PlatformInstagram,
				SessionToken: "abc",
			},
		},
	}
	enqueuer := &fakeEnqueuer{}
	d := NewDispatcher(jobStore, enqueuer, time.Second, 100, 10*time.Minute)

	err := d.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, enqueuer.tasks, 1)

	task := enqueuer.tasks[0].task
	assert.Equal(t, TaskTypeUpload, task.Type())
	assert.NotEmpty(t, enqueuer.tasks[0].opts, "queue and retry options must be set")

	var payload model.UploadTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, int64(7), payload.JobID)
	assert.Equal(t, int64(3), payload.GroupID)
	assert.Equal(t, "videos/clip.mp4", payload.VideoPath)
	assert.Equal(t, model.PlatformInstagram, payload.Platform)
	assert.Equal(t, "abc", payload.SessionToken)
}

func TestRunCycleSubmitsEachJobOnce(t *testing.T) {
	jobStore := &fakeJobStore{
		claimable: []*model.DispatchedJob{
			{ID: 1, Platform: model.PlatformTikTok, SessionToken: "t1"},
			{ID: 2, Platform: model.PlatformInstagram, SessionToken: "t2"},
		},
	}
	enqueuer := &fakeEnqueuer{}
	d := NewDispatcher(jobStore, enqueuer, time.Second, 100, 10*time.Minute)

	require.NoError(t, d.RunCycle(context.Background()))
	require.NoError(t, d.RunCycle(context.Background()))

	// The second cycle claims nothing; both jobs were flipped out of
	// pending by the first claim.
	assert.Equal(t, 2, jobStore.claimCalls)
	require.Len(t, enqueuer.tasks, 2)

	seen := map[int64]int{}
	for _, et := range enqueuer.tasks {
		var payload model.UploadTaskPayload
		require.NoError(t, json.Unmarshal(et.task.Payload(), &payload))
		seen[payload.JobID]++
	}
	assert.Equal(t, map[int64]int{1: 1, 2: 1}, seen)
}

func TestRunCycleEmptyClaim(t *testing.T) {
	jobStore := &fakeJobStore{}
	enqueuer := &fakeEnqueuer{}
	d := NewDispatcher(jobStore, enqueuer, time.Second, 100, 10*time.Minute)

	err := d.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, enqueuer.tasks)
}

func TestRunCycleClaimError(t *testing.T) {
	jobStore := &fakeJobStore{claimErr: errors.New("connection refused")}
	enqueuer := &fakeEnqueuer{}
	d := NewDispatcher(jobStore, enqueuer, time.Second, 100, 10*time.Minute)

	err := d.RunCycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, enqueuer.tasks)
}

func TestRunCycleRequeueError(t *testing.T) {
	jobStore := &fakeJobStore{
		requeueErr: errors.New("connection refused"),
		claimable: []*model.DispatchedJob{
			{ID: 1, SessionToken: "t"},
		},
	}
	enqueuer := &fakeEnqueuer{}
	d := NewDispatcher(jobStore, enqueuer, time.Second, 100, 10*time.Minute)

	err := d.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, jobStore.claimCalls, "cycle aborts before claiming")
	assert.Empty(t, enqueuer.tasks)
}

func TestRunCycleEnqueueErrorStopsCycle(t *testing.T) {
	jobStore := &fakeJobStore{
		claimable: []*model.DispatchedJob{
			{ID: 1, SessionToken: "t"},
		},
	}
	enqueuer := &fakeEnqueuer{err: errors.New("redis down")}
	d := NewDispatcher(jobStore, enqueuer, time.Second, 100, 10*time.Minute)

	err := d.RunCycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, enqueuer.tasks)
}

func TestRunCycleRespectsBatchSize(t *testing.T) {
	jobStore := &fakeJobStore{
		claimable: []*model.DispatchedJob{
			{ID: 1, SessionToken: "a"},
			{ID: 2, SessionToken: "b"},
			{ID: 3, SessionToken: "c"},
		},
	}
	enqueuer := &fakeEnqueuer{}
	d := NewDispatcher(jobStore, enqueuer, time.Second, 2, 10*time.Minute)

	require.NoError(t, d.RunCycle(context.Background()))
	assert.Len(t, enqueuer.tasks, 2)

	require.NoError(t, d.RunCycle(context.Background()))
	assert.Len(t, enqueuer.tasks, 3)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	jobStore := &fakeJobStore{}
	enqueuer := &fakeEnqueuer{}
	d := NewDispatcher(jobStore, enqueuer, 10*time.Millisecond, 100, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}

	assert.GreaterOrEqual(t, jobStore.claimCalls, 2, "dispatcher should keep cycling on the interval")
}
