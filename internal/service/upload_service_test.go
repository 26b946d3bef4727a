package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipflow/api/internal/model"
	"github.com/clipflow/api/internal/store"
)

type fakeJobStore struct {
	groups    map[int64]*model.Group
	jobs      map[int64]*model.UploadJob
	nextID    int64
	cancelErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{
		groups: make(map[int64]*model.Group),
		jobs:   make(map[int64]*model.UploadJob),
		nextID: 1,
	}
}

func (f *fakeJobStore) CreateJob(_ context.Context, job *model.UploadJob) error {
	job.ID = f.nextID
	f.nextID++
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobStore) GetJob(_ context.Context, id int64) (*model.UploadJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobStore) ListJobsByUser(_ context.Context, userID string) ([]*model.UploadJob, error) {
	var out []*model.UploadJob
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobStore) CancelJob(_ context.Context, id int64, userID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	job, ok := f.jobs[id]
	if !ok || job.UserID != userID {
		return store.ErrNotFound
	}
	job.Status = model.JobStatusCanceled
	return nil
}

func (f *fakeJobStore) GetGroup(_ context.Context, id int64) (*model.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return g, nil
}

func TestCreateJob(t *testing.T) {
	jobStore := newFakeJobStore()
	jobStore.groups[3] = &model.Group{ID: 3, UserID: "user-1", Name: "main"}
	svc := NewUploadService(jobStore)

	job, err := svc.CreateJob(context.Background(), "user-1", &model.CreateJobRequest{
		GroupID:   3,
		VideoPath: "videos/clip.mp4",
		Caption:   "hello",
		Platform:  model.PlatformInstagram,
	})
	require.NoError(t, err)

	assert.NotZero(t, job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, "user-1", job.UserID)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestCreateJobUnknownGroup(t *testing.T) {
	svc := NewUploadService(newFakeJobStore())

	_, err := svc.CreateJob(context.Background(), "user-1", &model.CreateJobRequest{
		GroupID:   99,
		VideoPath: "x.mp4",
		Platform:  model.PlatformTikTok,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateJobForeignGroup(t *testing.T) {
	jobStore := newFakeJobStore()
	jobStore.groups[3] = &model.Group{ID: 3, UserID: "someone-else"}
	svc := NewUploadService(jobStore)

	_, err := svc.CreateJob(context.Background(), "user-1", &model.CreateJobRequest{
		GroupID:   3,
		VideoPath: "x.mp4",
		Platform:  model.PlatformTikTok,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJobOwnership(t *testing.T) {
	jobStore := newFakeJobStore()
	jobStore.jobs[5] = &model.UploadJob{ID: 5, UserID: "user-1", Status: model.JobStatusPending}
	svc := NewUploadService(jobStore)

	job, err := svc.GetJob(context.Background(), 5, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), job.ID)

	// Other users get not-found, not forbidden.
	_, err = svc.GetJob(context.Background(), 5, "user-2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetJob(context.Background(), 404, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelJob(t *testing.T) {
	jobStore := newFakeJobStore()
	jobStore.jobs[5] = &model.UploadJob{ID: 5, UserID: "user-1", Status: model.JobStatusPending}
	svc := NewUploadService(jobStore)

	require.NoError(t, svc.CancelJob(context.Background(), 5, "user-1"))
	assert.Equal(t, model.JobStatusCanceled, jobStore.jobs[5].Status)
}

func TestCancelJobErrorMapping(t *testing.T) {
	jobStore := newFakeJobStore()
	jobStore.cancelErr = store.ErrInvalidTransition
	svc := NewUploadService(jobStore)

	assert.ErrorIs(t, svc.CancelJob(context.Background(), 5, "user-1"), ErrNotCancelable)

	jobStore.cancelErr = store.ErrNotFound
	assert.ErrorIs(t, svc.CancelJob(context.Background(), 5, "user-1"), ErrNotFound)

	jobStore.cancelErr = errors.New("connection refused")
	err := svc.CancelJob(context.Background(), 5, "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNotCancelable)
}
