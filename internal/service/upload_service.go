package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clipflow/api/internal/model"
	"github.com/clipflow/api/internal/store"
)

var ErrNotFound = errors.New("job not found")
var ErrNotCancelable = errors.New("job already completed")

// JobStore is the slice of the store the upload service needs.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.UploadJob) error
	GetJob(ctx context.Context, id int64) (*model.UploadJob, error)
	ListJobsByUser(ctx context.Context, userID string) ([]*model.UploadJob, error)
	CancelJob(ctx context.Context, id int64, userID string) error
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
}

// UploadService handles upload job submission and inspection. Jobs are
// created pending; the dispatcher process picks them up from there.
type UploadService struct {
	store JobStore
}

func NewUploadService(jobStore JobStore) *UploadService {
	return &UploadService{store: jobStore}
}

// CreateJob persists a new pending upload job for the user
func (s *UploadService) CreateJob(ctx context.Context, userID string, req *model.CreateJobRequest) (*model.UploadJob, error) {
	group, err := s.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("group %d: %w", req.GroupID, ErrNotFound)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group.UserID != userID {
		return nil, fmt.Errorf("group %d: %w", req.GroupID, ErrNotFound)
	}

	job := &model.UploadJob{
		UserID:    userID,
		GroupID:   req.GroupID,
		VideoPath: req.VideoPath,
		Caption:   req.Caption,
		Platform:  req.Platform,
		Status:    model.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetJob returns one of the user's jobs
func (s *UploadService) GetJob(ctx context.Context, id int64, userID string) (*model.UploadJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// Ownership is part of the lookup; leaking other users' jobs as 403
	// would confirm their existence.
	if job.UserID != userID {
		return nil, ErrNotFound
	}
	return job, nil
}

// ListJobs returns all of the user's jobs, newest first
func (s *UploadService) ListJobs(ctx context.Context, userID string) ([]*model.UploadJob, error) {
	return s.store.ListJobsByUser(ctx, userID)
}

// CancelJob cancels a job that has not started running yet
func (s *UploadService) CancelJob(ctx context.Context, id int64, userID string) error {
	err := s.store.CancelJob(ctx, id, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, store.ErrInvalidTransition) {
		return ErrNotCancelable
	}
	return err
}
