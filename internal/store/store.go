package store

import (
	"context"
	"errors"
	"time"

	"github.com/clipflow/api/internal/model"
)

var ErrNotFound = errors.New("resource not found")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *model.UploadJob) error
	GetJob(ctx context.Context, id int64) (*model.UploadJob, error)
	ListJobsByUser(ctx context.Context, userID string) ([]*model.UploadJob, error)
	UpdateJobStatus(ctx context.Context, id int64, status model.JobStatus, opts ...JobUpdateOption) error
	CancelJob(ctx context.Context, id int64, userID string) error

	// ClaimPendingJobs atomically transitions up to limit pending jobs with a
	// matching session to dispatched and returns them joined with the token.
	// A job is returned at most once across repeated or concurrent calls.
	ClaimPendingJobs(ctx context.Context, limit int) ([]*model.DispatchedJob, error)

	// RequeueStaleJobs returns jobs claimed longer than olderThan ago to
	// pending so a later cycle can dispatch them again.
	RequeueStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)

	// CountStrandedJobs counts pending jobs with no matching session record.
	// Those jobs are never dispatchable until a session is added.
	CountStrandedJobs(ctx context.Context) (int64, error)

	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
	UpsertGroupItem(ctx context.Context, item *model.GroupItem) error

	InsertPosts(ctx context.Context, posts []*model.IngestedPost) (int64, error)
}

// JobUpdateParams carries the optional fields of a status update.
type JobUpdateParams struct {
	ErrorMessage *string
}

type JobUpdateOption func(*JobUpdateParams)

func WithErrorMessage(msg string) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.ErrorMessage = &msg
	}
}
