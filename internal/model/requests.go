package model

import "time"

// CreateJobRequest is the body of POST /api/jobs
type CreateJobRequest struct {
	GroupID   int64    `json:"groupId" validate:"required,gt=0"`
	VideoPath string   `json:"videoPath" validate:"required,max=1024"`
	Caption   string   `json:"caption" validate:"max=2200"`
	Platform  Platform `json:"platform" validate:"required,oneof=instagram tiktok"`
}

// JobResponse is the API view of an upload job
type JobResponse struct {
	ID           int64      `json:"id"`
	GroupID      int64      `json:"groupId"`
	VideoPath    string     `json:"videoPath"`
	Caption      string     `json:"caption"`
	Platform     Platform   `json:"platform"`
	Status       JobStatus  `json:"status"`
	Error        *string    `json:"error,omitempty"`
	DispatchedAt *time.Time `json:"dispatchedAt,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// NewJobResponse converts a stored job to its API view
func NewJobResponse(job *UploadJob) *JobResponse {
	return &JobResponse{
		ID:           job.ID,
		GroupID:      job.GroupID,
		VideoPath:    job.VideoPath,
		Caption:      job.Caption,
		Platform:     job.Platform,
		Status:       job.Status,
		Error:        job.Error,
		DispatchedAt: job.DispatchedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		CreatedAt:    job.CreatedAt,
	}
}

// CreateGroupRequest is the body of POST /api/groups
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// PutSessionRequest is the body of PUT /api/groups/:id/sessions/:platform
type PutSessionRequest struct {
	Token    string `json:"token" validate:"required"`
	Username string `json:"username" validate:"max=128"`
}
