package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/clipflow/api/internal/model"
	"github.com/hibiken/asynq"
)

const (
	TaskTypeUpload = "upload:process"

	QueueUpload = "upload"
)

// NewUploadTask builds the asynq task for one claimed job
func NewUploadTask(job *model.DispatchedJob) (*asynq.Task, error) {
	payload := model.UploadTaskPayload{
		JobID:        job.ID,
		UserID:       job.UserID,
		GroupID:      job.GroupID,
		VideoPath:    job.VideoPath,
		Caption:      job.Caption,
		Platform:     job.Platform,
		SessionToken: job.SessionToken,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal upload payload: %w", err)
	}
	return asynq.NewTask(TaskTypeUpload, data), nil
}
