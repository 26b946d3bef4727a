package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/clipflow/api/internal/client"
	"github.com/clipflow/api/internal/model"
	"github.com/clipflow/api/internal/store"
	"github.com/clipflow/api/internal/websocket"
	"github.com/hibiken/asynq"
)

// presignExpiry must outlive the slowest browser upload session.
const presignExpiry = 2 * time.Hour

// JobStatusStore is the slice of the store the upload worker needs.
type JobStatusStore interface {
	UpdateJobStatus(ctx context.Context, id int64, status model.JobStatus, opts ...store.JobUpdateOption) error
}

// UploadWorker processes upload tasks by driving the automation sidecar
type UploadWorker struct {
	store      JobStatusStore
	automation client.Uploader
	storage    client.StorageClient
	hub        *websocket.Hub
}

// NewUploadWorker creates a new upload worker. automation and storage may
// be nil; an unconfigured automation client makes the worker simulate the
// upload so development setups work without the sidecar.
func NewUploadWorker(statusStore JobStatusStore, automation client.Uploader, storage client.StorageClient, hub *websocket.Hub) *UploadWorker {
	return &UploadWorker{
		store:      statusStore,
		automation: automation,
		storage:    storage,
		hub:        hub,
	}
}

// ProcessTask handles one upload task
func (w *UploadWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.UploadTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := payload.JobID
	log.Printf("Starting upload job %d (platform=%s)", jobID, payload.Platform)

	if err := w.store.UpdateJobStatus(ctx, jobID, model.JobStatusRunning); err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			// Canceled (or already picked up) between claim and execution
			log.Printf("Upload job %d no longer runnable, dropping task", jobID)
			return nil
		}
		return fmt.Errorf("mark job %d running: %w", jobID, err)
	}
	w.hub.BroadcastStatus(jobID, model.JobStatusRunning)

	videoURL, err := w.resolveVideoURL(ctx, payload.VideoPath)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Video not resolvable: %v", err))
		return err
	}

	if w.automation == nil || !w.automation.IsConfigured() {
		return w.processWithMock(ctx, jobID)
	}

	result, err := w.automation.Upload(ctx, &client.UploadRequest{
		Platform:     string(payload.Platform),
		VideoURL:     videoURL,
		Caption:      payload.Caption,
		SessionToken: payload.SessionToken,
	})
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Upload failed: %v", err))
		return err
	}

	if err := w.store.UpdateJobStatus(ctx, jobID, model.JobStatusSucceeded); err != nil {
		return fmt.Errorf("mark job %d succeeded: %w", jobID, err)
	}
	w.hub.BroadcastStatus(jobID, model.JobStatusSucceeded)

	log.Printf("Upload job %d completed (post=%s)", jobID, result.PostID)
	return nil
}

// processWithMock completes the job without an automation sidecar, for
// development setups
func (w *UploadWorker) processWithMock(ctx context.Context, jobID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}

	if err := w.store.UpdateJobStatus(ctx, jobID, model.JobStatusSucceeded); err != nil {
		return fmt.Errorf("mark job %d succeeded: %w", jobID, err)
	}
	w.hub.BroadcastStatus(jobID, model.JobStatusSucceeded)

	log.Printf("Upload job %d completed (mock)", jobID)
	return nil
}

// resolveVideoURL turns the stored video path into a URL the sidecar can
// fetch. Absolute URLs pass through; object keys are presigned.
func (w *UploadWorker) resolveVideoURL(ctx context.Context, videoPath string) (string, error) {
	if strings.HasPrefix(videoPath, "http://") || strings.HasPrefix(videoPath, "https://") {
		return videoPath, nil
	}
	if w.storage != nil && w.storage.IsConfigured() {
		return w.storage.GetSignedURL(ctx, videoPath, presignExpiry)
	}
	return videoPath, nil
}

func (w *UploadWorker) failJob(ctx context.Context, jobID int64, errMsg string) {
	if err := w.store.UpdateJobStatus(ctx, jobID, model.JobStatusFailed, store.WithErrorMessage(errMsg)); err != nil {
		log.Printf("Failed to mark job %d as failed: %v", jobID, err)
	}
	w.hub.BroadcastError(jobID, "UPLOAD_FAILED", errMsg)
}
