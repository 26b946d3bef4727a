package model

import "time"

// UploadJob represents one video upload to a social platform
type UploadJob struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"userId"`
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
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// DispatchedJob is the tuple the dispatcher hands to the task queue:
// a claimed pending job joined with its matching session token.
type DispatchedJob struct {
	ID           int64    `json:"id"`
	UserID       string   `json:"userId"`
	GroupID      int64    `json:"groupId"`
	VideoPath    string   `json:"videoPath"`
	Caption      string   `json:"caption"`
	Platform     Platform `json:"platform"`
	SessionToken string   `json:"sessionToken"`
}

// UploadTaskPayload is the JSON body of an "upload:process" task
type UploadTaskPayload struct {
	JobID        int64    `json:"jobId"`
	UserID       string   `json:"userId"`
	GroupID      int64    `json:"groupId"`
	VideoPath    string   `json:"videoPath"`
	Caption      string   `json:"caption"`
	Platform     Platform `json:"platform"`
	SessionToken string   `json:"sessionToken"`
}

// ScrapeTaskPayload is the JSON body of a "scrape:subreddit" task
type ScrapeTaskPayload struct {
	Subreddit string `json:"subreddit"`
	Limit     int    `json:"limit"`
}
