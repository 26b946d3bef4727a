package model

// WebSocket message types
type WSMessageType string

const (
	WSMessageTypeStatus WSMessageType = "status"
	WSMessageTypeError  WSMessageType = "error"
)

// WSStatusMessage notifies subscribers of a job status transition
type WSStatusMessage struct {
	Type   WSMessageType `json:"type"`
	JobID  int64         `json:"jobId"`
	Status JobStatus     `json:"status"`
}

// WSErrorMessage notifies subscribers of a job failure
type WSErrorMessage struct {
	Type    WSMessageType `json:"type"`
	JobID   int64         `json:"jobId"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
}
