package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clipflow/api/internal/config"
)

// Uploader defines the interface for platform upload operations
type Uploader interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error)
	HealthCheck(ctx context.Context) error
	IsConfigured() bool
}

// AutomationClient implements Uploader for the browser-automation sidecar
type AutomationClient struct {
	httpClient *http.Client
	baseURL    string
}

// UploadRequest represents one upload handed to the sidecar
type UploadRequest struct {
	Platform     string `json:"platform"`
	VideoURL     string `json:"video_url"`
	Caption      string `json:"caption"`
	SessionToken string `json:"session_token"`
}

// UploadResponse represents the sidecar's result for a completed upload
type UploadResponse struct {
	PostID  string `json:"post_id"`
	PostURL string `json:"post_url,omitempty"`
}

// NewAutomationClient creates a new automation sidecar client
func NewAutomationClient(cfg *config.AutomationConfig) *AutomationClient {
	return &AutomationClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// Upload posts one video through the sidecar. The call blocks until the
// sidecar finishes the browser session, so the client timeout must cover
// a full upload.
func (c *AutomationClient) Upload(ctx context.Context, req *UploadRequest) (*UploadResponse, error) {
	var result UploadResponse
	if err := c.post(ctx, "/upload", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HealthCheck checks if the automation sidecar is available
func (c *AutomationClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("automation service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// post sends a POST request with JSON body and parses the response
func (c *AutomationClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("automation service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *AutomationClient) IsConfigured() bool {
	return c.baseURL != ""
}
