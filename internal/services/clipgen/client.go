// Package clipgen submits image-to-video clip jobs and reports their
// status. Jobs are long-running; completion is observed by the workflow's
// poller or by a push callback, never by blocking here.
package clipgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipforge/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings for the clip service.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// Client wraps the clip job HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a clip service client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitRequest struct {
	ShotID         string  `json:"shotId"`
	ImageURL       string  `json:"imageUrl"`
	Prompt         string  `json:"prompt"`
	DurationSec    float64 `json:"durationSec"`
	Tier           string  `json:"tier"`
	CameraMotion   string  `json:"cameraMotion,omitempty"`
	LipSync        bool    `json:"lipSync,omitempty"`
	AudioURL       string  `json:"audioUrl,omitempty"`
	FrameRate      int     `json:"frameRate"`
	NegativePrompt string  `json:"negativePrompt"`
	Workflow       string  `json:"workflow"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
	Error string `json:"error"`
}

type statusResponse struct {
	Progress  *int   `json:"progress"`
	Status    string `json:"status"`
	ResultURL string `json:"resultUrl"`
	Error     string `json:"error"`
}

// Submit implements the submission half of services.ClipService.
func (c *Client) Submit(ctx context.Context, job services.ClipJob) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "clip", "submit", "api key required", nil)
	}
	if job.ImageURL == "" {
		return "", services.Wrap(services.ErrValidation, "clip", "submit", "image reference required", nil)
	}

	payload := submitRequest{
		ShotID:         job.ShotID,
		ImageURL:       job.ImageURL,
		Prompt:         job.Prompt,
		DurationSec:    job.DurationSec,
		Tier:           string(job.Tier),
		CameraMotion:   job.CameraMotion,
		LipSync:        job.LipSync,
		AudioURL:       job.AudioURL,
		FrameRate:      job.FrameRate,
		NegativePrompt: job.NegativePrompt,
		Workflow:       job.WorkflowHint,
	}
	body, err := c.post(ctx, c.cfg.BaseURL+"/jobs", payload)
	if err != nil {
		return "", err
	}

	var decoded submitResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "clip", "submit", "decode response", err)
	}
	if decoded.Error != "" {
		return "", services.Wrap(services.ErrExternalTool, "clip", "submit", strings.TrimSpace(decoded.Error), nil)
	}
	if decoded.JobID == "" {
		return "", services.Wrap(services.ErrExternalTool, "clip", "submit", "response carried no job id", nil)
	}
	return decoded.JobID, nil
}

// Status implements the polling half of services.ClipService.
func (c *Client) Status(ctx context.Context, jobID string) (services.JobStatus, error) {
	var empty services.JobStatus
	if jobID == "" {
		return empty, services.Wrap(services.ErrValidation, "clip", "status", "job id required", nil)
	}

	endpoint := c.cfg.BaseURL + "/jobs/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return empty, fmt.Errorf("clip status: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrExternalTool, "clip", "status", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return empty, services.Wrap(services.ErrExternalTool, "clip", "status", "read body", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return empty, services.Wrap(services.ErrNotFound, "clip", "status", "unknown job "+jobID, nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, services.Wrap(services.ErrExternalTool, "clip", "status",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var decoded statusResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, services.Wrap(services.ErrExternalTool, "clip", "status", "decode response", err)
	}
	status := services.JobStatus{
		Progress:  decoded.Progress,
		Done:      strings.EqualFold(decoded.Status, "succeeded"),
		ResultURL: decoded.ResultURL,
		Err:       strings.TrimSpace(decoded.Error),
	}
	if strings.EqualFold(decoded.Status, "failed") && status.Err == "" {
		status.Err = "clip job failed"
	}
	return status, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("clip request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("clip request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "clip", "submit", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "clip", "submit", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrExternalTool, "clip", "submit",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return body, nil
}
