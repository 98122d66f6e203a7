// Package imagegen is the per-item image generation client used for bible
// reference sheets and shot preview frames.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/internal/project"
	"clipforge/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings for the image service.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps a text-to-image HTTP API. One call renders one image; failure
// is signaled by the returned error.
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

// NewClient constructs an image generation client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Tier   string `json:"tier"`
}

type generateResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
	Usage struct {
		Credits float64 `json:"credits"`
	} `json:"usage"`
}

// GenerateImage implements services.ImageGenerator.
func (c *Client) GenerateImage(ctx context.Context, prompt string, tier project.Tier) (string, project.TokenUsage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", nil, services.Wrap(services.ErrValidation, "image", "generate", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", nil, services.Wrap(services.ErrConfiguration, "image", "generate", "api key required", nil)
	}

	encoded, err := json.Marshal(generateRequest{Model: c.cfg.Model, Prompt: prompt, Tier: string(tier)})
	if err != nil {
		return "", nil, fmt.Errorf("image request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", nil, fmt.Errorf("image request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "image", "generate", "", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "image", "generate", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", nil, services.Wrap(services.ErrExternalTool, "image", "generate",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", nil, services.Wrap(services.ErrExternalTool, "image", "parse", "", err)
	}
	if decoded.Error != "" {
		return "", nil, services.Wrap(services.ErrExternalTool, "image", "generate", strings.TrimSpace(decoded.Error), nil)
	}
	if decoded.URL == "" {
		return "", nil, services.Wrap(services.ErrExternalTool, "image", "generate", "response carried no image url", nil)
	}

	usage := project.TokenUsage{"images": map[string]any{"requests": 1, "credits": decoded.Usage.Credits}}
	return decoded.URL, usage, nil
}
