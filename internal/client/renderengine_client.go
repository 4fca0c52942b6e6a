package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clipforge/api/internal/config"
	"github.com/clipforge/api/internal/model"
)

// RenderEngine defines the interface to the external video render engine. The
// engine is an opaque renderer: it bundles its composition templates and turns
// a template id plus a prop bag into a finished file, or fails.
type RenderEngine interface {
	Bundle(ctx context.Context) ([]model.Template, error)
	Render(ctx context.Context, req *RenderRequest) (*RenderOutput, error)
	IsConfigured() bool
}

// RenderRequest is the invocation payload for a single render.
type RenderRequest struct {
	TemplateID string                 `json:"templateId"`
	Props      map[string]interface{} `json:"props"`
	Quality    model.Quality          `json:"quality,omitempty"`
	FrameRange *[2]int                `json:"frameRange,omitempty"`
}

// RenderOutput is what the engine returns on success.
type RenderOutput struct {
	OutputFile string `json:"outputFile"`
	FileSize   int64  `json:"fileSize"`
}

// bundleResponse is the engine's template listing.
type bundleResponse struct {
	Templates []model.Template `json:"templates"`
}

// EngineClient implements RenderEngine over the engine's HTTP API.
type EngineClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewEngineClient creates a render engine client.
func NewEngineClient(cfg *config.RenderEngineConfig, logger *zap.Logger) *EngineClient {
	return &EngineClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// Bundle fetches the engine's template catalog. Bundling is expensive on the
// engine side; callers are expected to cache the result.
func (c *EngineClient) Bundle(ctx context.Context) ([]model.Template, error) {
	var resp bundleResponse
	if err := c.get(ctx, "/v1/templates", &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// Render invokes the engine once for the given request and blocks until the
// engine returns a file or an error.
func (c *EngineClient) Render(ctx context.Context, req *RenderRequest) (*RenderOutput, error) {
	var out RenderOutput
	if err := c.post(ctx, "/v1/render", req, &out); err != nil {
		return nil, err
	}
	if out.OutputFile == "" {
		return nil, fmt.Errorf("render engine returned no output file")
	}
	return &out, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *EngineClient) IsConfigured() bool {
	return c.baseURL != ""
}

// post sends a POST request with JSON body
func (c *EngineClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *EngineClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *EngineClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("render engine request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

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
		c.logger.Warn("render engine error",
			zap.Int("status", resp.StatusCode),
			zap.String("url", req.URL.String()))
		return fmt.Errorf("render engine error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
