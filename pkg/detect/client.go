package detect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/argus-vision/go-argus/internal/httpc"
)

// Client performs one-shot inference calls against the backend's REST
// surface. The realtime path lives in pkg/stream; this client exists
// for probes, batch jobs and callers that do not hold a socket open.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a REST client for the given backend base URL.
// apiKey may be empty when the backend runs without authentication.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpc.Client,
	}
}

// Result is the backend's response to a one-shot detection request.
type Result struct {
	Image      ImageSize       `json:"image"`
	Detections []WireDetection `json:"detections"`
	LatencyMS  float64         `json:"latency_ms_total"`
}

// HealthInfo is the backend's health probe response.
type HealthInfo struct {
	Status string `json:"status"`
	Device string `json:"device"`
	Model  string `json:"model"`
}

type detectRequest struct {
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Params
}

// Detect runs inference on an encoded image (JPEG or PNG bytes).
func (c *Client) Detect(ctx context.Context, image []byte, params Params) (*Result, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("detect: empty image")
	}
	req := detectRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
		Params:      params,
	}
	return c.detect(ctx, req)
}

// DetectURL runs inference on an image the backend fetches itself.
func (c *Client) DetectURL(ctx context.Context, url string, params Params) (*Result, error) {
	if url == "" {
		return nil, fmt.Errorf("detect: empty image URL")
	}
	return c.detect(ctx, detectRequest{ImageURL: url, Params: params})
}

func (c *Client) detect(ctx context.Context, dr detectRequest) (*Result, error) {
	body, err := json.Marshal(dr)
	if err != nil {
		return nil, fmt.Errorf("detect: marshal request: %w", err)
	}

	req, err := httpc.NewRequest(ctx, http.MethodPost, c.baseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("detect: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("detect: decode response: %w", err)
	}
	return &result, nil
}

// Health probes the backend's /health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	req, err := httpc.NewRequest(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("detect: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var info HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("detect: decode health: %w", err)
	}
	return &info, nil
}

// Stats fetches the backend's performance counters as raw JSON.
// The shape varies between backend versions, so callers get a map.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	req, err := httpc.NewRequest(ctx, http.MethodGet, c.baseURL+"/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("detect: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: stats request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("detect: decode stats: %w", err)
	}
	return stats, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return fmt.Errorf("detect: backend returned %d: %s", resp.StatusCode, detail.Detail)
	}
	return fmt.Errorf("detect: backend returned %d", resp.StatusCode)
}
