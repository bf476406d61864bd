package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/argus-vision/go-argus/internal/httpc"
)

// TokenSource supplies the bearer key used on the realtime calls
// endpoint.
type TokenSource interface {
	// Token returns a key valid for one connection attempt.
	Token(ctx context.Context) (string, error)
}

// BackendTokenSource fetches short-lived ephemeral keys from the
// detection backend's /realtime/token endpoint. The backend holds the
// OpenAI API key and mints a scoped session key per request.
type BackendTokenSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBackendTokenSource creates a token source against the backend at
// baseURL. apiKey is the backend's own auth token and may be empty
// when the backend does not require it.
func NewBackendTokenSource(baseURL, apiKey string) *BackendTokenSource {
	return &BackendTokenSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpc.Client,
	}
}

// WithHTTPClient overrides the HTTP client used for token requests.
func (s *BackendTokenSource) WithHTTPClient(client *http.Client) *BackendTokenSource {
	s.httpClient = client
	return s
}

// Token fetches a fresh ephemeral key.
func (s *BackendTokenSource) Token(ctx context.Context) (string, error) {
	req, err := httpc.NewRequest(ctx, http.MethodGet, s.baseURL+"/realtime/token", nil)
	if err != nil {
		return "", fmt.Errorf("voice: build token request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice: fetch token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("voice: read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", tokenError(resp.StatusCode, body)
	}

	var payload struct {
		Status       string `json:"status"`
		EphemeralKey string `json:"ephemeral_key"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("voice: decode token response: %w", err)
	}
	if payload.EphemeralKey == "" {
		return "", ErrEmptyToken
	}
	return payload.EphemeralKey, nil
}

// tokenError maps a non-200 token response to an APIError, pulling the
// backend's detail message when present.
func tokenError(status int, body []byte) error {
	var detail struct {
		Detail string `json:"detail"`
	}
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		message = detail.Detail
	}
	return NewAPIError(status, "", message)
}

// StaticTokenSource returns the same key on every call. Useful for
// tests and for connecting with a standard API key directly.
type StaticTokenSource struct {
	key string
}

// NewStaticTokenSource creates a static token source.
func NewStaticTokenSource(key string) *StaticTokenSource {
	return &StaticTokenSource{key: key}
}

// Token returns the configured key.
func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s.key == "" {
		return "", ErrEmptyToken
	}
	return s.key, nil
}

var (
	_ TokenSource = (*BackendTokenSource)(nil)
	_ TokenSource = (*StaticTokenSource)(nil)
)
