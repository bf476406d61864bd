// Package prompts is a client for the backend's prompt store. The
// store holds named instruction blocks (the voice agent's system
// instructions among them) so they can be edited server-side without
// redeploying this client.
package prompts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/argus-vision/go-argus/internal/httpc"
)

// ErrNotFound is returned when the backend has no prompt with the
// requested ID or name.
var ErrNotFound = errors.New("prompts: prompt not found")

// Prompt is a named instruction block stored by the backend.
// Timestamps arrive as backend-formatted strings and are passed
// through untouched.
type Prompt struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Update carries the fields of an existing prompt to change. Nil
// fields are left as they are.
type Update struct {
	Name    *string `json:"name,omitempty"`
	Content *string `json:"content,omitempty"`
}

type createRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Client talks to the backend's prompt store under /api/prompts.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a prompt store client for the given backend base
// URL. apiKey may be empty when the backend runs without authentication.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpc.Client,
	}
}

// List returns every stored prompt.
func (c *Client) List(ctx context.Context) ([]Prompt, error) {
	req, err := httpc.NewRequest(ctx, http.MethodGet, c.baseURL+"/api/prompts", nil)
	if err != nil {
		return nil, fmt.Errorf("prompts: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prompts: list failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var out []Prompt
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("prompts: decode list: %w", err)
	}
	return out, nil
}

// Get fetches one prompt by ID. Returns ErrNotFound when the backend
// has no prompt with that ID.
func (c *Client) Get(ctx context.Context, id int64) (*Prompt, error) {
	req, err := httpc.NewRequest(ctx, http.MethodGet, c.promptURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("prompts: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prompts: get failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var p Prompt
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("prompts: decode prompt: %w", err)
	}
	return &p, nil
}

// FindByName returns the prompt with the given name. The backend only
// addresses prompts by ID, so this lists and scans. Returns
// ErrNotFound when no prompt carries the name.
func (c *Client) FindByName(ctx context.Context, name string) (*Prompt, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create stores a new prompt. Names are unique; the backend rejects
// duplicates with a 400.
func (c *Client) Create(ctx context.Context, name, content string) (*Prompt, error) {
	if name == "" {
		return nil, fmt.Errorf("prompts: empty name")
	}

	body, err := json.Marshal(createRequest{Name: name, Content: content})
	if err != nil {
		return nil, fmt.Errorf("prompts: marshal request: %w", err)
	}

	req, err := httpc.NewRequest(ctx, http.MethodPost, c.baseURL+"/api/prompts", body)
	if err != nil {
		return nil, fmt.Errorf("prompts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prompts: create failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.apiError(resp)
	}

	var p Prompt
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("prompts: decode prompt: %w", err)
	}
	return &p, nil
}

// Update changes an existing prompt's name and/or content and returns
// the stored result.
func (c *Client) Update(ctx context.Context, id int64, u Update) (*Prompt, error) {
	if u.Name == nil && u.Content == nil {
		return nil, fmt.Errorf("prompts: empty update")
	}

	body, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("prompts: marshal request: %w", err)
	}

	req, err := httpc.NewRequest(ctx, http.MethodPut, c.promptURL(id), body)
	if err != nil {
		return nil, fmt.Errorf("prompts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prompts: update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var p Prompt
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("prompts: decode prompt: %w", err)
	}
	return &p, nil
}

// Delete removes a prompt by ID. Returns ErrNotFound when the backend
// has no prompt with that ID.
func (c *Client) Delete(ctx context.Context, id int64) error {
	req, err := httpc.NewRequest(ctx, http.MethodDelete, c.promptURL(id), nil)
	if err != nil {
		return fmt.Errorf("prompts: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("prompts: delete failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.apiError(resp)
	}
	return nil
}

func (c *Client) promptURL(id int64) string {
	return c.baseURL + "/api/prompts/" + strconv.FormatInt(id, 10)
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
		return fmt.Errorf("prompts: backend returned %d: %s", resp.StatusCode, detail.Detail)
	}
	return fmt.Errorf("prompts: backend returned %d", resp.StatusCode)
}
