// Package greptile is a small client for the Greptile code-intelligence API:
// indexing a GitHub repository and asking questions about it.
package greptile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultBaseURL   = "https://api.greptile.com/v2"
	DefaultSessionID = "default-session"

	remoteGitHub = "github"
)

var ErrUnauthorized = errors.New("unauthorized: check your Greptile and GitHub tokens")

// APIError is a non-2xx response other than 401.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Greptile API returned %d: %s", e.Status, e.Body)
}

type Client struct {
	apiKey      string
	githubToken string
	baseURL     string
	sessionID   string
	httpClient  *http.Client
}

type Option func(*Client)

func WithSessionID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.sessionID = id
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL, apiKey, githubToken string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:      apiKey,
		githubToken: githubToken,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		sessionID:   DefaultSessionID,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize makes sure repo is indexed, then asks prompt against it in the
// client's session.
func (c *Client) Summarize(ctx context.Context, repo, branch, prompt string) (string, error) {
	if _, err := c.InitRepository(ctx, repo, branch, false, false); err != nil {
		return "", err
	}
	return c.Query(ctx, prompt, repo, branch, c.sessionID)
}

type repositoryRequest struct {
	Reload     bool   `json:"reload"`
	Remote     string `json:"remote"`
	Repository string `json:"repository"`
	Branch     string `json:"branch"`
	Notify     bool   `json:"notify"`
}

// InitRepository asks Greptile to index repo at branch. Indexing an already
// indexed repository is a no-op unless reload is set.
func (c *Client) InitRepository(ctx context.Context, repo, branch string, reload, notify bool) (map[string]any, error) {
	body, err := c.post(ctx, "/repositories", repositoryRequest{
		Reload:     reload,
		Remote:     remoteGitHub,
		Repository: repo,
		Branch:     branch,
		Notify:     notify,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing %s: %w", repo, err)
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing repository response: %w", err)
	}
	return out, nil
}

type message struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Role    string `json:"role"`
}

type queryRepository struct {
	Remote     string `json:"remote"`
	Branch     string `json:"branch"`
	Repository string `json:"repository"`
}

type queryRequest struct {
	Messages     []message         `json:"messages"`
	Repositories []queryRepository `json:"repositories"`
	SessionID    string            `json:"sessionId"`
	Stream       bool              `json:"stream"`
	Genius       bool              `json:"genius"`
}

// Query sends prompt as a single user message scoped to repo and returns
// the normalized markdown answer.
func (c *Client) Query(ctx context.Context, prompt, repo, branch, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	body, err := c.post(ctx, "/query", queryRequest{
		Messages:     []message{{ID: "1", Content: prompt, Role: "user"}},
		Repositories: []queryRepository{{Remote: remoteGitHub, Branch: branch, Repository: repo}},
		SessionID:    sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("querying %s: %w", repo, err)
	}

	return NormalizeResponse(body)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-GitHub-Token", c.githubToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}
