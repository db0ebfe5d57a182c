package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kevinmichaelchen/delta/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAPIURL     = "https://api.github.com"
	DefaultGraphQLURL = "https://api.github.com/graphql"

	acceptJSON = "application/vnd.github+json"
	acceptDiff = "application/vnd.github.v3.diff"

	maxPerPage = 100
)

var ErrRepoNotFound = errors.New("repository not found")

// Client talks to the GitHub REST API for commits and diffs, and to the
// GraphQL API for repository lookups.
type Client struct {
	token       string
	apiURL      string
	graphqlURL  string
	concurrency int
	httpClient  *http.Client
}

type Option func(*Client)

func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = strings.TrimSuffix(u, "/") }
}

func WithGraphQLURL(u string) Option {
	return func(c *Client) { c.graphqlURL = u }
}

// WithConcurrency bounds the number of diff requests in flight.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:       token,
		apiURL:      DefaultAPIURL,
		graphqlURL:  DefaultGraphQLURL,
		concurrency: 4,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from GitHub.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API returned %d: %s", e.Status, e.Body)
}

// RepoInfo is what RepositoryExists learns about a repository.
type RepoInfo struct {
	NameWithOwner string
	URL           string
	DefaultBranch string
}

const repoQuery = `
query($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    nameWithOwner
    url
    defaultBranchRef { name }
  }
}
`

// RepositoryExists looks the repository up with the caller's token.
// Returns ErrRepoNotFound when GitHub has no such repository or the token
// cannot see it.
func (c *Client) RepositoryExists(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	body, err := c.doGraphQL(ctx, repoQuery, map[string]any{"owner": owner, "name": repo})
	if err != nil {
		if strings.Contains(err.Error(), "Could not resolve to a Repository") {
			return nil, fmt.Errorf("%s/%s: %w", owner, repo, ErrRepoNotFound)
		}
		return nil, err
	}

	var data struct {
		Repository *struct {
			NameWithOwner    string `json:"nameWithOwner"`
			URL              string `json:"url"`
			DefaultBranchRef *struct {
				Name string `json:"name"`
			} `json:"defaultBranchRef"`
		} `json:"repository"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if data.Repository == nil {
		return nil, fmt.Errorf("%s/%s: %w", owner, repo, ErrRepoNotFound)
	}

	info := &RepoInfo{
		NameWithOwner: data.Repository.NameWithOwner,
		URL:           data.Repository.URL,
		DefaultBranch: "main",
	}
	if ref := data.Repository.DefaultBranchRef; ref != nil && ref.Name != "" {
		info.DefaultBranch = ref.Name
	}
	return info, nil
}

// FetchCommits lists the commits selected by r and attaches each commit's
// diff. Output order matches GitHub's listing order (newest first).
func (c *Client) FetchCommits(ctx context.Context, owner, repo string, r models.CommitRange) ([]models.Commit, error) {
	strategy, err := StrategyFor(r)
	if err != nil {
		return nil, err
	}

	listed, err := strategy.List(ctx, c, owner, repo)
	if err != nil {
		return nil, err
	}

	return c.attachDiffs(ctx, owner, repo, listed)
}

// --- internal ---

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type commitNode struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// listPage fetches one page of /repos/{owner}/{repo}/commits.
func (c *Client) listPage(ctx context.Context, owner, repo string, params url.Values) ([]commitNode, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits?%s", c.apiURL, url.PathEscape(owner), url.PathEscape(repo), params.Encode())

	body, err := c.doREST(ctx, endpoint, acceptJSON)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}

	var nodes []commitNode
	if err := json.Unmarshal(body, &nodes); err != nil {
		return nil, fmt.Errorf("parsing commit list: %w", err)
	}
	return nodes, nil
}

func (c *Client) fetchDiff(ctx context.Context, owner, repo, sha string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits/%s", c.apiURL, url.PathEscape(owner), url.PathEscape(repo), sha)
	body, err := c.doREST(ctx, endpoint, acceptDiff)
	if err != nil {
		return "", fmt.Errorf("fetching diff for %s: %w", sha, err)
	}
	return string(body), nil
}

func (c *Client) attachDiffs(ctx context.Context, owner, repo string, nodes []commitNode) ([]models.Commit, error) {
	commits := make([]models.Commit, len(nodes))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, node := range nodes {
		g.Go(func() error {
			diff, err := c.fetchDiff(gCtx, owner, repo, node.SHA)
			if err != nil {
				return err
			}
			commits[i] = nodeToCommit(node, diff)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return commits, nil
}

func (c *Client) doREST(ctx context.Context, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	return c.do(req)
}

func (c *Client) doGraphQL(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	reqBody, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var gqlResp graphqlResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("parsing GraphQL response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("GraphQL error: %s", gqlResp.Errors[0].Message)
	}

	return gqlResp.Data, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

func nodeToCommit(n commitNode, diff string) models.Commit {
	changes := []string{}
	if diff != "" {
		changes = append(changes, diff)
	}
	return models.Commit{
		Hash:    n.SHA,
		Message: strings.TrimSpace(n.Commit.Message),
		Author:  n.Commit.Author.Name,
		Date:    n.Commit.Author.Date,
		Changes: changes,
	}
}
