// Package pipeline runs the fetch, summarize and save steps that turn a
// repository's recent commits into a stored changelog entry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kevinmichaelchen/delta/internal/changelog"
	"github.com/kevinmichaelchen/delta/internal/github"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/storage"
	"github.com/rs/zerolog"
)

const DefaultTitle = "Changelog"

var ErrNoCommits = errors.New("no commits found in the selected range")

// Summarizer turns a prompt about repo into markdown. Implemented by the
// Greptile and OpenAI-compatible clients.
type Summarizer interface {
	Summarize(ctx context.Context, repo, branch, prompt string) (string, error)
}

// CommitFetcher is the part of the GitHub client the pipeline needs.
type CommitFetcher interface {
	RepositoryExists(ctx context.Context, owner, repo string) (*github.RepoInfo, error)
	FetchCommits(ctx context.Context, owner, repo string, r models.CommitRange) ([]models.Commit, error)
}

type Generator struct {
	github     CommitFetcher
	summarizer Summarizer
	store      storage.Store
	log        zerolog.Logger
	now        func() time.Time
}

type Option func(*Generator)

func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func New(gh CommitFetcher, summarizer Summarizer, store storage.Store, opts ...Option) *Generator {
	g := &Generator{
		github:     gh,
		summarizer: summarizer,
		store:      store,
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Lookup confirms the repository exists and reports its default branch.
func (g *Generator) Lookup(ctx context.Context, slug github.Slug) (*github.RepoInfo, error) {
	return g.github.RepositoryExists(ctx, slug.Owner, slug.Repo)
}

func (g *Generator) Fetch(ctx context.Context, slug github.Slug, r models.CommitRange) ([]models.Commit, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	commits, err := g.github.FetchCommits(ctx, slug.Owner, slug.Repo, r)
	if err != nil {
		return nil, fmt.Errorf("fetching commits for %s: %w", slug, err)
	}

	g.log.Debug().
		Str("repo", slug.String()).
		Str("range", r.String()).
		Int("commits", len(commits)).
		Msg("fetched commits")
	return commits, nil
}

// Summarize returns ErrNoCommits for an empty list without calling the
// summarizer.
func (g *Generator) Summarize(ctx context.Context, slug github.Slug, branch string, commits []models.Commit) (string, error) {
	if len(commits) == 0 {
		return "", ErrNoCommits
	}

	start := g.now()
	out, err := g.summarizer.Summarize(ctx, slug.String(), branch, changelog.BuildPrompt(commits))
	if err != nil {
		return "", fmt.Errorf("summarizing %s: %w", slug, err)
	}

	g.log.Debug().
		Str("repo", slug.String()).
		Str("branch", branch).
		Dur("took", g.now().Sub(start)).
		Msg("summarized commits")
	return changelog.Clean(out), nil
}

// Save stores content as a new entry for slug, creating the repository on
// first use. An empty title becomes DefaultTitle.
func (g *Generator) Save(ctx context.Context, slug github.Slug, title, content string, commits []models.Commit) (models.Repository, models.ChangelogEntry, error) {
	repo, err := g.store.GetOrCreateRepository(ctx, slug.String(), slug.URL())
	if err != nil {
		return models.Repository{}, models.ChangelogEntry{}, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	now := g.now()
	entry, err := g.store.CreateEntry(ctx, models.ChangelogEntry{
		RepositoryID: repo.ID,
		Title:        title,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
		StartedAt:    changelog.EarliestCommitDate(commits),
	})
	if err != nil {
		return models.Repository{}, models.ChangelogEntry{}, err
	}

	g.log.Info().
		Str("repo", repo.Name).
		Str("entry_id", entry.ID).
		Str("title", entry.Title).
		Msg("saved changelog")
	return repo, entry, nil
}

type Options struct {
	Slug  github.Slug
	Range models.CommitRange
	Title string
	// Branch overrides the repository's default branch for the summarizer.
	Branch string
}

type Result struct {
	Repository models.Repository
	Entry      models.ChangelogEntry
	Commits    int
}

// Run looks the repository up, then fetches, summarizes and saves.
func (g *Generator) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Range.Validate(); err != nil {
		return nil, err
	}

	info, err := g.Lookup(ctx, opts.Slug)
	if err != nil {
		return nil, err
	}
	branch := opts.Branch
	if branch == "" {
		branch = info.DefaultBranch
	}

	commits, err := g.Fetch(ctx, opts.Slug, opts.Range)
	if err != nil {
		return nil, err
	}

	content, err := g.Summarize(ctx, opts.Slug, branch, commits)
	if err != nil {
		return nil, err
	}

	repo, entry, err := g.Save(ctx, opts.Slug, opts.Title, content, commits)
	if err != nil {
		return nil, err
	}

	return &Result{Repository: repo, Entry: entry, Commits: len(commits)}, nil
}
