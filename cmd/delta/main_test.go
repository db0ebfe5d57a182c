package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kevinmichaelchen/delta/internal/config"
	"github.com/kevinmichaelchen/delta/internal/errs"
	"github.com/kevinmichaelchen/delta/internal/github"
	"github.com/kevinmichaelchen/delta/internal/greptile"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/sqlite"
	"github.com/kevinmichaelchen/delta/internal/storage"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerateFlagsCommitRange(t *testing.T) {
	tests := []struct {
		name    string
		flags   generateFlags
		want    models.CommitRange
		wantErr string
	}{
		{
			name:  "count",
			flags: generateFlags{count: 10},
			want:  models.LastCommits(10),
		},
		{
			name:  "dates",
			flags: generateFlags{since: "2024-01-01", until: "2024-01-31"},
			want: models.Between(
				time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			),
		},
		{
			name:    "both",
			flags:   generateFlags{count: 3, since: "2024-01-01"},
			wantErr: models.ErrConflictingRange.Error(),
		},
		{
			name:    "negative count",
			flags:   generateFlags{count: -1},
			wantErr: "must be positive",
		},
		{
			name:    "bad date",
			flags:   generateFlags{since: "01/02/2024"},
			wantErr: "parsing start date",
		},
		{
			name:    "reversed",
			flags:   generateFlags{since: "2024-02-01", until: "2024-01-01"},
			wantErr: "before start date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.commitRange()
			if tt.wantErr != "" {
				require.Error(t, err)
				var cliErr *errs.CLIError
				require.ErrorAs(t, err, &cliErr)
				assert.Equal(t, errs.Argument, cliErr.Category)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Count, got.Count)
			assert.True(t, tt.want.Since.Equal(got.Since))
			assert.True(t, tt.want.Until.Equal(got.Until))
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	a := &app{cfg: &config.Config{Summarizer: config.SummarizerGreptile}}

	err := a.requireCredentials()
	var cliErr *errs.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, errs.Configuration, cliErr.Category)
	assert.Contains(t, cliErr.Message, "GITHUB_TOKEN, GREPTILE_API_KEY")
	assert.Contains(t, cliErr.Remediation[0], "keys.env")

	a.cfg.GitHubToken, a.cfg.GreptileAPIKey = "gh", "gt"
	assert.NoError(t, a.requireCredentials())
}

func TestToCLIError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "unauthorized", err: fmt.Errorf("querying: %w", greptile.ErrUnauthorized), wantMsg: "Greptile rejected"},
		{name: "repo not found", err: fmt.Errorf("a/b: %w", github.ErrRepoNotFound), wantMsg: "Repository not found"},
		{name: "store not found", err: storage.ErrNotFound, wantMsg: "Not found"},
		{name: "other", err: fmt.Errorf("boom"), wantMsg: "Command failed"},
		{name: "passthrough", err: errs.NewArgumentError("bad flag"), wantMsg: "bad flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, toCLIError(tt.err).Message, tt.wantMsg)
		})
	}
}

func seed(t *testing.T) (*sqlite.Store, models.Repository) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "delta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := db.GetOrCreateRepository(ctx, "acme/rocket", "https://github.com/acme/rocket")
	require.NoError(t, err)
	_, err = db.CreateEntry(ctx, models.ChangelogEntry{RepositoryID: repo.ID, Title: "Changelog", Content: "- x"})
	require.NoError(t, err)
	return db, repo
}

func TestResolveRepository(t *testing.T) {
	db, repo := seed(t)
	ctx := context.Background()

	refs := []string{
		repo.ID,
		"acme/rocket",
		"ACME/Rocket",
		"https://github.com/acme/rocket/",
		"https://github.com/acme/rocket.git",
		"github.com/acme/rocket",
	}
	for _, ref := range refs {
		got, err := resolveRepository(ctx, db, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, repo.ID, got.ID, ref)
	}

	_, err := resolveRepository(ctx, db, "acme/missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestParseRepoArg(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"slug":        {in: "acme/rocket", want: "acme/rocket"},
		"https url":   {in: "https://github.com/acme/rocket", want: "acme/rocket"},
		"git suffix":  {in: " https://github.com/acme/rocket.git ", want: "acme/rocket"},
		"no scheme":   {in: "github.com/acme/rocket/", want: "acme/rocket"},
		"bare name":   {in: "rocket", wantErr: true},
		"url no repo": {in: "https://github.com/", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseRepoArg(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestWriteExport(t *testing.T) {
	db, repo := seed(t)
	entries, err := db.ListEntries(context.Background(), repo.ID)
	require.NoError(t, err)
	doc := exportDocument{Repository: repo, Entries: entries}

	var buf bytes.Buffer
	require.NoError(t, writeExport(&buf, "yaml", doc))

	var decoded struct {
		Repository struct {
			Name string `yaml:"name"`
		} `yaml:"repository"`
		Entries []struct {
			Title   string `yaml:"title"`
			Content string `yaml:"content"`
		} `yaml:"entries"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "acme/rocket", decoded.Repository.Name)
	require.Len(t, decoded.Entries, 1)
	assert.Equal(t, "- x", decoded.Entries[0].Content)

	buf.Reset()
	require.NoError(t, writeExport(&buf, "json", doc))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"repository\""))

	assert.Error(t, writeExport(&buf, "toml", doc))
}

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.SetIn(strings.NewReader(tt.input))
			cmd.SetOut(&bytes.Buffer{})
			assert.Equal(t, tt.want, promptYesNo(cmd, "Delete?"))
		})
	}
}
