package gitremote

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRemoteURL(t *testing.T) {
	tests := map[string]struct {
		url     string
		want    string
		wantErr bool
	}{
		"https":        {url: "https://github.com/octo/hello.git", want: "octo/hello"},
		"https no git": {url: "https://github.com/octo/hello", want: "octo/hello"},
		"ssh":          {url: "git@github.com:octo/hello.git", want: "octo/hello"},
		"ssh scheme":   {url: "ssh://git@github.com/octo/hello.git", want: "octo/hello"},
		"gitlab":       {url: "https://gitlab.com/octo/hello.git", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseRemoteURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoGitHubRemote)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func initRepo(t *testing.T, remoteURL string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	if remoteURL != "" {
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{remoteURL}})
		require.NoError(t, err)
	}
	return dir
}

func TestDetectFromSubdirectory(t *testing.T) {
	dir := initRepo(t, "git@github.com:octo/hello.git")
	sub := filepath.Join(dir, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	slug, err := Detect(sub)
	require.NoError(t, err)
	assert.Equal(t, "octo/hello", slug.String())
}

func TestDetectNonGitHubRemote(t *testing.T) {
	dir := initRepo(t, "https://example.com/octo/hello.git")

	_, err := Detect(dir)
	assert.ErrorIs(t, err, ErrNoGitHubRemote)
}

func TestDetectWithoutOrigin(t *testing.T) {
	dir := initRepo(t, "")

	_, err := Detect(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading origin remote")
}

func TestDetectOutsideRepository(t *testing.T) {
	_, err := Detect(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening repository")
}
