// Package gitremote finds the GitHub repository the working directory is a
// checkout of, so the wizard can offer it as the default.
package gitremote

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/go-git/go-git/v5"
	"github.com/kevinmichaelchen/delta/internal/github"
)

var ErrNoGitHubRemote = errors.New("origin is not a GitHub remote")

var remotePattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+)`)

// Detect opens the repository containing path (the working directory when
// empty) and parses its origin remote.
func Detect(path string) (github.Slug, error) {
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return github.Slug{}, fmt.Errorf("getting current directory: %w", err)
		}
	}

	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return github.Slug{}, fmt.Errorf("opening repository at %s: %w", path, err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return github.Slug{}, fmt.Errorf("reading origin remote: %w", err)
	}

	for _, u := range remote.Config().URLs {
		if slug, err := ParseRemoteURL(u); err == nil {
			return slug, nil
		}
	}
	return github.Slug{}, ErrNoGitHubRemote
}

// ParseRemoteURL accepts both HTTPS and SCP-style SSH GitHub remotes.
func ParseRemoteURL(u string) (github.Slug, error) {
	m := remotePattern.FindStringSubmatch(u)
	if m == nil {
		return github.Slug{}, fmt.Errorf("%q: %w", u, ErrNoGitHubRemote)
	}
	return github.Slug{Owner: m[1], Repo: m[2]}, nil
}
