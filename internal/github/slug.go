package github

import (
	"fmt"
	"strings"
)

// Slug identifies a repository as owner/repo.
type Slug struct {
	Owner string
	Repo  string
}

func (s Slug) String() string {
	return s.Owner + "/" + s.Repo
}

// URL is the repository's web URL, which is also its storage identity.
func (s Slug) URL() string {
	return "https://github.com/" + s.String()
}

// ParseSlug parses "owner/repo". Everything after the first slash is the
// repository name.
func ParseSlug(s string) (Slug, error) {
	s = strings.TrimSpace(s)
	owner, repo, ok := strings.Cut(s, "/")
	if !ok {
		return Slug{}, fmt.Errorf("%q is not in owner/repo format", s)
	}
	if owner == "" || repo == "" {
		return Slug{}, fmt.Errorf("%q: owner and repo must both be set", s)
	}
	return Slug{Owner: owner, Repo: repo}, nil
}

// ParseRepoURL takes the last two path segments of a repository URL as
// owner and repo. A trailing slash or .git suffix is ignored.
func ParseRepoURL(rawURL string) (Slug, error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(rawURL), "/"), ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return Slug{}, fmt.Errorf("cannot find owner/repo in %q", rawURL)
	}
	owner, repo := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || repo == "" {
		return Slug{}, fmt.Errorf("cannot find owner/repo in %q", rawURL)
	}
	return Slug{Owner: owner, Repo: repo}, nil
}
