package github

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/kevinmichaelchen/delta/internal/models"
)

// Strategy determines which commits are listed for a changelog.
//
// Commit counts and date ranges map onto different query parameters of the
// commits endpoint. GitHub caps per_page at 100, so both strategies keep
// paging until they are satisfied or the history runs out.
type Strategy interface {
	// List returns commit metadata in GitHub's order (newest first),
	// without diffs.
	List(ctx context.Context, c *Client, owner, repo string) ([]commitNode, error)
}

// StrategyFor validates r and picks the matching strategy. A range that sets
// both a count and dates, or neither, is rejected.
func StrategyFor(r models.CommitRange) (Strategy, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.IsCount() {
		return CountStrategy{N: r.Count}, nil
	}
	return DateRangeStrategy{Since: r.Since, Until: r.Until}, nil
}

// CountStrategy lists the N most recent commits.
type CountStrategy struct {
	N int
}

func (s CountStrategy) List(ctx context.Context, c *Client, owner, repo string) ([]commitNode, error) {
	perPage := min(s.N, maxPerPage)

	var all []commitNode
	for page := 1; len(all) < s.N; page++ {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(perPage))
		if page > 1 {
			params.Set("page", strconv.Itoa(page))
		}

		nodes, err := c.listPage(ctx, owner, repo, params)
		if err != nil {
			return nil, err
		}
		all = append(all, nodes...)

		if len(nodes) < perPage {
			break
		}
	}

	if len(all) > s.N {
		all = all[:s.N]
	}
	return all, nil
}

// DateRangeStrategy lists every commit from Since 00:00:00Z through
// Until 23:59:59Z. A zero bound is left open.
type DateRangeStrategy struct {
	Since time.Time
	Until time.Time
}

func (s DateRangeStrategy) params() url.Values {
	params := url.Values{}
	if !s.Since.IsZero() {
		params.Set("since", s.Since.Format(models.DateLayout)+"T00:00:00Z")
	}
	if !s.Until.IsZero() {
		params.Set("until", s.Until.Format(models.DateLayout)+"T23:59:59Z")
	}
	params.Set("per_page", strconv.Itoa(maxPerPage))
	return params
}

func (s DateRangeStrategy) List(ctx context.Context, c *Client, owner, repo string) ([]commitNode, error) {
	var all []commitNode

	for page := 1; ; page++ {
		params := s.params()
		if page > 1 {
			params.Set("page", strconv.Itoa(page))
		}

		nodes, err := c.listPage(ctx, owner, repo, params)
		if err != nil {
			return nil, err
		}
		all = append(all, nodes...)

		if len(nodes) < maxPerPage {
			return all, nil
		}
	}
}
