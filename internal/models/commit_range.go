package models

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for date range bounds.
const DateLayout = "2006-01-02"

var (
	ErrConflictingRange = errors.New("specify either a number of commits or a date range, not both")
	ErrEmptyRange       = errors.New("specify either a number of commits or a date range")
)

// CommitRange selects commits either by count (most recent first) or by a
// closed calendar-date interval. The two modes are mutually exclusive.
// Zero values mean "unset".
type CommitRange struct {
	Count int
	Since time.Time
	Until time.Time
}

// LastCommits selects the n most recent commits.
func LastCommits(n int) CommitRange {
	return CommitRange{Count: n}
}

// Between selects commits authored between since 00:00:00 and until 23:59:59 UTC.
func Between(since, until time.Time) CommitRange {
	return CommitRange{Since: since, Until: until}
}

// ParseDateRange parses YYYY-MM-DD bounds. Either may be empty.
func ParseDateRange(since, until string) (CommitRange, error) {
	var r CommitRange
	if since != "" {
		t, err := time.Parse(DateLayout, since)
		if err != nil {
			return CommitRange{}, fmt.Errorf("parsing start date %q: %w", since, err)
		}
		r.Since = t
	}
	if until != "" {
		t, err := time.Parse(DateLayout, until)
		if err != nil {
			return CommitRange{}, fmt.Errorf("parsing end date %q: %w", until, err)
		}
		r.Until = t
	}
	return r, nil
}

func (r CommitRange) IsCount() bool {
	return r.Count != 0
}

func (r CommitRange) IsDateRange() bool {
	return !r.Since.IsZero() || !r.Until.IsZero()
}

func (r CommitRange) Validate() error {
	switch {
	case r.IsCount() && r.IsDateRange():
		return ErrConflictingRange
	case r.IsCount():
		if r.Count < 0 {
			return fmt.Errorf("number of commits must be positive, got %d", r.Count)
		}
	case r.IsDateRange():
		if !r.Since.IsZero() && !r.Until.IsZero() && r.Until.Before(r.Since) {
			return fmt.Errorf("end date %s is before start date %s",
				r.Until.Format(DateLayout), r.Since.Format(DateLayout))
		}
	default:
		return ErrEmptyRange
	}
	return nil
}

func (r CommitRange) String() string {
	if r.IsCount() {
		return fmt.Sprintf("last %d commits", r.Count)
	}
	since, until := "beginning", "now"
	if !r.Since.IsZero() {
		since = r.Since.Format(DateLayout)
	}
	if !r.Until.IsZero() {
		until = r.Until.Format(DateLayout)
	}
	return since + " to " + until
}
