// Package wizard walks a user through generating a changelog from the
// terminal: pick a repository and a commit range, review the summary, save.
package wizard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/kevinmichaelchen/delta/internal/changelog"
	"github.com/kevinmichaelchen/delta/internal/github"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/pipeline"
	"golang.org/x/term"
)

// Generator is the pipeline as the wizard drives it, one step at a time.
type Generator interface {
	Lookup(ctx context.Context, slug github.Slug) (*github.RepoInfo, error)
	Fetch(ctx context.Context, slug github.Slug, r models.CommitRange) ([]models.Commit, error)
	Summarize(ctx context.Context, slug github.Slug, branch string, commits []models.Commit) (string, error)
	Save(ctx context.Context, slug github.Slug, title, content string, commits []models.Commit) (models.Repository, models.ChangelogEntry, error)
}

type Wizard struct {
	in     *bufio.Reader
	out    io.Writer
	gen    Generator
	detect func() (github.Slug, error)
	today  func() time.Time
	spin   bool
}

type Option func(*Wizard)

// WithDetector supplies the default repository, typically from the git
// remote of the working directory.
func WithDetector(detect func() (github.Slug, error)) Option {
	return func(w *Wizard) { w.detect = detect }
}

func WithClock(now func() time.Time) Option {
	return func(w *Wizard) { w.today = now }
}

// WithSpinner shows a spinner while the summarizer runs.
func WithSpinner(on bool) Option {
	return func(w *Wizard) { w.spin = on }
}

func New(in io.Reader, out io.Writer, gen Generator, opts ...Option) *Wizard {
	w := &Wizard{
		in:    bufio.NewReader(in),
		out:   out,
		gen:   gen,
		today: time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// IsTerminal reports whether out is an interactive terminal.
func IsTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type Result struct {
	Repository models.Repository
	Entry      models.ChangelogEntry
}

// Run drives the whole flow. It returns a nil Result when nothing was saved
// because the fetch or summary failed or no commits were found; those
// outcomes are shown to the user rather than returned.
func (w *Wizard) Run(ctx context.Context) (*Result, error) {
	slug, info, err := w.askRepository(ctx)
	if err != nil {
		return nil, err
	}

	r, err := w.askRange()
	if err != nil {
		return nil, err
	}

	commits, err := w.gen.Fetch(ctx, slug, r)
	if err != nil {
		w.panel("Error", err.Error(), color.New(color.FgRed))
		return nil, nil
	}
	if len(commits) == 0 {
		w.panel("No commits", fmt.Sprintf("No commits found for %s (%s).", slug, r), color.New(color.FgYellow))
		return nil, nil
	}

	content, err := w.summarize(ctx, slug, info.DefaultBranch, commits)
	if err != nil {
		w.panel("Error", "Failed to generate changelog: "+err.Error(), color.New(color.FgRed))
		return nil, nil
	}
	w.panel("Changelog", changelog.FormatTerminal(content), color.New(color.FgGreen))

	title, err := w.promptText("Title", pipeline.DefaultTitle)
	if err != nil {
		return nil, err
	}

	repo, entry, err := w.gen.Save(ctx, slug, title, content, commits)
	if err != nil {
		return nil, fmt.Errorf("saving changelog: %w", err)
	}
	fmt.Fprintln(w.out, color.New(color.FgGreen).Sprintf("✓ Saved %q for %s", entry.Title, repo.Name))

	return &Result{Repository: repo, Entry: entry}, nil
}

func (w *Wizard) askRepository(ctx context.Context) (github.Slug, *github.RepoInfo, error) {
	def := ""
	if w.detect != nil {
		if s, err := w.detect(); err == nil {
			def = s.String()
		}
	}

	for {
		answer, err := w.promptText("Repository (owner/repo)", def)
		if err != nil {
			return github.Slug{}, nil, err
		}

		slug, err := github.ParseSlug(answer)
		if err != nil {
			w.warn("Invalid format. Use owner/repo, for example octocat/hello-world.")
			continue
		}

		info, err := w.gen.Lookup(ctx, slug)
		switch {
		case errors.Is(err, github.ErrRepoNotFound):
			w.warn(fmt.Sprintf("Repository %s was not found or is not accessible with your token.", slug))
			continue
		case err != nil:
			w.warn(fmt.Sprintf("Could not look up %s: %v", slug, err))
			continue
		}
		return slug, info, nil
	}
}

var presets = []struct {
	label string
	days  int
}{
	{"Last 24 hours", 1},
	{"Last 5 days", 5},
	{"Last 10 days", 10},
	{"Last 30 days", 30},
}

func (w *Wizard) askRange() (models.CommitRange, error) {
	mode, err := w.promptSelect("Select commits by", []string{"Number of commits", "Date range"}, 0)
	if err != nil {
		return models.CommitRange{}, err
	}

	if mode == 0 {
		n, err := w.promptPositiveInt("Number of commits", 1)
		if err != nil {
			return models.CommitRange{}, err
		}
		return models.LastCommits(n), nil
	}

	today := truncateDay(w.today())

	options := make([]string, 0, len(presets)+1)
	for _, p := range presets {
		options = append(options, p.label)
	}
	options = append(options, "Custom range")

	choice, err := w.promptSelect("Date range", options, 0)
	if err != nil {
		return models.CommitRange{}, err
	}
	if choice < len(presets) {
		return models.Between(today.AddDate(0, 0, -presets[choice].days), today), nil
	}

	for {
		since, err := w.promptDate("Start date", today.AddDate(0, 0, -7))
		if err != nil {
			return models.CommitRange{}, err
		}
		until, err := w.promptDate("End date", today)
		if err != nil {
			return models.CommitRange{}, err
		}

		r := models.Between(since, until)
		if err := r.Validate(); err != nil {
			w.warn(err.Error())
			continue
		}
		return r, nil
	}
}

func (w *Wizard) summarize(ctx context.Context, slug github.Slug, branch string, commits []models.Commit) (string, error) {
	if w.spin {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w.out))
		s.Suffix = fmt.Sprintf(" Summarizing %d commits...", len(commits))
		s.Start()
		defer s.Stop()
	}
	return w.gen.Summarize(ctx, slug, branch, commits)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
