package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/kevinmichaelchen/delta/internal/errs"
	"github.com/kevinmichaelchen/delta/internal/github"
	"github.com/kevinmichaelchen/delta/internal/gitremote"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/pipeline"
	"github.com/kevinmichaelchen/delta/internal/wizard"
	"github.com/spf13/cobra"
)

type generateFlags struct {
	repo   string
	count  int
	since  string
	until  string
	title  string
	branch string
}

func (f generateFlags) hasRange() bool {
	return f.count != 0 || f.since != "" || f.until != ""
}

// commitRange turns the flags into a range. Count and dates are mutually
// exclusive.
func (f generateFlags) commitRange() (models.CommitRange, error) {
	if f.count != 0 && (f.since != "" || f.until != "") {
		return models.CommitRange{}, errs.NewArgumentError(models.ErrConflictingRange.Error(),
			"Use --count on its own, or --since/--until on their own")
	}
	if f.count != 0 {
		r := models.LastCommits(f.count)
		if err := r.Validate(); err != nil {
			return models.CommitRange{}, errs.NewArgumentError(err.Error())
		}
		return r, nil
	}

	r, err := models.ParseDateRange(f.since, f.until)
	if err != nil {
		return models.CommitRange{}, errs.NewArgumentError(err.Error(), "Dates use the YYYY-MM-DD format")
	}
	if err := r.Validate(); err != nil {
		return models.CommitRange{}, errs.NewArgumentError(err.Error())
	}
	return r, nil
}

// parseRepoArg accepts owner/repo or a repository URL such as
// https://github.com/owner/repo.git.
func parseRepoArg(s string) (github.Slug, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") || strings.HasPrefix(s, "github.com/") {
		return github.ParseRepoURL(s)
	}
	return github.ParseSlug(s)
}

func generateCmd(a *app) *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Summarize recent commits into a stored changelog",
		Long: `Summarize recent commits into a stored changelog.

With no range flags the command runs an interactive wizard. Pass --count, or
--since/--until, to run non-interactively.`,
		Example: `  delta generate
  delta generate --repo octocat/hello-world --count 10
  delta generate --repo octocat/hello-world --since 2024-01-01 --until 2024-01-31 --title "January"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireCredentials(); err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			gen := pipeline.New(a.newGitHub(), a.newSummarizer(), db, pipeline.WithLogger(a.log))

			if !f.hasRange() {
				return runWizard(cmd, gen, f.repo)
			}

			if f.repo == "" {
				return errs.NewArgumentError("--repo is required with --count, --since or --until",
					"Pass --repo owner/repo, or drop the range flags to use the wizard")
			}
			slug, err := parseRepoArg(f.repo)
			if err != nil {
				return errs.NewArgumentError(err.Error())
			}
			r, err := f.commitRange()
			if err != nil {
				return err
			}

			res, err := gen.Run(ctx, pipeline.Options{Slug: slug, Range: r, Title: f.title, Branch: f.branch})
			if errors.Is(err, pipeline.ErrNoCommits) {
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgYellow).Sprintf("No commits found for %s (%s). Nothing saved.", slug, r))
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, color.New(color.FgGreen).Sprintf("✓ Saved %q for %s (%d commits)", res.Entry.Title, res.Repository.Name, res.Commits))
			fmt.Fprintln(out)
			fmt.Fprintln(out, res.Entry.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.repo, "repo", "r", "", "Repository as owner/repo or its GitHub URL")
	cmd.Flags().IntVarP(&f.count, "count", "n", 0, "Summarize the last N commits")
	cmd.Flags().StringVar(&f.since, "since", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.until, "until", "", "End date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&f.title, "title", "t", pipeline.DefaultTitle, "Title of the saved entry")
	cmd.Flags().StringVar(&f.branch, "branch", "", "Branch to summarize against (default: the repository's default branch)")
	return cmd
}

func runWizard(cmd *cobra.Command, gen *pipeline.Generator, repo string) error {
	detect := func() (github.Slug, error) {
		if repo != "" {
			return parseRepoArg(repo)
		}
		return gitremote.Detect("")
	}

	w := wizard.New(cmd.InOrStdin(), cmd.OutOrStdout(), gen,
		wizard.WithDetector(detect),
		wizard.WithSpinner(wizard.IsTerminal(cmd.OutOrStdout())),
	)

	_, err := w.Run(cmd.Context())
	if errors.Is(err, wizard.ErrAborted) {
		return nil
	}
	return err
}
