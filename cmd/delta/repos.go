package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kevinmichaelchen/delta/internal/errs"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// resolveRepository finds a tracked repository by id, owner/repo name or URL.
func resolveRepository(ctx context.Context, db storage.Store, ref string) (models.Repository, error) {
	if r, err := db.GetRepository(ctx, ref); err == nil {
		return r, nil
	}

	repos, err := db.ListRepositories(ctx)
	if err != nil {
		return models.Repository{}, err
	}
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")
	name := ref
	if slug, err := parseRepoArg(ref); err == nil {
		name = slug.String()
	}
	for _, r := range repos {
		if strings.EqualFold(r.Name, name) || strings.EqualFold(r.URL, ref) {
			return r.Repository, nil
		}
	}
	return models.Repository{}, fmt.Errorf("repository %q: %w", ref, storage.ErrNotFound)
}

func reposCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List tracked repositories, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repos, err := db.ListRepositories(ctx)
			if err != nil {
				return err
			}
			if len(repos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No repositories yet")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREPOSITORY\tENTRIES\tLAST UPDATE")
			for _, r := range repos {
				last := "-"
				if r.LastUpdate != nil {
					last = r.LastUpdate.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Name, r.EntryCount, last)
			}
			return tw.Flush()
		},
	}
}

type exportDocument struct {
	Repository models.Repository       `json:"repository" yaml:"repository"`
	Entries    []models.ChangelogEntry `json:"entries" yaml:"entries"`
}

func writeExport(w io.Writer, format string, doc exportDocument) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errs.NewArgumentError(fmt.Sprintf("unknown format %q", format), "Use --format yaml or --format json")
	}
}

func exportCmd(a *app) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <repository>",
		Short: "Write a repository's changelog entries as YAML or JSON",
		Long:  "Write a repository's changelog entries as YAML or JSON. The repository is an id, owner/repo or URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo, err := resolveRepository(ctx, db, args[0])
			if err != nil {
				return err
			}
			entries, err := db.ListEntries(ctx, repo.ID)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []models.ChangelogEntry{}
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			return writeExport(out, strings.ToLower(format), exportDocument{Repository: repo, Entries: entries})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <repository>",
		Short: "Delete a repository and all of its changelog entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			repo, err := resolveRepository(ctx, db, args[0])
			if err != nil {
				return err
			}

			if !yes && !promptYesNo(cmd, fmt.Sprintf("Delete %s and all of its changelog entries?", repo.Name)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}

			if err := db.DeleteRepository(ctx, repo.ID); err != nil {
				return err
			}
			a.log.Info().Str("repo", repo.Name).Str("id", repo.ID).Msg("deleted repository")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", repo.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func promptYesNo(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)

	reader := bufio.NewReader(cmd.InOrStdin())
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))

	return answer == "y" || answer == "yes"
}
