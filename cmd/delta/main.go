package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kevinmichaelchen/delta/internal/config"
	"github.com/kevinmichaelchen/delta/internal/errs"
	"github.com/kevinmichaelchen/delta/internal/github"
	"github.com/kevinmichaelchen/delta/internal/greptile"
	"github.com/kevinmichaelchen/delta/internal/llm"
	"github.com/kevinmichaelchen/delta/internal/logger"
	"github.com/kevinmichaelchen/delta/internal/pipeline"
	"github.com/kevinmichaelchen/delta/internal/sqlite"
	"github.com/kevinmichaelchen/delta/internal/storage"
	"github.com/kevinmichaelchen/delta/internal/surrealdb"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app carries what every command needs once the root has loaded config.
type app struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "delta",
		Short:         "Changelogs from GitHub commits, summarized by Greptile",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultFile, "Path to an optional YAML config file")

	root.AddCommand(
		schemaCmd(a),
		generateCmd(a),
		serveCmd(a),
		reposCmd(a),
		exportCmd(a),
		deleteCmd(a),
		statsCmd(a),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprint(os.Stderr, errs.Format(toCLIError(err)))
		os.Exit(1)
	}
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return errs.NewConfigError(err.Error(),
			"Check the values in "+a.configPath+" and your environment",
			"STORAGE_DRIVER must be sqlite or surrealdb; SUMMARIZER must be greptile or openai")
	}
	a.cfg = cfg
	a.log = logger.New(cfg.LogLevel, cfg.IsProduction())
	return nil
}

func toCLIError(err error) *errs.CLIError {
	var cliErr *errs.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	switch {
	case errors.Is(err, greptile.ErrUnauthorized):
		return errs.NewRuntimeError("Greptile rejected the request", err,
			"Check GREPTILE_API_KEY and GITHUB_TOKEN in keys.env")
	case errors.Is(err, github.ErrRepoNotFound):
		return errs.NewRuntimeError("Repository not found", err,
			"Check the owner/repo spelling",
			"Private repositories need a GITHUB_TOKEN with access to them")
	case errors.Is(err, storage.ErrNotFound):
		return errs.NewRuntimeError("Not found", err, "Run 'delta repos' to list tracked repositories")
	}
	return errs.NewRuntimeError("Command failed", err)
}

// requireCredentials fails with a configuration error naming every unset
// credential the configured summarizer needs.
func (a *app) requireCredentials() error {
	missing := a.cfg.MissingCredentials()
	if len(missing) == 0 {
		return nil
	}
	steps := make([]string, 0, len(missing)+1)
	steps = append(steps, "Add them to keys.env in the working directory:")
	for _, key := range missing {
		steps = append(steps, key+"=...")
	}
	return errs.NewConfigError("Missing credentials: "+strings.Join(missing, ", "), steps...)
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	switch a.cfg.StorageDriver {
	case config.DriverSurreal:
		db, err := surrealdb.NewClient(ctx, a.cfg)
		if err != nil {
			return nil, err
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	default:
		db, err := sqlite.Open(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

func (a *app) newSummarizer() pipeline.Summarizer {
	if a.cfg.Summarizer == config.SummarizerOpenAI {
		return llm.NewClient(a.cfg.LLMBaseURL, a.cfg.LLMAPIKey, a.cfg.LLMModel)
	}
	return greptile.NewClient(a.cfg.GreptileBaseURL, a.cfg.GreptileAPIKey, a.cfg.GitHubToken,
		greptile.WithSessionID(a.cfg.GreptileSessionID))
}

func (a *app) newGitHub() *github.Client {
	return github.NewClient(a.cfg.GitHubToken,
		github.WithAPIURL(a.cfg.GitHubAPIURL),
		github.WithGraphQLURL(a.cfg.GitHubGraphQLURL),
		github.WithConcurrency(a.cfg.DiffConcurrency),
	)
}

func schemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Initialize/update the storage schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := db.InitSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema initialized (%s)\n", a.cfg.StorageDriver)
			return nil
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show repository and changelog entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			stats, err := db.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Repositories: %d\n", stats.Repositories)
			fmt.Fprintf(out, "Entries:      %d\n", stats.Entries)
			return nil
		},
	}
}
