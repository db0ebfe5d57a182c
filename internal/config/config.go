package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is the optional YAML config file read from the working directory.
const DefaultFile = "delta.yaml"

// Env files loaded before anything else. keys.env is where the wizard tells
// users to put their tokens.
var envFiles = []string{".env", "keys.env"}

const (
	SummarizerGreptile = "greptile"
	SummarizerOpenAI   = "openai"

	DriverSQLite   = "sqlite"
	DriverSurreal  = "surrealdb"
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	AppEnv   string `koanf:"app_env" validate:"omitempty,oneof=development production test"`
	LogLevel string `koanf:"log_level"`

	GitHubToken      string `koanf:"github_token"`
	GitHubAPIURL     string `koanf:"github_api_url" validate:"omitempty,url"`
	GitHubGraphQLURL string `koanf:"github_graphql_url" validate:"omitempty,url"`
	DiffConcurrency  int    `koanf:"diff_concurrency" validate:"gte=0,lte=32"`

	Summarizer        string `koanf:"summarizer" validate:"omitempty,oneof=greptile openai"`
	GreptileAPIKey    string `koanf:"greptile_api_key"`
	GreptileBaseURL   string `koanf:"greptile_base_url" validate:"omitempty,url"`
	GreptileSessionID string `koanf:"greptile_session_id"`

	LLMBaseURL string `koanf:"llm_base_url" validate:"omitempty,url"`
	LLMAPIKey  string `koanf:"llm_api_key"`
	LLMModel   string `koanf:"llm_model"`

	StorageDriver string `koanf:"storage_driver" validate:"omitempty,oneof=sqlite surrealdb"`
	SQLitePath    string `koanf:"sqlite_path"`

	SurrealURL  string `koanf:"surreal_url"`
	SurrealNS   string `koanf:"surreal_ns"`
	SurrealDB   string `koanf:"surreal_db"`
	SurrealUser string `koanf:"surreal_user"`
	SurrealPass string `koanf:"surreal_pass"`

	HTTPAddr string `koanf:"http_addr"`
}

// Load reads env files, the optional YAML file at path (DefaultFile when
// empty) and the process environment, in increasing priority.
func Load(path string) (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	if path == "" {
		path = DefaultFile
	}

	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyDefaults(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	// The SDK appends /rpc automatically
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/rpc")
	cfg.SurrealURL = strings.TrimSuffix(cfg.SurrealURL, "/")

	if cfg.AppEnv == "" {
		cfg.AppEnv = EnvDevelopment
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GitHubAPIURL == "" {
		cfg.GitHubAPIURL = "https://api.github.com"
	}
	if cfg.GitHubGraphQLURL == "" {
		cfg.GitHubGraphQLURL = "https://api.github.com/graphql"
	}
	if cfg.DiffConcurrency == 0 {
		cfg.DiffConcurrency = 4
	}
	if cfg.Summarizer == "" {
		cfg.Summarizer = SummarizerGreptile
	}
	if cfg.GreptileBaseURL == "" {
		cfg.GreptileBaseURL = "https://api.greptile.com/v2"
	}
	if cfg.GreptileSessionID == "" {
		cfg.GreptileSessionID = "default-session"
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "gpt-4o-mini"
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverSQLite
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "delta.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8000"
	}
}

// MissingCredentials lists the environment variables generate needs but
// that are unset for the configured summarizer.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.GitHubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	switch c.Summarizer {
	case SummarizerOpenAI:
		if c.LLMAPIKey == "" {
			missing = append(missing, "LLM_API_KEY")
		}
	default:
		if c.GreptileAPIKey == "" {
			missing = append(missing, "GREPTILE_API_KEY")
		}
	}
	return missing
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}
