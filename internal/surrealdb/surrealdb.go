// Package surrealdb is the SurrealDB storage backend.
package surrealdb

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevinmichaelchen/delta/internal/config"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/storage"
	sdk "github.com/surrealdb/surrealdb.go"
)

const (
	repositoryTable = "repository"
	entryTable      = "changelog_entry"

	closeTimeout = 5 * time.Second
)

type Client struct {
	db *sdk.DB
}

var _ storage.Store = (*Client)(nil)

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.SurrealURL == "" {
		return nil, fmt.Errorf("SURREAL_URL is required: %w", storage.ErrInvalidArgument)
	}

	db, err := sdk.FromEndpointURLString(ctx, cfg.SurrealURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, sdk.Auth{
		Namespace: cfg.SurrealNS,
		Database:  cfg.SurrealDB,
		Username:  cfg.SurrealUser,
		Password:  cfg.SurrealPass,
	}); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("signing in: %w", err)
	}

	if err := db.Use(ctx, cfg.SurrealNS, cfg.SurrealDB); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("selecting ns/db: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return c.db.Close(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	if _, err := sdk.Query[any](ctx, c.db, `RETURN true`, nil); err != nil {
		return fmt.Errorf("pinging SurrealDB: %w", err)
	}
	return nil
}

func (c *Client) InitSchema(ctx context.Context) error {
	schema := `
DEFINE TABLE IF NOT EXISTS repository SCHEMAFULL;

DEFINE FIELD IF NOT EXISTS name ON TABLE repository TYPE string;
DEFINE FIELD IF NOT EXISTS url  ON TABLE repository TYPE string;

DEFINE INDEX IF NOT EXISTS idx_repository_url ON TABLE repository FIELDS url UNIQUE;

DEFINE TABLE IF NOT EXISTS changelog_entry SCHEMAFULL;

DEFINE FIELD IF NOT EXISTS repository_id ON TABLE changelog_entry TYPE string;
DEFINE FIELD IF NOT EXISTS title         ON TABLE changelog_entry TYPE string;
DEFINE FIELD IF NOT EXISTS content       ON TABLE changelog_entry TYPE string;
DEFINE FIELD IF NOT EXISTS created_at    ON TABLE changelog_entry TYPE int;
DEFINE FIELD IF NOT EXISTS updated_at    ON TABLE changelog_entry TYPE int;
DEFINE FIELD IF NOT EXISTS started_at    ON TABLE changelog_entry TYPE option<int>;

DEFINE INDEX IF NOT EXISTS idx_entry_repository ON TABLE changelog_entry FIELDS repository_id, created_at;

DEFINE EVENT IF NOT EXISTS cascade_entries ON TABLE repository
	WHEN $event = "DELETE"
	THEN (DELETE changelog_entry WHERE repository_id = record::id($before.id));
`
	_, err := sdk.Query[any](ctx, c.db, schema, nil)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Client) GetOrCreateRepository(ctx context.Context, name, url string) (models.Repository, error) {
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if name == "" || url == "" {
		return models.Repository{}, fmt.Errorf("repository name and url are required: %w", storage.ErrInvalidArgument)
	}

	if r, ok, err := c.repositoryByURL(ctx, url); err != nil || ok {
		return r, err
	}

	_, createErr := sdk.Query[any](ctx, c.db,
		`CREATE type::thing($tb, $id) CONTENT $data`,
		map[string]any{
			"tb":   repositoryTable,
			"id":   uuid.NewString(),
			"data": map[string]any{"name": name, "url": url},
		})

	// A concurrent writer may have won the unique index; read back either way.
	r, ok, err := c.repositoryByURL(ctx, url)
	if err != nil {
		return models.Repository{}, err
	}
	if !ok {
		if createErr != nil {
			return models.Repository{}, fmt.Errorf("creating repository %s: %w", url, createErr)
		}
		return models.Repository{}, fmt.Errorf("repository %s: %w", url, storage.ErrNotFound)
	}
	return r, nil
}

func (c *Client) repositoryByURL(ctx context.Context, url string) (models.Repository, bool, error) {
	results, err := sdk.Query[[]models.Repository](ctx, c.db,
		`SELECT record::id(id) AS id, name, url FROM repository WHERE url = $url LIMIT 1`,
		map[string]any{"url": url})
	if err != nil {
		return models.Repository{}, false, fmt.Errorf("querying repository %s: %w", url, err)
	}
	if len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.Repository{}, false, nil
	}
	return (*results)[0].Result[0], true, nil
}

func (c *Client) GetRepository(ctx context.Context, id string) (models.Repository, error) {
	results, err := sdk.Query[[]models.Repository](ctx, c.db,
		`SELECT record::id(id) AS id, name, url FROM type::thing($tb, $id)`,
		map[string]any{"tb": repositoryTable, "id": id})
	if err != nil {
		return models.Repository{}, fmt.Errorf("querying repository: %w", err)
	}
	if len(*results) == 0 || len((*results)[0].Result) == 0 {
		return models.Repository{}, storage.ErrNotFound
	}
	return (*results)[0].Result[0], nil
}

type summaryRow struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	LastUpdate *int64 `json:"last_update"`
	EntryCount int    `json:"entry_count"`
}

func (c *Client) ListRepositories(ctx context.Context) ([]models.RepositorySummary, error) {
	results, err := sdk.Query[[]summaryRow](ctx, c.db,
		`SELECT
			record::id(id) AS id, name, url,
			math::max((SELECT VALUE created_at FROM changelog_entry WHERE repository_id = record::id($parent.id))) AS last_update,
			count((SELECT id FROM changelog_entry WHERE repository_id = record::id($parent.id))) AS entry_count
		FROM repository`, nil)
	if err != nil {
		return nil, fmt.Errorf("querying repositories: %w", err)
	}
	if len(*results) == 0 {
		return nil, nil
	}
	return toSummaries((*results)[0].Result), nil
}

// toSummaries converts rows and orders them newest activity first, with
// repositories that have no entries last.
func toSummaries(rows []summaryRow) []models.RepositorySummary {
	out := make([]models.RepositorySummary, 0, len(rows))
	for _, row := range rows {
		s := models.RepositorySummary{
			Repository: models.Repository{ID: row.ID, Name: row.Name, URL: row.URL},
			EntryCount: row.EntryCount,
		}
		if row.LastUpdate != nil && row.EntryCount > 0 {
			t := fromMillis(*row.LastUpdate)
			s.LastUpdate = &t
		}
		out = append(out, s)
	}

	slices.SortStableFunc(out, func(a, b models.RepositorySummary) int {
		switch {
		case a.LastUpdate == nil && b.LastUpdate == nil:
			return cmp.Compare(a.Name, b.Name)
		case a.LastUpdate == nil:
			return 1
		case b.LastUpdate == nil:
			return -1
		}
		if c := b.LastUpdate.Compare(*a.LastUpdate); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func (c *Client) DeleteRepository(ctx context.Context, id string) error {
	if _, err := c.GetRepository(ctx, id); err != nil {
		return err
	}

	_, err := sdk.Query[any](ctx, c.db,
		`BEGIN TRANSACTION;
		DELETE changelog_entry WHERE repository_id = $id;
		DELETE type::thing($tb, $id);
		COMMIT TRANSACTION;`,
		map[string]any{"tb": repositoryTable, "id": id})
	if err != nil {
		return fmt.Errorf("deleting repository %s: %w", id, err)
	}
	return nil
}

type entryRow struct {
	ID           string `json:"id"`
	RepositoryID string `json:"repository_id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
	StartedAt    *int64 `json:"started_at"`
}

func (r entryRow) toModel() models.ChangelogEntry {
	e := models.ChangelogEntry{
		ID:           r.ID,
		RepositoryID: r.RepositoryID,
		Title:        r.Title,
		Content:      r.Content,
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
	if r.StartedAt != nil {
		t := fromMillis(*r.StartedAt)
		e.StartedAt = &t
	}
	return e
}

// entryData builds the record content for entry. started_at is left out
// rather than sent as null, which SurrealDB rejects for option<int>.
func entryData(entry models.ChangelogEntry) map[string]any {
	data := map[string]any{
		"repository_id": entry.RepositoryID,
		"title":         entry.Title,
		"content":       entry.Content,
		"created_at":    toMillis(entry.CreatedAt),
		"updated_at":    toMillis(entry.UpdatedAt),
	}
	if entry.StartedAt != nil {
		data["started_at"] = toMillis(*entry.StartedAt)
	}
	return data
}

func (c *Client) CreateEntry(ctx context.Context, entry models.ChangelogEntry) (models.ChangelogEntry, error) {
	if entry.RepositoryID == "" {
		return models.ChangelogEntry{}, fmt.Errorf("repository id is required: %w", storage.ErrInvalidArgument)
	}
	if strings.TrimSpace(entry.Title) == "" {
		return models.ChangelogEntry{}, fmt.Errorf("title is required: %w", storage.ErrInvalidArgument)
	}
	if _, err := c.GetRepository(ctx, entry.RepositoryID); err != nil {
		return models.ChangelogEntry{}, fmt.Errorf("repository %s: %w", entry.RepositoryID, err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	_, err := sdk.Query[any](ctx, c.db,
		`CREATE type::thing($tb, $id) CONTENT $data`,
		map[string]any{
			"tb":   entryTable,
			"id":   entry.ID,
			"data": entryData(entry),
		})
	if err != nil {
		return models.ChangelogEntry{}, fmt.Errorf("creating changelog entry: %w", err)
	}

	row := entryRow{
		ID:           entry.ID,
		RepositoryID: entry.RepositoryID,
		Title:        entry.Title,
		Content:      entry.Content,
		CreatedAt:    toMillis(entry.CreatedAt),
		UpdatedAt:    toMillis(entry.UpdatedAt),
	}
	if entry.StartedAt != nil {
		ms := toMillis(*entry.StartedAt)
		row.StartedAt = &ms
	}
	return row.toModel(), nil
}

func (c *Client) ListEntries(ctx context.Context, repositoryID string) ([]models.ChangelogEntry, error) {
	results, err := sdk.Query[[]entryRow](ctx, c.db,
		`SELECT record::id(id) AS id, repository_id, title, content, created_at, updated_at, started_at
		FROM changelog_entry
		WHERE repository_id = $repository_id
		ORDER BY created_at DESC`,
		map[string]any{"repository_id": repositoryID})
	if err != nil {
		return nil, fmt.Errorf("querying changelog entries: %w", err)
	}
	if len(*results) == 0 {
		return nil, nil
	}

	rows := (*results)[0].Result
	out := make([]models.ChangelogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	results, err := sdk.Query[[]map[string]any](ctx, c.db,
		`SELECT count() AS total FROM repository GROUP ALL;
		SELECT count() AS total FROM changelog_entry GROUP ALL;`,
		nil)
	if err != nil {
		return models.Stats{}, fmt.Errorf("getting stats: %w", err)
	}
	return models.Stats{
		Repositories: totalAt(*results, 0),
		Entries:      totalAt(*results, 1),
	}, nil
}

func totalAt(results []sdk.QueryResult[[]map[string]any], i int) int {
	if i >= len(results) || len(results[i].Result) == 0 {
		return 0
	}
	return toInt(results[i].Result[0]["total"])
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	default:
		return 0
	}
}
