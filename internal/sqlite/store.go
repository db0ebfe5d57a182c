// Package sqlite is the default storage backend, a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/kevinmichaelchen/delta/internal/sqlite/migrations"
	"github.com/kevinmichaelchen/delta/internal/storage"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required: %w", storage.ErrInvalidArgument)
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) InitSchema(ctx context.Context) error {
	if err := applyMigrations(ctx, s.db, migrations.FS); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) GetOrCreateRepository(ctx context.Context, name, url string) (models.Repository, error) {
	name, url = strings.TrimSpace(name), strings.TrimSpace(url)
	if name == "" || url == "" {
		return models.Repository{}, fmt.Errorf("repository name and url are required: %w", storage.ErrInvalidArgument)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO repositories (id, name, url) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		uuid.NewString(), name, url,
	); err != nil {
		return models.Repository{}, fmt.Errorf("create repository %s: %w", url, err)
	}

	var r models.Repository
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, url FROM repositories WHERE url = ?`, url,
	).Scan(&r.ID, &r.Name, &r.URL)
	if err != nil {
		return models.Repository{}, fmt.Errorf("get repository %s: %w", url, err)
	}
	return r, nil
}

func (s *Store) GetRepository(ctx context.Context, id string) (models.Repository, error) {
	var r models.Repository
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, url FROM repositories WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.URL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Repository{}, storage.ErrNotFound
		}
		return models.Repository{}, fmt.Errorf("get repository: %w", err)
	}
	return r, nil
}

func (s *Store) ListRepositories(ctx context.Context) ([]models.RepositorySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.url, MAX(e.created_at) AS last_update, COUNT(e.id)
		   FROM repositories r
		   LEFT JOIN changelog_entries e ON e.repository_id = r.id
		  GROUP BY r.id, r.name, r.url
		  ORDER BY last_update IS NULL, last_update DESC, r.name`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.RepositorySummary
	for rows.Next() {
		var (
			r          models.RepositorySummary
			lastUpdate sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.URL, &lastUpdate, &r.EntryCount); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		if lastUpdate.Valid {
			t := fromMillis(lastUpdate.Int64)
			r.LastUpdate = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return out, nil
}

// DeleteRepository removes the repository and its entries. The foreign key
// cascades too; the explicit delete keeps that true on connections opened
// without foreign_keys.
func (s *Store) DeleteRepository(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM changelog_entries WHERE repository_id = ?`, id); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete repository: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (s *Store) CreateEntry(ctx context.Context, entry models.ChangelogEntry) (models.ChangelogEntry, error) {
	if entry.RepositoryID == "" {
		return models.ChangelogEntry{}, fmt.Errorf("repository id is required: %w", storage.ErrInvalidArgument)
	}
	if strings.TrimSpace(entry.Title) == "" {
		return models.ChangelogEntry{}, fmt.Errorf("title is required: %w", storage.ErrInvalidArgument)
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
	entry.CreatedAt = fromMillis(toMillis(entry.CreatedAt))
	entry.UpdatedAt = fromMillis(toMillis(entry.UpdatedAt))

	var startedAt sql.NullInt64
	if entry.StartedAt != nil {
		startedAt = sql.NullInt64{Int64: toMillis(*entry.StartedAt), Valid: true}
		t := fromMillis(startedAt.Int64)
		entry.StartedAt = &t
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO changelog_entries (id, repository_id, title, content, created_at, updated_at, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RepositoryID, entry.Title, entry.Content,
		toMillis(entry.CreatedAt), toMillis(entry.UpdatedAt), startedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.ChangelogEntry{}, fmt.Errorf("repository %s: %w", entry.RepositoryID, storage.ErrNotFound)
		}
		return models.ChangelogEntry{}, fmt.Errorf("create changelog entry: %w", err)
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, repositoryID string) ([]models.ChangelogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, repository_id, title, content, created_at, updated_at, started_at
		   FROM changelog_entries
		  WHERE repository_id = ?
		  ORDER BY created_at DESC, id`,
		repositoryID)
	if err != nil {
		return nil, fmt.Errorf("list changelog entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ChangelogEntry
	for rows.Next() {
		var (
			e                    models.ChangelogEntry
			createdAt, updatedAt int64
			startedAt            sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.RepositoryID, &e.Title, &e.Content, &createdAt, &updatedAt, &startedAt); err != nil {
			return nil, fmt.Errorf("scan changelog entry: %w", err)
		}
		e.CreatedAt = fromMillis(createdAt)
		e.UpdatedAt = fromMillis(updatedAt)
		if startedAt.Valid {
			t := fromMillis(startedAt.Int64)
			e.StartedAt = &t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list changelog entries: %w", err)
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(1) FROM repositories), (SELECT COUNT(1) FROM changelog_entries)`,
	).Scan(&st.Repositories, &st.Entries)
	if err != nil {
		return models.Stats{}, fmt.Errorf("getting stats: %w", err)
	}
	return st, nil
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
