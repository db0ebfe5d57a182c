// Package storage defines the persistence contract shared by the SQLite and
// SurrealDB backends.
package storage

import (
	"context"
	"errors"

	"github.com/kevinmichaelchen/delta/internal/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Store persists repositories and their changelog entries.
//
// Repository URLs are unique. Deleting a repository deletes its entries.
type Store interface {
	// InitSchema creates or updates tables and indexes. Safe to repeat.
	InitSchema(ctx context.Context) error

	// GetOrCreateRepository returns the repository with url, creating it
	// with name when absent.
	GetOrCreateRepository(ctx context.Context, name, url string) (models.Repository, error)
	GetRepository(ctx context.Context, id string) (models.Repository, error)
	// ListRepositories orders by most recent entry first; repositories
	// without entries come last.
	ListRepositories(ctx context.Context) ([]models.RepositorySummary, error)
	DeleteRepository(ctx context.Context, id string) error

	CreateEntry(ctx context.Context, entry models.ChangelogEntry) (models.ChangelogEntry, error)
	// ListEntries returns a repository's entries, newest first.
	ListEntries(ctx context.Context, repositoryID string) ([]models.ChangelogEntry, error)

	Stats(ctx context.Context) (models.Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
