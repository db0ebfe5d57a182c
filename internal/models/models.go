package models

import "time"

// Repository is a GitHub repository that has at least one generated changelog.
type Repository struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

// RepositorySummary is a Repository annotated for the index view.
type RepositorySummary struct {
	Repository
	LastUpdate *time.Time `json:"last_update" yaml:"last_update"`
	EntryCount int        `json:"entry_count" yaml:"entry_count"`
}

// ChangelogEntry is one generated changelog. Content holds markdown.
type ChangelogEntry struct {
	ID           string     `json:"id" yaml:"id"`
	RepositoryID string     `json:"repository_id" yaml:"repository_id"`
	Title        string     `json:"title" yaml:"title"`
	Content      string     `json:"content" yaml:"content"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
}

// Commit is a single commit as fed into the changelog prompt.
type Commit struct {
	Hash    string   `json:"hash"`
	Message string   `json:"message"`
	Author  string   `json:"author"`
	Date    string   `json:"date"`
	Changes []string `json:"changes"`
}

type Stats struct {
	Repositories int `json:"repositories" yaml:"repositories"`
	Entries      int `json:"entries" yaml:"entries"`
}
