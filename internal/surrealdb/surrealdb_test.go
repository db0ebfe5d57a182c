package surrealdb

import (
	"testing"
	"time"

	"github.com/kevinmichaelchen/delta/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestToSummariesOrdering(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	rows := []summaryRow{
		{ID: "1", Name: "zeta/empty"},
		{ID: "2", Name: "acme/old", LastUpdate: ptr(toMillis(base)), EntryCount: 2},
		{ID: "3", Name: "alpha/empty"},
		{ID: "4", Name: "acme/new", LastUpdate: ptr(toMillis(base.Add(time.Hour))), EntryCount: 1},
	}

	got := toSummaries(rows)
	require.Len(t, got, 4)

	ids := make([]string, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"4", "2", "3", "1"}, ids)
	assert.Nil(t, got[2].LastUpdate)
	require.NotNil(t, got[0].LastUpdate)
	assert.True(t, base.Add(time.Hour).Equal(*got[0].LastUpdate))
}

func TestEntryData(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		entry       models.ChangelogEntry
		wantStarted bool
	}{
		{
			name:  "without start",
			entry: models.ChangelogEntry{RepositoryID: "r", Title: "t", CreatedAt: created, UpdatedAt: created},
		},
		{
			name: "with start",
			entry: models.ChangelogEntry{
				RepositoryID: "r", Title: "t", CreatedAt: created, UpdatedAt: created,
				StartedAt: ptr(created.Add(-time.Hour)),
			},
			wantStarted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := entryData(tt.entry)
			assert.Equal(t, toMillis(created), data["created_at"])
			_, ok := data["started_at"]
			assert.Equal(t, tt.wantStarted, ok)
		})
	}
}

func TestEntryRowToModel(t *testing.T) {
	ms := int64(1714557600000)
	row := entryRow{ID: "e", RepositoryID: "r", Title: "t", Content: "c", CreatedAt: ms, UpdatedAt: ms, StartedAt: &ms}

	e := row.toModel()
	assert.Equal(t, "e", e.ID)
	assert.Equal(t, time.UnixMilli(ms).UTC(), e.CreatedAt)
	require.NotNil(t, e.StartedAt)
	assert.Equal(t, ms, e.StartedAt.UnixMilli())
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{name: "float", in: float64(3), want: 3},
		{name: "int", in: 4, want: 4},
		{name: "int64", in: int64(5), want: 5},
		{name: "uint64", in: uint64(6), want: 6},
		{name: "other", in: "7", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toInt(tt.in))
		})
	}
}
