package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitRangeValidate(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse(DateLayout, s)
		require.NoError(t, err)
		return d
	}

	tests := map[string]struct {
		r       CommitRange
		wantErr error
		errMsg  string
	}{
		"count":           {r: LastCommits(5)},
		"date range":      {r: Between(day("2024-01-01"), day("2024-01-10"))},
		"only since":      {r: CommitRange{Since: day("2024-01-01")}},
		"only until":      {r: CommitRange{Until: day("2024-01-01")}},
		"same day":        {r: Between(day("2024-01-01"), day("2024-01-01"))},
		"both modes":      {r: CommitRange{Count: 3, Since: day("2024-01-01")}, wantErr: ErrConflictingRange},
		"neither mode":    {r: CommitRange{}, wantErr: ErrEmptyRange},
		"negative count":  {r: LastCommits(-2), errMsg: "must be positive"},
		"inverted bounds": {r: Between(day("2024-02-01"), day("2024-01-01")), errMsg: "before start date"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.r.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-03-01", "")
	require.NoError(t, err)
	assert.True(t, r.IsDateRange())
	assert.True(t, r.Until.IsZero())
	assert.Equal(t, "2024-03-01 to now", r.String())

	_, err = ParseDateRange("03/01/2024", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing start date")
}

func TestCommitRangeString(t *testing.T) {
	assert.Equal(t, "last 3 commits", LastCommits(3).String())
}
