package birthday

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr error
	}{
		{in: "15-08-1990", want: Date{Day: 15, Month: 8, Year: 1990}},
		{in: "1-1-2000", want: Date{Day: 1, Month: 1, Year: 2000}},
		{in: "29-02-2000", want: Date{Day: 29, Month: 2, Year: 2000}},
		{in: "29-02-2001", wantErr: ErrInvalidDay},
		{in: "31-04-1990", wantErr: ErrInvalidDay},
		{in: "00-04-1990", wantErr: ErrInvalidDay},
		{in: "10-13-1990", wantErr: ErrInvalidMonth},
		{in: "10-00-1990", wantErr: ErrInvalidMonth},
		{in: "aa-01-1990", wantErr: ErrBadChars},
		{in: "15/08/1990", wantErr: ErrBadFormat},
		{in: "15-08", wantErr: ErrBadFormat},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "01-01-2000", Date{Day: 1, Month: 1, Year: 2000}.String())
}

func TestDaysUntil(t *testing.T) {
	tests := []struct {
		name  string
		date  Date
		today time.Time
		want  int
	}{
		{"today", Date{15, 8, 1990}, time.Date(2026, 8, 15, 23, 0, 0, 0, time.UTC), 0},
		{"tomorrow", Date{16, 8, 1990}, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), 1},
		{"yesterday wraps", Date{14, 8, 1990}, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), 364},
		{"wrap into leap year", Date{1, 3, 1990}, time.Date(2027, 3, 2, 0, 0, 0, 0, time.UTC), 365},
		{"leap day in common year", Date{29, 2, 2000}, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 1},
		{"across dst change", Date{1, 4, 1990}, time.Date(2026, 3, 20, 12, 0, 0, 0, time.FixedZone("CET", 3600)), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.date.DaysUntil(tt.today)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 365)
		})
	}
}

func TestUpsertDistinguishesSavedAndUpdated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "birthdays.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	updated, err := s.Upsert(Entry{UserID: "u1", Mention: "@ana", Birthday: "15-08-1990", Month: "agosto"})
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = s.Upsert(Entry{UserID: "u1", Mention: "@ana", Birthday: "16-08-1990", Month: "agosto"})
	require.NoError(t, err)
	assert.True(t, updated)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "16-08-1990", entries[0].Birthday)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"userId": "u1"`)
}

func TestListMissingFileIsEmpty(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "birthdays.json"))
	require.NoError(t, err)
	entries, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "birthdays.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	s, err := NewStore(path)
	require.NoError(t, err)

	_, err = s.List()
	assert.Error(t, err)
}

func TestUpcomingSortedByCountdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "birthdays.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"userId": "a", "mention": "@a", "birthday": "01-01-1990", "month": "enero"},
  {"userId": "b", "mention": "@b", "birthday": "20-08-1985", "month": "agosto"},
  {"userId": "c", "mention": "@c", "birthday": "bogus", "month": ""},
  {"userId": "d", "mention": "@d", "birthday": "15-08-2001", "month": "agosto"}
]`), 0644))
	s, err := NewStore(path)
	require.NoError(t, err)

	up, err := s.Upcoming(time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, up, 3)
	assert.Equal(t, "@d", up[0].Mention)
	assert.Equal(t, 0, up[0].Days)
	assert.Equal(t, "@b", up[1].Mention)
	assert.Equal(t, 5, up[1].Days)
	assert.Equal(t, "@a", up[2].Mention)
	assert.Equal(t, 1, up[2].Birth.Day)
}

func TestConcurrentUpsertsKeepEveryEntry(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "birthdays.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Upsert(Entry{UserID: fmt.Sprintf("u%d", i), Birthday: "01-01-2000"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}
