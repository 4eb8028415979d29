package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimestampIsFixedWidth(t *testing.T) {
	ts := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 23, 59, 59, 999_000_000, time.UTC),
		time.Date(999, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	for _, v := range ts {
		assert.Len(t, FormatTimestamp(v), len(TimestampLayout))
	}
	assert.Equal(t, "2025-03-10T00:00:00.000Z", FormatTimestamp(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.Less(t, FormatTimestamp(ts[0]), FormatTimestamp(ts[1]))
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)

	got, err := ParseTimestamp("2025-03-10T00:00:00.000Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, loc, got.Location())

	got, err = ParseTimestamp("2025-03-10", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)))

	_, err = ParseTimestamp("10/03/2025", loc)
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	in := time.Date(2025, 1, 15, 23, 30, 0, 0, time.UTC) // 01:30 on the 16th in loc

	start := StartOfDay(in, loc)
	end := EndOfDay(in, loc)
	assert.Equal(t, time.Date(2025, 1, 16, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 1, 16, 23, 59, 59, 999_000_000, loc), end)
}

func TestLastDayOfMonth(t *testing.T) {
	assert.Equal(t, 31, LastDayOfMonth(2025, time.January))
	assert.Equal(t, 28, LastDayOfMonth(2025, time.February))
	assert.Equal(t, 29, LastDayOfMonth(2024, time.February))
	assert.Equal(t, 30, LastDayOfMonth(2025, time.April))
	assert.Equal(t, 31, LastDayOfMonth(2025, time.December))
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.March, m)

	_, _, err = ParseMonth("2025-13")
	assert.Error(t, err)
}
