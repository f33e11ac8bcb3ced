package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Day("2024-02-29"), d)

	for _, bad := range []string{"", "2024-2-1", "2023-02-29", "yesterday", "2024-05-10T00:00:00Z"} {
		_, err := ParseDay(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestDay_AddDaysAndBetween(t *testing.T) {
	d := Day("2024-12-31")
	assert.Equal(t, Day("2025-01-01"), d.AddDays(1))
	assert.Equal(t, Day("2024-12-29"), d.AddDays(-2))
	assert.Equal(t, Day("broken"), Day("broken").AddDays(3))

	n, err := DaysBetween("2024-02-27", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = DaysBetween("2024-03-01", "2024-02-27")
	require.NoError(t, err)
	assert.Equal(t, -3, n)
	_, err = DaysBetween("x", "2024-03-01")
	assert.Error(t, err)
}

func TestDayOf_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	ts := time.Date(2024, 5, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Day("2024-05-09"), DayOf(ts))
	assert.Equal(t, Day("2024-05-10"), DayOf(ts.In(tokyo)))
	assert.True(t, Day("2024-05-09") < Day("2024-05-10"), "days sort lexically")
}
