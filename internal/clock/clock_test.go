package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	d, err := ParseOffset("+03:00")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour, d)

	d, err = ParseOffset("-05:30")
	require.NoError(t, err)
	assert.Equal(t, -(5*time.Hour + 30*time.Minute), d)

	d, err = ParseOffset("Z")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d)

	_, err = ParseOffset("three")
	assert.Error(t, err)
}

func TestFixedOffsetNow(t *testing.T) {
	c := NewFixedOffset(3 * time.Hour)
	_, secs := c.Now().Zone()
	assert.Equal(t, 3*3600, secs)
	assert.Equal(t, "+03:00", FormatOffset(3*time.Hour))
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("+03:00", 3*3600)
	// 22:30 UTC is already the next day at +03:00.
	at := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	start, end := DayBounds(at, loc)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
