package dates

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFromSerial(t *testing.T) {
	tests := []struct {
		name   string
		serial float64
		want   time.Time
		ok     bool
	}{
		{"unix epoch", 25569, date(1970, 1, 1), true},
		{"2024 new year", 45292, date(2024, 1, 1), true},
		{"fraction dropped", 45292.75, date(2024, 1, 1), true},
		{"first serial", 1, date(1899, 12, 31), true},
		{"max serial", MaxSerial, date(9999, 12, 31), true},
		{"zero", 0, time.Time{}, false},
		{"negative", -4, time.Time{}, false},
		{"too large", MaxSerial + 1, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromSerial(tt.serial)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"15/03/2024", date(2024, 3, 15), true},
		{"5/3/2024", date(2024, 3, 5), true},
		{"15-03-2024", date(2024, 3, 15), true},
		{"2024-03-15", date(2024, 3, 15), true},
		{"2024-3-5", date(2024, 3, 5), true},
		{"  01/01/2025 ", date(2025, 1, 1), true},
		{"29/02/2024", date(2024, 2, 29), true},
		{"29/02/2023", time.Time{}, false},
		{"31/04/2024", time.Time{}, false},
		{"13/13/2024", time.Time{}, false},
		{"45292", date(2024, 1, 1), true},
		{"45292.5", date(2024, 1, 1), true},
		{"", time.Time{}, false},
		{"   ", time.Time{}, false},
		{"not-a-date", time.Time{}, false},
		{"2024/03/15", time.Time{}, false},
		{"15.03.2024", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestParseCell(t *testing.T) {
	got, ok := ParseCell(45292.0)
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 1), got)

	got, ok = ParseCell(45292)
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 1), got)

	got, ok = ParseCell("01/01/2024")
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 1), got)

	ist := time.FixedZone("IST", 5*3600+1800)
	got, ok = ParseCell(time.Date(2024, 1, 1, 23, 0, 0, 0, ist))
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 1), got)

	_, ok = ParseCell(nil)
	assert.False(t, ok)
	_, ok = ParseCell(true)
	assert.False(t, ok)
	_, ok = ParseCell(time.Time{})
	assert.False(t, ok)
}

func TestFormatRoundTrip(t *testing.T) {
	d := date(2025, 11, 9)
	assert.Equal(t, "09/11/2025", Format(d))
	assert.Equal(t, "2025-11-09", ISO(d))

	back, ok := Parse(Format(d))
	require.True(t, ok)
	assert.Equal(t, d, back)
}

func TestToday(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC on the 1st is already the 2nd in India.
	now := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2024, 6, 2), Today(now, ist))
	assert.Equal(t, date(2024, 6, 1), Today(now, nil))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 7, DaysBetween(date(2024, 6, 1), date(2024, 6, 8)))
	assert.Equal(t, -3, DaysBetween(date(2024, 6, 4), date(2024, 6, 1)))
	assert.Equal(t, 0, DaysBetween(date(2024, 6, 1), date(2024, 6, 1).Add(10*time.Hour)))
}

func TestWallClock(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 6, 2, 1, 30, 0, 0, time.UTC), WallClock(now, ist))
	assert.Equal(t, now, WallClock(now, nil))
}
