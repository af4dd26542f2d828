package timebank_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/timebank"
)

func TestDateOf_UsesLocationOfTimestamp(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	// 01:30 UTC on the 2nd is still the 1st in UTC-3.
	ts := time.Date(2024, time.March, 2, 1, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-02", timebank.DateOf(ts).String())
	assert.Equal(t, "2024-03-01", timebank.DateOf(ts.In(saoPaulo)).String())
}

func TestParseDate(t *testing.T) {
	d, err := timebank.ParseDate("2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())

	withTime, err := timebank.ParseDate("2024-01-08T15:04:05-03:00")
	require.NoError(t, err)
	assert.True(t, d.Equal(withTime))

	_, err = timebank.ParseDate("08/01/2024")
	assert.Error(t, err)
}

func TestDate_Arithmetic(t *testing.T) {
	start := timebank.NewDate(2024, time.February, 28)

	assert.Equal(t, "2024-02-29", start.AddDays(1).String())
	assert.Equal(t, "2024-03-01", start.AddDays(2).String())
	assert.Equal(t, 2, timebank.DaysBetween(start, start.AddDays(2)))
	assert.Equal(t, -2, timebank.DaysBetween(start.AddDays(2), start))
	assert.True(t, timebank.MinDate(start, start.AddDays(1)).Equal(start))
	assert.True(t, timebank.MaxDate(start, start.AddDays(1)).Equal(start.AddDays(1)))
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Date timebank.Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-02"}`), &payload))
	assert.Equal(t, time.Tuesday, payload.Date.Weekday())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-02"}`, string(out))
}

func TestMinutesBetween_Floors(t *testing.T) {
	base := at(2024, time.January, 1, 8, 0)

	assert.Equal(t, timebank.Minutes(90), timebank.MinutesBetween(base, base.Add(90*time.Minute+59*time.Second)))
	assert.Equal(t, timebank.Minutes(0), timebank.MinutesBetween(base, base.Add(59*time.Second)))
	assert.Equal(t, timebank.Minutes(-1), timebank.MinutesBetween(base, base.Add(-30*time.Second)))
}

func TestMinutes_Format(t *testing.T) {
	tests := []struct {
		in    timebank.Minutes
		str   string
		clock string
	}{
		{0, "+00h 00m", "00:00"},
		{510, "+08h 30m", "08:30"},
		{-65, "-01h 05m", "-01:05"},
		{-2640, "-44h 00m", "-44:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.str, tt.in.String())
		assert.Equal(t, tt.clock, tt.in.Clock())
	}
}

func TestMinutes_Hours(t *testing.T) {
	assert.Equal(t, "7.5", timebank.Minutes(450).Hours().String())
	assert.Equal(t, "-0.33", timebank.Minutes(-20).Hours().String())
}

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want timebank.Minutes
	}{
		{"", 0},
		{"00:00", 0},
		{"01:30", 90},
		{"+02:00", 120},
		{"-00:45", -45},
		{"3", 180},
		{"-8784:00", -8784 * 60},
	}
	for _, tt := range tests {
		got, err := timebank.ParseMinutes(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"ab:00", "01:75", "1:-5", "8785:00", "999999999999999999:00", "-999999999999999999"} {
		_, err := timebank.ParseMinutes(bad)
		assert.Error(t, err, bad)
	}
}
