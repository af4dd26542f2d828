package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/store/sqlite"
	"github.com/nobel/timebank/timebank"
	"github.com/nobel/timebank/timebank/storetest"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return newStore(t)
	})
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "timebank.db")

	s, err := sqlite.New(path)
	require.NoError(t, err)
	clockIn := time.Date(2024, time.January, 2, 11, 4, 5, 123000000, time.UTC)
	require.NoError(t, s.CreateRecord(ctx, timebank.ClockRecord{
		ID: "r1", EmployeeID: "a", Date: timebank.MustParseDate("2024-01-02"),
		ClockIn: &clockIn, ExpectedMinutes: 480,
	}))
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.GetRecord(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, rec.ClockIn)
	assert.True(t, rec.ClockIn.Equal(clockIn), "sub-second precision survives")
}

func TestSQLite_ServicePunchRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	now := time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC)
	svc := timebank.NewService(s, nil)
	svc.Location = time.UTC
	svc.Now = func() time.Time { return now }

	_, err := svc.CreateEmployee(ctx, timebank.Employee{
		ID: "emp-1", Name: "Ana", BaseDailyMinutes: 480,
		ShortWeekday: time.Saturday, ShortWeekdayMinutes: 240,
		IsActive: true, StartDate: timebank.MustParseDate("2024-01-01"),
	})
	require.NoError(t, err)

	_, err = svc.Punch(ctx, "emp-1")
	require.NoError(t, err)

	now = now.Add(9 * time.Hour)
	res, err := svc.PunchAction(ctx, "emp-1", timebank.ActionClockOut)
	require.NoError(t, err)
	require.NotNil(t, res.Entry)

	b, err := svc.Balance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(-2640+60), b.Total())
}
