// Package storetest is a conformance suite shared by every timebank.TxStore
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/timebank"
)

// Backend is what the suite needs from a store under test.
type Backend interface {
	timebank.TxStore
	timebank.SettingsStore
}

// Run executes the suite. newStore must return an empty store; it is
// called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) Backend) {
	t.Run("Employees", func(t *testing.T) { testEmployees(t, newStore(t)) })
	t.Run("Records", func(t *testing.T) { testRecords(t, newStore(t)) })
	t.Run("DuplicateRecord", func(t *testing.T) { testDuplicateRecord(t, newStore(t)) })
	t.Run("Entries", func(t *testing.T) { testEntries(t, newStore(t)) })
	t.Run("TxCommit", func(t *testing.T) { testTxCommit(t, newStore(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newStore(t)) })
	t.Run("Settings", func(t *testing.T) { testSettings(t, newStore(t)) })
}

func day(s string) timebank.Date { return timebank.MustParseDate(s) }

func stamp(d string, hour, min int) *time.Time {
	t := day(d).Time().Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
	return &t
}

func employee(id, name string) timebank.Employee {
	return timebank.Employee{
		ID:                    timebank.EmployeeID(id),
		Name:                  name,
		Role:                  "Cook",
		BaseDailyMinutes:      480,
		ShortWeekday:          time.Saturday,
		ShortWeekdayMinutes:   240,
		IsActive:              true,
		StartDate:             day("2024-01-01"),
		InitialBalanceMinutes: -15,
		CreatedAt:             time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
}

func testEmployees(t *testing.T, s Backend) {
	ctx := context.Background()

	require.NoError(t, s.SaveEmployee(ctx, employee("b", "Bia")))
	require.NoError(t, s.SaveEmployee(ctx, employee("a", "Ana")))

	got, err := s.GetEmployee(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Bia", got.Name)
	assert.Equal(t, time.Saturday, got.ShortWeekday)
	assert.True(t, got.StartDate.Equal(day("2024-01-01")))
	assert.Equal(t, timebank.Minutes(-15), got.InitialBalanceMinutes)
	assert.True(t, got.CreatedAt.Equal(employee("b", "Bia").CreatedAt))

	// Save is an upsert.
	updated := employee("b", "Bia")
	updated.IsHourly = true
	require.NoError(t, s.SaveEmployee(ctx, updated))
	got, err = s.GetEmployee(ctx, "b")
	require.NoError(t, err)
	assert.True(t, got.IsHourly)

	list, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ana", list[0].Name)

	require.NoError(t, s.DeleteEmployee(ctx, "a"))
	_, err = s.GetEmployee(ctx, "a")
	assert.ErrorIs(t, err, timebank.ErrEmployeeNotFound)
}

func testRecords(t *testing.T, s Backend) {
	ctx := context.Background()

	rec := timebank.ClockRecord{
		ID: "r1", EmployeeID: "a", Date: day("2024-01-02"),
		ClockIn:         stamp("2024-01-02", 8, 0),
		ExpectedMinutes: 480,
	}
	require.NoError(t, s.CreateRecord(ctx, rec))
	require.NoError(t, s.CreateRecord(ctx, timebank.ClockRecord{
		ID: "r2", EmployeeID: "a", Date: day("2024-01-03"), ClockIn: stamp("2024-01-03", 8, 0),
	}))

	rec.LunchStart = stamp("2024-01-02", 12, 0)
	rec.ClockOut = stamp("2024-01-02", 17, 0)
	require.NoError(t, s.UpdateRecord(ctx, rec))

	found, err := s.FindRecord(ctx, "a", day("2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, timebank.RecordID("r1"), found.ID)
	require.NotNil(t, found.LunchStart)
	assert.True(t, found.LunchStart.Equal(*rec.LunchStart))
	assert.Nil(t, found.LunchEnd)
	assert.True(t, found.IsFinished())
	assert.Equal(t, timebank.Minutes(480), found.ExpectedMinutes)

	_, err = s.FindRecord(ctx, "a", day("2024-01-05"))
	assert.ErrorIs(t, err, timebank.ErrRecordNotFound)

	err = s.UpdateRecord(ctx, timebank.ClockRecord{ID: "missing", EmployeeID: "a", Date: day("2024-01-09")})
	assert.ErrorIs(t, err, timebank.ErrRecordNotFound)

	list, err := s.ListRecords(ctx, timebank.RecordFilter{EmployeeID: "a"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, timebank.RecordID("r2"), list[0].ID, "newest day first")

	list, err = s.ListRecords(ctx, timebank.RecordFilter{From: day("2024-01-03")})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteRecord(ctx, "r1"))
	_, err = s.GetRecord(ctx, "r1")
	assert.ErrorIs(t, err, timebank.ErrRecordNotFound)
	assert.ErrorIs(t, s.DeleteRecord(ctx, "r1"), timebank.ErrRecordNotFound)
}

func testDuplicateRecord(t *testing.T, s Backend) {
	ctx := context.Background()
	first := timebank.ClockRecord{ID: "r1", EmployeeID: "a", Date: day("2024-01-02"), ClockIn: stamp("2024-01-02", 8, 0)}
	second := first
	second.ID = "r2"

	require.NoError(t, s.CreateRecord(ctx, first))
	assert.ErrorIs(t, s.CreateRecord(ctx, second), timebank.ErrDuplicateRecord)
}

func testEntries(t *testing.T, s Backend) {
	ctx := context.Background()
	entries := []timebank.Entry{
		{ID: "e1", EmployeeID: "a", Date: day("2024-01-02"), Minutes: 30, Kind: timebank.KindWork},
		{ID: "e2", EmployeeID: "a", Date: day("2024-01-02"), Minutes: -10, Kind: timebank.KindWork},
		{ID: "e3", EmployeeID: "a", Date: day("2024-01-03"), Minutes: 480, Kind: timebank.KindMedical, Note: "flu"},
		{ID: "e4", EmployeeID: "b", Date: day("2024-01-02"), Minutes: 60, Kind: timebank.KindBonus},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendEntry(ctx, e))
	}

	got, err := s.GetEntry(ctx, "e3")
	require.NoError(t, err)
	assert.Equal(t, "flu", got.Note)
	assert.Equal(t, timebank.KindMedical, got.Kind)

	list, err := s.ListEntries(ctx, timebank.EntryFilter{EmployeeID: "a"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, timebank.EntryID("e3"), list[0].ID, "newest day first")

	list, err = s.ListEntries(ctx, timebank.EntryFilter{Kinds: []timebank.EntryKind{timebank.KindBonus, timebank.KindMedical}})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := s.DeleteEntries(ctx, "a", day("2024-01-02"), timebank.KindWork)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DeleteEntry(ctx, "e4"))
	assert.ErrorIs(t, s.DeleteEntry(ctx, "e4"), timebank.ErrEntryNotFound)

	list, err = s.ListEntries(ctx, timebank.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, timebank.EntryID("e3"), list[0].ID)
}

func testTxCommit(t *testing.T, s Backend) {
	ctx := context.Background()
	require.NoError(t, s.SaveEmployee(ctx, employee("a", "Ana")))

	err := s.WithTx(ctx, func(tx timebank.Store) error {
		if _, err := tx.GetEmployee(ctx, "a"); err != nil {
			return err
		}
		rec := timebank.ClockRecord{ID: "r1", EmployeeID: "a", Date: day("2024-01-02"), ClockIn: stamp("2024-01-02", 8, 0)}
		if err := tx.CreateRecord(ctx, rec); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		if _, err := tx.FindRecord(ctx, "a", day("2024-01-02")); err != nil {
			return err
		}
		return tx.AppendEntry(ctx, timebank.Entry{ID: "e1", EmployeeID: "a", Date: day("2024-01-02"), Minutes: 5, Kind: timebank.KindWork})
	})
	require.NoError(t, err)

	_, err = s.GetRecord(ctx, "r1")
	assert.NoError(t, err)
	_, err = s.GetEntry(ctx, "e1")
	assert.NoError(t, err)
}

func testTxRollback(t *testing.T, s Backend) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx timebank.Store) error {
		rec := timebank.ClockRecord{ID: "r1", EmployeeID: "a", Date: day("2024-01-02"), ClockIn: stamp("2024-01-02", 8, 0)}
		if err := tx.CreateRecord(ctx, rec); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, timebank.Entry{ID: "e1", EmployeeID: "a", Date: day("2024-01-02"), Minutes: 5, Kind: timebank.KindWork}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetRecord(ctx, "r1")
	assert.ErrorIs(t, err, timebank.ErrRecordNotFound)
	_, err = s.GetEntry(ctx, "e1")
	assert.ErrorIs(t, err, timebank.ErrEntryNotFound)
}

func testSettings(t *testing.T, s Backend) {
	ctx := context.Background()

	_, ok, err := s.GetSetting(ctx, "manager_pin_hash")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetSetting(ctx, "manager_pin_hash", "one"))
	require.NoError(t, s.SetSetting(ctx, "manager_pin_hash", "two"))

	v, ok, err := s.GetSetting(ctx, "manager_pin_hash")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}
