package timebank_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/timebank"
	"github.com/nobel/timebank/timebank/store"
)

// testService wires a Service to an in-memory store and a settable clock.
type testService struct {
	*timebank.Service
	mem   *store.Memory
	clock time.Time
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	ts := &testService{mem: store.NewTxMemory(), clock: monday}
	svc := timebank.NewService(ts.mem, nil)
	svc.Location = time.UTC
	svc.Now = func() time.Time { return ts.clock }
	n := 0
	svc.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	ts.Service = svc

	_, err := svc.CreateEmployee(context.Background(), worker())
	require.NoError(t, err)
	return ts
}

func (ts *testService) set(hour, min int) {
	ts.clock = time.Date(ts.clock.Year(), ts.clock.Month(), ts.clock.Day(), hour, min, 0, 0, time.UTC)
}

func TestService_PunchDayPersistsRecordAndEntry(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	punches := []struct {
		hour, min int
		want      timebank.Action
	}{
		{8, 0, timebank.ActionClockIn},
		{12, 0, timebank.ActionLunchStart},
		{13, 0, timebank.ActionLunchEnd},
		{15, 0, timebank.ActionSnackStart},
		{15, 15, timebank.ActionSnackEnd},
		{17, 0, timebank.ActionClockOut},
	}
	for _, p := range punches {
		ts.set(p.hour, p.min)
		res, err := ts.Punch(ctx, "emp-1")
		require.NoError(t, err)
		assert.Equal(t, p.want, res.Action)
	}

	entries, err := ts.Entries(ctx, timebank.EntryFilter{EmployeeID: "emp-1", Kinds: []timebank.EntryKind{timebank.KindWork}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// 540 - 60 - 15 = 465 worked against 480
	assert.Equal(t, timebank.Minutes(-15), entries[0].Minutes)

	ts.set(18, 0)
	_, err = ts.Punch(ctx, "emp-1")
	assert.ErrorIs(t, err, timebank.ErrShiftFinished)
	assert.True(t, timebank.IsConflict(err))

	b, err := ts.Balance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, timebank.TodayEntries, b.TodaySource)
	assert.Equal(t, timebank.Minutes(-2640-15), b.Total())
}

func TestService_StatusTracksOpenShift(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	st, err := ts.Status(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, st.Record)
	assert.Equal(t, timebank.ActionClockIn, st.NextAction)

	ts.set(8, 0)
	_, err = ts.Punch(ctx, "emp-1")
	require.NoError(t, err)

	ts.set(12, 0)
	st, err = ts.Status(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, timebank.StageIn, st.Stage)
	assert.Equal(t, timebank.Minutes(240), st.Worked)
	assert.Equal(t, timebank.Minutes(-2640-240), st.Balance)

	board, err := ts.Board(ctx)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, st.Balance, board[0].Balance)
}

func TestService_PunchUnknownEmployee(t *testing.T) {
	ts := newTestService(t)
	_, err := ts.Punch(context.Background(), "ghost")
	assert.ErrorIs(t, err, timebank.ErrEmployeeNotFound)
	assert.True(t, timebank.IsNotFound(err))
}

func TestService_RejectedPunchLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	_, err := ts.PunchAction(ctx, "emp-1", timebank.ActionClockOut)
	assert.ErrorIs(t, err, timebank.ErrInvalidAction)
	assert.True(t, timebank.IsClientError(err))

	records, err := ts.Records(ctx, timebank.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestService_RetroWork(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	// Worked 510 on Tuesday without punching.
	e, err := ts.AddAdjustment(ctx, timebank.AdjustmentInput{
		EmployeeID: "emp-1", Date: date("2024-01-02"), Kind: timebank.KindWorkRetro, Minutes: 510,
	})
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(30), e.Minutes)
	assert.Equal(t, "Manual administrative adjustment", e.Note)

	b, err := ts.Balance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(-2610), b.Total())

	_, err = ts.AddAdjustment(ctx, timebank.AdjustmentInput{
		EmployeeID: "emp-1", Date: date("2024-02-01"), Kind: timebank.KindWorkRetro, Minutes: 60,
	})
	assert.ErrorIs(t, err, timebank.ErrInvalidInput)
}

func TestService_ManualDeltas(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	for _, in := range []timebank.AdjustmentInput{
		{EmployeeID: "emp-1", Date: date("2024-01-03"), Kind: timebank.KindBonus, Minutes: 120},
		{EmployeeID: "emp-1", Date: date("2024-01-04"), Kind: timebank.KindPayment, Minutes: -60, Note: "paid out"},
		{EmployeeID: "emp-1", Date: date("2024-01-05"), Kind: timebank.KindAdjustment, Minutes: -5},
	} {
		_, err := ts.AddAdjustment(ctx, in)
		require.NoError(t, err)
	}

	b, err := ts.Balance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(-2640+55), b.Total())

	_, err = ts.AddAdjustment(ctx, timebank.AdjustmentInput{
		EmployeeID: "emp-1", Date: date("2024-01-03"), Kind: timebank.KindMedical, Minutes: 480,
	})
	assert.ErrorIs(t, err, timebank.ErrInvalidEntryKind)
}

func TestService_JustificationRange(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	// Vacation Friday through Monday: Sunday has no quota and is skipped.
	created, err := ts.AddJustification(ctx, timebank.JustificationInput{
		EmployeeID: "emp-1", Date: date("2024-01-05"), Through: date("2024-01-08"), Kind: timebank.KindVacation,
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, timebank.Minutes(480), created[0].Minutes)
	assert.Equal(t, timebank.Minutes(240), created[1].Minutes)

	b, err := ts.Balance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(-2640+480+240), b.Total())
	assert.Equal(t, timebank.Minutes(0), b.TodayDelta)

	_, err = ts.AddJustification(ctx, timebank.JustificationInput{
		EmployeeID: "emp-1", Date: date("2024-01-05"), Kind: timebank.KindBonus,
	})
	assert.ErrorIs(t, err, timebank.ErrInvalidEntryKind)

	_, err = ts.AddJustification(ctx, timebank.JustificationInput{
		EmployeeID: "emp-1", Date: date("2024-01-05"), Through: date("2024-01-01"), Kind: timebank.KindOffDay,
	})
	assert.ErrorIs(t, err, timebank.ErrInvalidInput)
}

func TestService_DeleteEntryRestoresBalance(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	before, err := ts.Balance(ctx, "emp-1")
	require.NoError(t, err)

	e, err := ts.AddAdjustment(ctx, timebank.AdjustmentInput{
		EmployeeID: "emp-1", Date: date("2024-01-03"), Kind: timebank.KindBonus, Minutes: 45,
	})
	require.NoError(t, err)
	require.NoError(t, ts.DeleteEntry(ctx, e.ID))

	after, err := ts.Balance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, before.Total(), after.Total())
	assert.ErrorIs(t, ts.DeleteEntry(ctx, e.ID), timebank.ErrEntryNotFound)
}

func TestService_DeleteDayRemovesRecordAndWorkEntry(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	ts.set(8, 0)
	in, err := ts.Punch(ctx, "emp-1")
	require.NoError(t, err)
	ts.set(18, 0)
	_, err = ts.PunchAction(ctx, "emp-1", timebank.ActionClockOut)
	require.NoError(t, err)

	_, err = ts.AddAdjustment(ctx, timebank.AdjustmentInput{
		EmployeeID: "emp-1", Date: date("2024-01-08"), Kind: timebank.KindBonus, Minutes: 10,
	})
	require.NoError(t, err)

	require.NoError(t, ts.DeleteDay(ctx, in.Record.ID))

	records, err := ts.Records(ctx, timebank.RecordFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Empty(t, records)

	entries, err := ts.Entries(ctx, timebank.EntryFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, timebank.KindBonus, entries[0].Kind)

	// The day can be punched again.
	_, err = ts.Punch(ctx, "emp-1")
	assert.NoError(t, err)
}

func TestService_EmployeeLifecycle(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)

	created, err := ts.CreateEmployee(ctx, timebank.Employee{
		Name: "Caio", BaseDailyMinutes: 360, ShortWeekday: time.Saturday, IsActive: true,
		StartDate: date("2024-01-08"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	created.Role = "Driver"
	created.CreatedAt = time.Time{}
	updated, err := ts.UpdateEmployee(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "Driver", updated.Role)
	assert.False(t, updated.CreatedAt.IsZero())

	_, err = ts.CreateEmployee(ctx, timebank.Employee{Name: "", StartDate: date("2024-01-01")})
	assert.ErrorIs(t, err, timebank.ErrInvalidEmployee)

	_, err = ts.UpdateEmployee(ctx, timebank.Employee{ID: "ghost", Name: "x", StartDate: date("2024-01-01")})
	assert.ErrorIs(t, err, timebank.ErrEmployeeNotFound)

	require.NoError(t, ts.DeleteEmployee(ctx, created.ID))
	assert.ErrorIs(t, ts.DeleteEmployee(ctx, created.ID), timebank.ErrEmployeeNotFound)
}

func TestService_BalancesAndStatement(t *testing.T) {
	ctx := context.Background()
	ts := newTestService(t)
	h := hourly()
	_, err := ts.CreateEmployee(ctx, h)
	require.NoError(t, err)

	balances, snap, err := ts.Balances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Len(t, snap.Employees, 2)

	byID := map[timebank.EmployeeID]timebank.Minutes{}
	for _, b := range balances {
		byID[b.EmployeeID] = b.Total()
	}
	assert.Equal(t, timebank.Minutes(-2640), byID["emp-1"])
	assert.Equal(t, timebank.Minutes(0), byID["emp-hourly"])

	lines, err := ts.Statement(ctx, "emp-1", date("2024-01-06"), timebank.Date{})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, byID["emp-1"], lines[2].Running)
}
