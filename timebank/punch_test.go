package timebank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/timebank"
)

func TestPunch_FullDay(t *testing.T) {
	emp := worker()
	steps := []struct {
		at     time.Time
		action timebank.Action
		stage  timebank.Stage
	}{
		{at(2024, time.January, 8, 8, 0), timebank.ActionClockIn, timebank.StageIn},
		{at(2024, time.January, 8, 12, 0), timebank.ActionLunchStart, timebank.StageLunchOut},
		{at(2024, time.January, 8, 13, 0), timebank.ActionLunchEnd, timebank.StageLunchBack},
		{at(2024, time.January, 8, 15, 0), timebank.ActionSnackStart, timebank.StageSnackOut},
		{at(2024, time.January, 8, 15, 15), timebank.ActionSnackEnd, timebank.StageSnackBack},
		{at(2024, time.January, 8, 17, 30), timebank.ActionClockOut, timebank.StageDone},
	}

	var rec *timebank.ClockRecord
	for i, step := range steps {
		assert.Equal(t, step.action, timebank.NextAction(rec), "step %d", i)

		res, err := timebank.Punch(emp, rec, step.at)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.action, res.Action)
		assert.Equal(t, step.stage, res.Stage)
		assert.Equal(t, i == 0, res.Created)

		if step.action != timebank.ActionClockOut {
			assert.Nil(t, res.Entry)
		}
		r := res.Record
		rec = &r
	}

	// THEN: exactly one WORK entry, 495 worked against 480
	assert.Equal(t, timebank.ActionNone, timebank.NextAction(rec))
	assert.Equal(t, timebank.Minutes(480), rec.ExpectedMinutes)
}

func TestPunch_ClockOutEmitsWorkEntry(t *testing.T) {
	emp := worker()
	in := at(2024, time.January, 6, 8, 0) // Saturday, 240 quota

	res, err := timebank.Punch(emp, nil, in)
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(240), res.Record.ExpectedMinutes)

	out := at(2024, time.January, 6, 12, 30)
	done, err := timebank.PunchAction(emp, &res.Record, timebank.ActionClockOut, out)
	require.NoError(t, err)
	require.NotNil(t, done.Entry)
	assert.Equal(t, timebank.KindWork, done.Entry.Kind)
	assert.Equal(t, timebank.Minutes(30), done.Entry.Minutes)
	assert.True(t, done.Entry.Date.Equal(date("2024-01-06")))
	assert.Equal(t, emp.ID, done.Entry.EmployeeID)
}

func TestPunch_FinishedIsTerminal(t *testing.T) {
	emp := worker()
	rec := timebank.ClockRecord{
		EmployeeID: emp.ID, Date: date("2024-01-08"),
		ClockIn:  ptr(at(2024, time.January, 8, 8, 0)),
		ClockOut: ptr(at(2024, time.January, 8, 16, 0)),
	}

	_, err := timebank.Punch(emp, &rec, at(2024, time.January, 8, 17, 0))
	assert.ErrorIs(t, err, timebank.ErrShiftFinished)

	_, err = timebank.PunchAction(emp, &rec, timebank.ActionClockOut, at(2024, time.January, 8, 17, 0))
	assert.ErrorIs(t, err, timebank.ErrShiftFinished)

	var perr *timebank.PunchError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, emp.ID, perr.EmployeeID)
}

func TestPunch_SkipBreaks(t *testing.T) {
	emp := worker()
	res, err := timebank.Punch(emp, nil, at(2024, time.January, 8, 8, 0))
	require.NoError(t, err)

	// Straight to snack without lunch.
	snack, err := timebank.PunchAction(emp, &res.Record, timebank.ActionSnackStart, at(2024, time.January, 8, 10, 0))
	require.NoError(t, err)
	assert.Equal(t, timebank.StageSnackOut, snack.Stage)
	// The skipped lunch slot is still empty but is not offered again.
	assert.Nil(t, snack.Record.LunchStart)
	assert.Equal(t, timebank.ActionSnackEnd, timebank.NextAction(&snack.Record))

	// Lunch can no longer be recorded.
	_, err = timebank.PunchAction(emp, &snack.Record, timebank.ActionLunchStart, at(2024, time.January, 8, 12, 0))
	assert.ErrorIs(t, err, timebank.ErrInvalidAction)

	// Clocking out with the snack still open is allowed.
	out, err := timebank.PunchAction(emp, &snack.Record, timebank.ActionClockOut, at(2024, time.January, 8, 16, 30))
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	// 510 elapsed, snack ran 390 to clock-out
	assert.Equal(t, timebank.Minutes(120-480), out.Entry.Minutes)
}

func TestPunch_InvalidTransitions(t *testing.T) {
	emp := worker()
	now := at(2024, time.January, 8, 12, 0)
	clockedIn := timebank.ClockRecord{
		EmployeeID: emp.ID, Date: date("2024-01-08"),
		ClockIn: ptr(at(2024, time.January, 8, 8, 0)),
	}
	onLunch := clockedIn
	onLunch.LunchStart = ptr(at(2024, time.January, 8, 11, 0))

	tests := []struct {
		name   string
		rec    *timebank.ClockRecord
		action timebank.Action
	}{
		{"first punch must be clock-in", nil, timebank.ActionLunchStart},
		{"clock-in twice", &clockedIn, timebank.ActionClockIn},
		{"lunch end without start", &clockedIn, timebank.ActionLunchEnd},
		{"snack end without start", &clockedIn, timebank.ActionSnackEnd},
		{"snack during lunch", &onLunch, timebank.ActionSnackStart},
		{"unknown action", &clockedIn, timebank.Action("nap")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := timebank.PunchAction(emp, tt.rec, tt.action, now)
			assert.ErrorIs(t, err, timebank.ErrInvalidAction)
		})
	}
}

func TestPunch_RejectsForeignRecords(t *testing.T) {
	emp := worker()
	yesterday := timebank.ClockRecord{
		EmployeeID: emp.ID, Date: date("2024-01-07"),
		ClockIn: ptr(at(2024, time.January, 7, 8, 0)),
	}
	_, err := timebank.Punch(emp, &yesterday, at(2024, time.January, 8, 9, 0))
	assert.ErrorIs(t, err, timebank.ErrInvalidAction)

	other := yesterday
	other.EmployeeID = "emp-2"
	other.Date = date("2024-01-08")
	_, err = timebank.Punch(emp, &other, at(2024, time.January, 8, 9, 0))
	assert.ErrorIs(t, err, timebank.ErrInvalidAction)
}

func TestPunch_InactiveEmployee(t *testing.T) {
	emp := worker()
	emp.IsActive = false

	_, err := timebank.Punch(emp, nil, monday)
	assert.ErrorIs(t, err, timebank.ErrInactiveEmployee)
}

func TestPunch_DoesNotMutateInput(t *testing.T) {
	emp := worker()
	rec := timebank.ClockRecord{
		EmployeeID: emp.ID, Date: date("2024-01-08"),
		ClockIn: ptr(at(2024, time.January, 8, 8, 0)),
	}

	_, err := timebank.Punch(emp, &rec, at(2024, time.January, 8, 12, 0))
	require.NoError(t, err)
	assert.Nil(t, rec.LunchStart)
}

func TestPunch_HourlyClockOutIsPureCredit(t *testing.T) {
	emp := hourly()
	res, err := timebank.Punch(emp, nil, at(2024, time.January, 8, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(0), res.Record.ExpectedMinutes)

	out, err := timebank.PunchAction(emp, &res.Record, timebank.ActionClockOut, at(2024, time.January, 8, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, timebank.Minutes(180), out.Entry.Minutes)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "EMPTY", timebank.StageOf(nil).String())
	assert.Equal(t, "LUNCH_OUT", timebank.StageLunchOut.String())
	assert.Equal(t, "Back from lunch", timebank.ActionLunchEnd.Label())
	assert.False(t, timebank.ActionNone.IsValid())
}
