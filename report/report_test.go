package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/report"
	"github.com/nobel/timebank/timebank"
)

func ptr(t time.Time) *time.Time { return &t }

func at(day, hour, min int) time.Time {
	return time.Date(2024, time.January, day, hour, min, 0, 0, time.UTC)
}

func fixture() timebank.Snapshot {
	start := timebank.NewDate(2024, time.January, 1)
	ana := timebank.Employee{
		ID: "ana", Name: "Ana", Role: "Teacher", IsActive: true,
		BaseDailyMinutes: 480, ShortWeekday: time.Saturday, ShortWeekdayMinutes: 240,
		StartDate: start,
	}
	bruno := timebank.Employee{
		ID: "bruno", Name: "Bruno", Role: "Monitor", IsHourly: true,
		ShortWeekday: time.Saturday, StartDate: start,
	}
	return timebank.Snapshot{
		Employees: []timebank.Employee{bruno, ana},
		Records: []timebank.ClockRecord{
			{
				ID: "r2", EmployeeID: "bruno", Date: timebank.NewDate(2024, time.January, 3),
				ClockIn: ptr(at(3, 9, 0)),
			},
			{
				ID: "r1", EmployeeID: "ana", Date: timebank.NewDate(2024, time.January, 2),
				ClockIn: ptr(at(2, 8, 0)), LunchStart: ptr(at(2, 12, 0)),
				LunchEnd: ptr(at(2, 13, 0)), ClockOut: ptr(at(2, 17, 15)),
				ExpectedMinutes: 480,
			},
		},
		Entries: []timebank.Entry{
			{ID: "e1", EmployeeID: "ana", Date: timebank.NewDate(2024, time.January, 2), Minutes: 15, Kind: timebank.KindWork},
		},
	}
}

func TestRoster(t *testing.T) {
	// GIVEN Ana with no punches except one +15 day, and hourly Bruno
	// WHEN the roster is computed on Monday 2024-01-08
	rows := report.Roster(fixture(), at(8, 10, 0))

	// THEN rows are sorted by name with their cumulative balances
	require.Len(t, rows, 2)
	assert.Equal(t, "Ana", rows[0].Name)
	assert.Equal(t, timebank.Minutes(-2640+15), rows[0].Balance)
	assert.Equal(t, "Bruno", rows[1].Name)
	assert.Equal(t, timebank.Minutes(0), rows[1].Balance)
	assert.False(t, rows[1].Active)

	var buf bytes.Buffer
	require.NoError(t, report.WriteRoster(&buf, rows, report.FormatText))
	assert.Contains(t, buf.String(), "Ana")
	assert.Contains(t, buf.String(), "-43h 45m")
	assert.Contains(t, buf.String(), "-43.75")
}

func TestTimesheet(t *testing.T) {
	snap := fixture()

	rows := report.Timesheet(snap, report.TimesheetFilter{}, time.UTC)
	require.Len(t, rows, 2)

	ana := rows[0]
	assert.Equal(t, "Ana", ana.Employee)
	assert.Equal(t, "08:00", ana.ClockIn)
	assert.Equal(t, "12:00", ana.LunchStart)
	assert.Equal(t, "13:00", ana.LunchEnd)
	assert.Equal(t, "17:15", ana.ClockOut)
	assert.Equal(t, "+00h 15m", ana.DayBalance)
	assert.Equal(t, timebank.KindWork.Label(), ana.Kind)

	open := rows[1]
	assert.Equal(t, "Bruno", open.Employee)
	assert.Equal(t, "---", open.ClockOut)
	assert.Equal(t, "---", open.DayBalance, "no finalized entry yet")
}

func TestTimesheet_Filters(t *testing.T) {
	snap := fixture()

	rows := report.Timesheet(snap, report.TimesheetFilter{EmployeeID: "bruno"}, time.UTC)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bruno", rows[0].Employee)

	rows = report.Timesheet(snap, report.TimesheetFilter{
		From: timebank.NewDate(2024, time.January, 3),
		To:   timebank.NewDate(2024, time.January, 31),
	}, time.UTC)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bruno", rows[0].Employee)

	// Times follow the requested zone.
	loc := time.FixedZone("BRT", -3*60*60)
	rows = report.Timesheet(snap, report.TimesheetFilter{EmployeeID: "ana"}, loc)
	require.Len(t, rows, 1)
	assert.Equal(t, "05:00", rows[0].ClockIn)
}

func TestWriteTimesheet_CSV(t *testing.T) {
	rows := report.Timesheet(fixture(), report.TimesheetFilter{EmployeeID: "ana"}, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, report.WriteTimesheet(&buf, rows, report.FormatCSV))
	out := buf.String()
	assert.Contains(t, out, "Employee,Date,In,Lunch start,Lunch end,Out,Day balance,Kind")
	assert.Contains(t, out, "Ana,2024-01-02,08:00,12:00,13:00,17:15,+00h 15m,")
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, report.FormatCSV, report.ParseFormat("csv"))
	assert.Equal(t, report.FormatText, report.ParseFormat(""))
	assert.Equal(t, report.FormatText, report.ParseFormat("pdf"))
}
