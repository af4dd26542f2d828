package timebank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/timebank"
)

// Monday 2024-01-08, one full week after worker's start date.
var monday = at(2024, time.January, 8, 10, 0)

func TestBalance_NothingRecordedIsFullDeficit(t *testing.T) {
	// GIVEN: a week with no punches and no entries
	// WHEN: evaluated on the following Monday morning
	b := timebank.Calculate(worker(), nil, nil, monday)

	// THEN: five standard days and one short Saturday are owed
	assert.Equal(t, timebank.Minutes(-2640), b.Total())
	assert.Equal(t, timebank.Minutes(2640), b.Debits)
	assert.Equal(t, 7, b.DaysAccrued)
	assert.Equal(t, timebank.TodayNone, b.TodaySource)
	assert.False(t, b.Truncated)
}

func TestBalance_WorkEntryIsNetDelta(t *testing.T) {
	// GIVEN: Tuesday closed with 30 minutes of overtime
	entries := []timebank.Entry{workEntry("emp-1", "2024-01-02", 30)}

	// THEN: the debit stays, only the delta is credited
	assert.Equal(t, timebank.Minutes(-2610), timebank.CumulativeBalance(worker(), nil, entries, monday))
}

func TestBalance_InitialBalanceSeeds(t *testing.T) {
	emp := worker()
	emp.InitialBalanceMinutes = 600

	assert.Equal(t, timebank.Minutes(-2040), timebank.CumulativeBalance(emp, nil, nil, monday))
}

func TestBalance_HourlyHasNoDebit(t *testing.T) {
	emp := hourly()
	entries := []timebank.Entry{
		workEntry(emp.ID, "2024-01-02", 300),
		{ID: "adj", EmployeeID: emp.ID, Date: date("2024-01-03"), Minutes: -60, Kind: timebank.KindPayment},
	}

	b := timebank.Calculate(emp, nil, entries, monday)
	assert.Equal(t, timebank.Minutes(0), b.Debits)
	assert.Equal(t, timebank.Minutes(240), b.Total())
}

func TestBalance_PaidAbsenceNetsToZero(t *testing.T) {
	// GIVEN: Wednesday justified as medical leave
	emp := worker()
	entries := []timebank.Entry{{
		ID: "med", EmployeeID: emp.ID, Date: date("2024-01-03"),
		Minutes: timebank.ExpectedMinutes(emp, date("2024-01-03")), Kind: timebank.KindMedical,
	}}

	// THEN: Wednesday no longer counts against the balance
	assert.Equal(t, timebank.Minutes(-2160), timebank.CumulativeBalance(emp, nil, entries, monday))
}

func TestBalance_DeletingEntryRemovesExactlyItsMinutes(t *testing.T) {
	emp := worker()
	keep := workEntry(emp.ID, "2024-01-02", 30)
	bonus := timebank.Entry{ID: "bonus", EmployeeID: emp.ID, Date: date("2024-01-04"), Minutes: 90, Kind: timebank.KindBonus}

	with := timebank.CumulativeBalance(emp, nil, []timebank.Entry{keep, bonus}, monday)
	without := timebank.CumulativeBalance(emp, nil, []timebank.Entry{keep}, monday)

	assert.Equal(t, bonus.Minutes, with-without)
}

func TestBalance_IgnoresEntriesBeforeStartAndOtherEmployees(t *testing.T) {
	entries := []timebank.Entry{
		workEntry("emp-1", "2023-12-29", 999),
		workEntry("emp-2", "2024-01-02", 999),
	}
	assert.Equal(t, timebank.Minutes(-2640), timebank.CumulativeBalance(worker(), nil, entries, monday))
}

func TestBalance_FutureStartDate(t *testing.T) {
	emp := worker()
	emp.StartDate = date("2024-02-01")
	emp.InitialBalanceMinutes = 120
	entries := []timebank.Entry{workEntry(emp.ID, "2024-01-08", 60)}

	b := timebank.Calculate(emp, nil, entries, monday)
	assert.Equal(t, timebank.Minutes(120), b.Total())
	assert.Equal(t, 0, b.DaysAccrued)
	assert.Equal(t, timebank.TodayNotBegun, b.TodaySource)
}

func TestBalance_ZeroStartDateHasNoHistory(t *testing.T) {
	emp := worker()
	emp.StartDate = timebank.Date{}

	b := timebank.Calculate(emp, nil, nil, monday)
	assert.Equal(t, timebank.Minutes(0), b.Total())
	assert.Equal(t, 0, b.DaysAccrued)
}

func TestBalance_TruncatesCorruptHistory(t *testing.T) {
	emp := worker()
	emp.StartDate = date("2010-01-01")

	b := timebank.Calculate(emp, nil, nil, monday)
	assert.True(t, b.Truncated)
	assert.Equal(t, timebank.MaxAccrualDays, b.DaysAccrued)
	assert.Less(t, int(b.Total()), 0)

	// GIVEN: entries inside the walked window, after the cutoff, and today
	cutoff := date("2010-01-01").AddDays(timebank.MaxAccrualDays - 1)
	entries := []timebank.Entry{
		{ID: "in", EmployeeID: emp.ID, Date: cutoff, Minutes: 30, Kind: timebank.KindBonus},
		{ID: "late", EmployeeID: emp.ID, Date: date("2023-12-01"), Minutes: 100000, Kind: timebank.KindBonus},
		{ID: "today", EmployeeID: emp.ID, Date: date("2024-01-08"), Minutes: 60, Kind: timebank.KindAdjustment},
	}
	rec := timebank.ClockRecord{
		ID: "r1", EmployeeID: emp.ID, Date: date("2024-01-08"),
		ClockIn: ptr(at(2024, time.January, 8, 6, 0)), ExpectedMinutes: 480,
	}

	// WHEN: computing the balance and the statement
	b = timebank.Calculate(emp, []timebank.ClockRecord{rec}, entries, monday)
	lines := timebank.Statement(emp, []timebank.ClockRecord{rec}, entries, timebank.Date{}, timebank.Date{}, monday)

	// THEN: only the entry on a walked day counts, today contributes nothing
	assert.True(t, b.Truncated)
	assert.Equal(t, timebank.Minutes(30), b.Credits)
	assert.Equal(t, timebank.Minutes(0), b.TodayDelta)
	assert.Equal(t, timebank.TodayTruncated, b.TodaySource)

	// AND: the statement stops at the same day with the same running balance
	require.Len(t, lines, timebank.MaxAccrualDays)
	last := lines[len(lines)-1]
	assert.True(t, last.Date.Equal(cutoff))
	assert.Equal(t, b.Total(), last.Running)
	assert.Equal(t, b.Total(), timebank.CumulativeBalance(emp, []timebank.ClockRecord{rec}, entries, monday))
}

func TestBalance_OpenShiftAddsLiveDelta(t *testing.T) {
	// GIVEN: clocked in at 08:00 today, lunch 12:00-13:00
	now := at(2024, time.January, 8, 14, 0)
	rec := timebank.ClockRecord{
		ID: "r1", EmployeeID: "emp-1", Date: date("2024-01-08"),
		ClockIn:         ptr(at(2024, time.January, 8, 8, 0)),
		LunchStart:      ptr(at(2024, time.January, 8, 12, 0)),
		LunchEnd:        ptr(at(2024, time.January, 8, 13, 0)),
		ExpectedMinutes: 480,
	}

	b := timebank.Calculate(worker(), []timebank.ClockRecord{rec}, nil, now)

	// THEN: 300 worked so far, 180 still to go today
	assert.Equal(t, timebank.TodayPunches, b.TodaySource)
	assert.Equal(t, timebank.Minutes(-180), b.TodayDelta)
	assert.Equal(t, timebank.Minutes(-2640-180), b.Total())
}

func TestBalance_FinishedShiftIsNotCountedTwice(t *testing.T) {
	// GIVEN: today's shift closed and its WORK entry written
	now := at(2024, time.January, 8, 18, 0)
	rec := timebank.ClockRecord{
		ID: "r1", EmployeeID: "emp-1", Date: date("2024-01-08"),
		ClockIn:         ptr(at(2024, time.January, 8, 8, 0)),
		ClockOut:        ptr(at(2024, time.January, 8, 17, 0)),
		ExpectedMinutes: 480,
	}
	entry := workEntry("emp-1", "2024-01-08", 60)

	// THEN: the entry replaces the live delta
	b := timebank.Calculate(worker(), []timebank.ClockRecord{rec}, []timebank.Entry{entry}, now)
	assert.Equal(t, timebank.TodayEntries, b.TodaySource)
	assert.Equal(t, timebank.Minutes(60), b.TodayDelta)
	assert.Equal(t, timebank.Minutes(-2580), b.Total())

	// AND: the next morning the day's debit is charged and its entry
	// credited exactly once
	tomorrow := at(2024, time.January, 9, 7, 0)
	assert.Equal(t, timebank.Minutes(-2640-480+60),
		timebank.CumulativeBalance(worker(), []timebank.ClockRecord{rec}, []timebank.Entry{entry}, tomorrow))
}

func TestBalance_PaidAbsenceTodayIsNeutral(t *testing.T) {
	emp := worker()
	entries := []timebank.Entry{{
		ID: "vac", EmployeeID: emp.ID, Date: date("2024-01-08"), Minutes: 480, Kind: timebank.KindVacation,
	}}

	b := timebank.Calculate(emp, nil, entries, monday)
	assert.Equal(t, timebank.TodayEntries, b.TodaySource)
	assert.Equal(t, timebank.Minutes(0), b.TodayDelta)
	assert.Equal(t, timebank.Minutes(-2640), b.Total())

	// Tomorrow the debit and the credit cancel out.
	assert.Equal(t, timebank.Minutes(-2640),
		timebank.CumulativeBalance(emp, nil, entries, at(2024, time.January, 9, 7, 0)))
}

func TestBalance_Deterministic(t *testing.T) {
	entries := []timebank.Entry{workEntry("emp-1", "2024-01-02", 30)}
	first := timebank.Calculate(worker(), nil, entries, monday)
	second := timebank.Calculate(worker(), nil, entries, monday)
	assert.Equal(t, first, second)
}

func TestSnapshot_UnknownEmployeeIsZero(t *testing.T) {
	snap := timebank.Snapshot{Employees: []timebank.Employee{worker()}}

	assert.Equal(t, timebank.Minutes(0), snap.Balance("ghost", monday))

	got := snap.BalancesFor([]timebank.EmployeeID{"emp-1", "ghost"}, monday)
	assert.Equal(t, timebank.Minutes(-2640), got["emp-1"])
	assert.Equal(t, timebank.Minutes(0), got["ghost"])
}

func TestSnapshot_BalancesGroupsRowsByEmployee(t *testing.T) {
	snap := timebank.Snapshot{
		Employees: []timebank.Employee{worker(), hourly()},
		Entries: []timebank.Entry{
			workEntry("emp-1", "2024-01-02", 30),
			workEntry("emp-hourly", "2024-01-02", 120),
		},
	}

	balances := snap.Balances(monday)
	assert.Len(t, balances, 2)
	assert.Equal(t, timebank.Minutes(-2610), balances[0].Total())
	assert.Equal(t, timebank.Minutes(120), balances[1].Total())
}
