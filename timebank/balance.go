/*
balance.go - Cumulative time-bank balance

PURPOSE:
  Answers "how many minutes is this employee ahead or behind right now?"
  The balance is never stored. It is recomputed from a snapshot of
  (Employee, ClockRecords, Entries, now) every time it is needed.

ALGORITHM:
  1. Seed:      balance = InitialBalanceMinutes
  2. Debits:    for every day d in [StartDate, yesterday], subtract
                ExpectedMinutes(d). Charged unconditionally, so a day with
                no punches and no excusing entry is a full deficit.
                Hourly employees have no debit.
  3. Ledger:    add every entry dated in [StartDate, yesterday]. Entries are
                already net deltas (WORK = worked - expected; paid absence =
                expected, cancelling step 2 for that day).
  4. Today:     entries dated today take precedence. If there are none and
                today has a clock record, add the live delta
                WorkedMinutes(record, now) - record.ExpectedMinutes.

TODAY'S ENTRIES:
  Today's debit is not charged until the day closes, so today's paid
  absences contribute nothing yet (tomorrow they cancel the debit). Every
  other kind is a net delta and counts immediately. A finished shift's
  WORK entry therefore replaces the live punch delta instead of doubling
  it.

SAFETY:
  The day walk stops after MaxAccrualDays even if StartDate is corrupt.
  A truncated balance ends at the last day walked: later entries and
  today's delta are not counted.
  A zero StartDate means "no history". The engine never errors.

EXAMPLE:
  480 min/day, Saturday = 240, start Monday 2024-01-01, evaluated on
  2024-01-08 with nothing recorded:
    -(480*5 + 240) = -2640
*/
package timebank

import "time"

// MaxAccrualDays bounds the historical day walk (roughly eight years).
const MaxAccrualDays = 3000

// TodaySource tells which rule produced today's contribution.
type TodaySource string

const (
	TodayNone      TodaySource = "none"
	TodayPunches   TodaySource = "punches"
	TodayEntries   TodaySource = "entries"
	TodayNotBegun  TodaySource = "before_start"
	TodayTruncated TodaySource = "truncated" // history walk stopped before today
)

// =============================================================================
// BALANCE - Components of the cumulative balance
// =============================================================================

// Balance is the decomposed cumulative balance of one employee at AsOf.
type Balance struct {
	EmployeeID EmployeeID
	AsOf       time.Time
	Today      Date

	Initial Minutes // opening balance
	Debits  Minutes // contractual minutes charged for closed days (positive)
	Credits Minutes // sum of ledger entries for closed days (signed)

	TodayDelta  Minutes
	TodaySource TodaySource

	DaysAccrued int
	Truncated   bool // history walk hit MaxAccrualDays
}

// Total is the displayed balance.
func (b Balance) Total() Minutes {
	return b.Initial - b.Debits + b.Credits + b.TodayDelta
}

// Closed is the balance at the end of yesterday.
func (b Balance) Closed() Minutes {
	return b.Initial - b.Debits + b.Credits
}

// =============================================================================
// ENGINE
// =============================================================================

// Calculate computes the balance components for emp. records and entries
// may contain rows of other employees; they are ignored.
func Calculate(emp Employee, records []ClockRecord, entries []Entry, now time.Time) Balance {
	today := DateOf(now)
	yesterday := today.AddDays(-1)
	start := historyStart(emp, today)

	b := Balance{
		EmployeeID:  emp.ID,
		AsOf:        now,
		Today:       today,
		Initial:     emp.InitialBalanceMinutes,
		TodaySource: TodayNone,
	}

	last := start.AddDays(-1)
	for d := start; !d.After(yesterday); d = d.AddDays(1) {
		if b.DaysAccrued >= MaxAccrualDays {
			b.Truncated = true
			break
		}
		b.DaysAccrued++
		last = d
		if emp.IsHourly {
			continue
		}
		b.Debits += ExpectedMinutes(emp, d)
	}

	var todays []Entry
	for _, e := range entries {
		if e.EmployeeID != emp.ID || e.Date.Before(start) {
			continue
		}
		switch {
		case !e.Date.After(last):
			b.Credits += e.Minutes
		case e.Date.Equal(today) && !b.Truncated:
			todays = append(todays, e)
		}
	}

	if b.Truncated {
		b.TodaySource = TodayTruncated
		return b
	}
	if today.Before(start) {
		b.TodaySource = TodayNotBegun
		return b
	}

	b.TodayDelta, b.TodaySource = todayDelta(emp.ID, today, records, todays, now)
	return b
}

// CumulativeBalance is Calculate(...).Total().
func CumulativeBalance(emp Employee, records []ClockRecord, entries []Entry, now time.Time) Minutes {
	return Calculate(emp, records, entries, now).Total()
}

// LiveDelta is the running delta of a single record: worked so far minus
// the quota snapshotted at clock-in.
func LiveDelta(rec ClockRecord, now time.Time) Minutes {
	return WorkedMinutes(rec, now) - rec.ExpectedMinutes
}

func todayDelta(empID EmployeeID, today Date, records []ClockRecord, todays []Entry, now time.Time) (Minutes, TodaySource) {
	if len(todays) > 0 {
		var delta Minutes
		for _, e := range todays {
			if e.Kind.IsPaidAbsence() {
				continue
			}
			delta += e.Minutes
		}
		return delta, TodayEntries
	}
	if rec := findRecord(records, empID, today); rec != nil && rec.ClockIn != nil {
		return LiveDelta(*rec, now), TodayPunches
	}
	return 0, TodayNone
}

func historyStart(emp Employee, today Date) Date {
	if emp.StartDate.IsZero() {
		return today
	}
	return emp.StartDate
}

func findRecord(records []ClockRecord, empID EmployeeID, date Date) *ClockRecord {
	for i := range records {
		if records[i].EmployeeID == empID && records[i].Date.Equal(date) {
			return &records[i]
		}
	}
	return nil
}

// =============================================================================
// SNAPSHOT - Immutable read model for a whole roster
// =============================================================================

// Snapshot is everything the engine reads, fetched in one batch.
type Snapshot struct {
	Employees []Employee
	Records   []ClockRecord
	Entries   []Entry
}

// Employee finds an employee by id.
func (s Snapshot) Employee(id EmployeeID) (Employee, bool) {
	for _, e := range s.Employees {
		if e.ID == id {
			return e, true
		}
	}
	return Employee{}, false
}

// Balance returns the cumulative balance for id, or 0 when the id does
// not resolve to an employee.
func (s Snapshot) Balance(id EmployeeID, now time.Time) Minutes {
	emp, ok := s.Employee(id)
	if !ok {
		return 0
	}
	return CumulativeBalance(emp, s.RecordsOf(id), s.EntriesOf(id), now)
}

// Balances computes every employee's balance from one reading of now.
func (s Snapshot) Balances(now time.Time) []Balance {
	records := make(map[EmployeeID][]ClockRecord)
	for _, r := range s.Records {
		records[r.EmployeeID] = append(records[r.EmployeeID], r)
	}
	entries := make(map[EmployeeID][]Entry)
	for _, e := range s.Entries {
		entries[e.EmployeeID] = append(entries[e.EmployeeID], e)
	}

	out := make([]Balance, 0, len(s.Employees))
	for _, emp := range s.Employees {
		out = append(out, Calculate(emp, records[emp.ID], entries[emp.ID], now))
	}
	return out
}

// BalancesFor returns balances keyed by the requested ids. Unknown ids map
// to 0 instead of failing the batch.
func (s Snapshot) BalancesFor(ids []EmployeeID, now time.Time) map[EmployeeID]Minutes {
	out := make(map[EmployeeID]Minutes, len(ids))
	for _, id := range ids {
		out[id] = s.Balance(id, now)
	}
	return out
}

func (s Snapshot) RecordsOf(id EmployeeID) []ClockRecord {
	var out []ClockRecord
	for _, r := range s.Records {
		if r.EmployeeID == id {
			out = append(out, r)
		}
	}
	return out
}

func (s Snapshot) EntriesOf(id EmployeeID) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.EmployeeID == id {
			out = append(out, e)
		}
	}
	return out
}

// Record finds the record of id on date.
func (s Snapshot) Record(id EmployeeID, date Date) (ClockRecord, bool) {
	if r := findRecord(s.Records, id, date); r != nil {
		return *r, true
	}
	return ClockRecord{}, false
}
