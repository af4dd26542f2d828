package timebank

import "time"

// StatementLine is one day of an employee's time-bank history.
type StatementLine struct {
	Date     Date
	Expected Minutes // quota for the day (0 for hourly employees)
	Worked   Minutes // from the day's clock record, informational
	Ledger   Minutes // sum of the day's entries that count toward the balance
	Net      Minutes // the day's contribution to the balance
	Running  Minutes // balance after this day
	Kinds    []EntryKind
	Open     bool // today, with the shift still running
}

// Statement walks the same days and rules as Calculate and returns the
// lines that fall in [from, to]. A zero from/to means unbounded. The
// Running value of the last line walked equals CumulativeBalance; when the
// history is longer than MaxAccrualDays that line is the last day counted,
// not today.
func Statement(emp Employee, records []ClockRecord, entries []Entry, from, to Date, now time.Time) []StatementLine {
	today := DateOf(now)
	start := historyStart(emp, today)
	if to.IsZero() || to.After(today) {
		to = today
	}

	byDay := make(map[Date][]Entry)
	for _, e := range entries {
		if e.EmployeeID == emp.ID {
			byDay[e.Date] = append(byDay[e.Date], e)
		}
	}
	recs := make(map[Date]ClockRecord)
	for _, r := range records {
		if r.EmployeeID == emp.ID {
			recs[r.Date] = r
		}
	}

	var lines []StatementLine
	running := emp.InitialBalanceMinutes
	visited := 0
	for d := start; !d.After(to); d = d.AddDays(1) {
		if d.Before(today) {
			if visited >= MaxAccrualDays {
				break
			}
			visited++
		}

		line := StatementLine{Date: d}
		for _, e := range byDay[d] {
			line.Kinds = append(line.Kinds, e.Kind)
		}
		rec, hasRec := recs[d]
		if hasRec {
			line.Worked = WorkedMinutes(rec, now)
		}

		if d.Before(today) {
			if !emp.IsHourly {
				line.Expected = ExpectedMinutes(emp, d)
			}
			for _, e := range byDay[d] {
				line.Ledger += e.Minutes
			}
			line.Net = line.Ledger - line.Expected
		} else {
			line.Expected = ExpectedMinutes(emp, d)
			if hasRec {
				line.Expected = rec.ExpectedMinutes
				line.Open = rec.IsOpen()
			}
			var src TodaySource
			line.Net, src = todayDelta(emp.ID, d, records, byDay[d], now)
			if src == TodayEntries {
				line.Ledger = line.Net
			}
		}

		running += line.Net
		line.Running = running
		if from.IsZero() || !d.Before(from) {
			lines = append(lines, line)
		}
	}
	return lines
}
