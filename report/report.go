// Package report builds the roster balance table and the accountant
// timesheet, rendered as a text table or CSV.
package report

import (
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nobel/timebank/timebank"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a user value to a Format; anything but "csv" is text.
func ParseFormat(s string) Format {
	if s == string(FormatCSV) {
		return FormatCSV
	}
	return FormatText
}

const missing = "---"

// =============================================================================
// ROSTER
// =============================================================================

// RosterRow is one employee's cumulative balance.
type RosterRow struct {
	EmployeeID timebank.EmployeeID
	Name       string
	Role       string
	Active     bool
	Balance    timebank.Minutes
	Truncated  bool
}

// Roster lists every employee in the snapshot with its balance at now,
// sorted by name.
func Roster(snap timebank.Snapshot, now time.Time) []RosterRow {
	balances := make(map[timebank.EmployeeID]timebank.Balance)
	for _, b := range snap.Balances(now) {
		balances[b.EmployeeID] = b
	}

	rows := make([]RosterRow, 0, len(snap.Employees))
	for _, emp := range snap.Employees {
		b := balances[emp.ID]
		rows = append(rows, RosterRow{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Role:       emp.Role,
			Active:     emp.IsActive,
			Balance:    b.Total(),
			Truncated:  b.Truncated,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// WriteRoster renders rows to w.
func WriteRoster(w io.Writer, rows []RosterRow, format Format) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Employee", "Role", "Status", "Balance", "Hours"})
	var total timebank.Minutes
	for _, r := range rows {
		status := "active"
		if !r.Active {
			status = "inactive"
		}
		balance := r.Balance.String()
		if r.Truncated {
			balance += " *"
		}
		t.AppendRow(table.Row{r.Name, r.Role, status, balance, r.Balance.Hours().StringFixed(2)})
		total += r.Balance
	}
	t.AppendFooter(table.Row{"", "", "Total", total.String(), total.Hours().StringFixed(2)})
	return render(w, t, format)
}

// =============================================================================
// TIMESHEET
// =============================================================================

// TimesheetFilter selects the clock records of a timesheet. Zero values
// are unbounded.
type TimesheetFilter struct {
	From       timebank.Date
	To         timebank.Date
	EmployeeID timebank.EmployeeID
}

// TimesheetRow is one clock record as the accountant sees it.
type TimesheetRow struct {
	Employee   string        `json:"employee"`
	Date       timebank.Date `json:"date"`
	ClockIn    string        `json:"clock_in"`
	LunchStart string        `json:"lunch_start"`
	LunchEnd   string        `json:"lunch_end"`
	ClockOut   string        `json:"clock_out"`
	DayBalance string        `json:"day_balance"` // finalized WORK entry of the day, or "---"
	Kind       string        `json:"kind"`
}

// Timesheet returns one row per clock record in the filter, oldest first.
// Times are shown in loc.
func Timesheet(snap timebank.Snapshot, f TimesheetFilter, loc *time.Location) []TimesheetRow {
	if loc == nil {
		loc = time.Local
	}
	rf := timebank.RecordFilter{EmployeeID: f.EmployeeID, From: f.From, To: f.To}

	var records []timebank.ClockRecord
	for _, r := range snap.Records {
		if rf.Match(r) {
			records = append(records, r)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].EmployeeID < records[j].EmployeeID
	})

	rows := make([]TimesheetRow, 0, len(records))
	for _, r := range records {
		name := missing
		if emp, ok := snap.Employee(r.EmployeeID); ok {
			name = emp.Name
		}
		row := TimesheetRow{
			Employee:   name,
			Date:       r.Date,
			ClockIn:    clock(r.ClockIn, loc),
			LunchStart: clock(r.LunchStart, loc),
			LunchEnd:   clock(r.LunchEnd, loc),
			ClockOut:   clock(r.ClockOut, loc),
			DayBalance: missing,
			Kind:       timebank.KindWork.Label(),
		}
		for _, e := range snap.EntriesOf(r.EmployeeID) {
			if e.Kind == timebank.KindWork && e.Date.Equal(r.Date) {
				row.DayBalance = e.Minutes.String()
				row.Kind = e.Kind.Label()
				break
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteTimesheet renders rows to w.
func WriteTimesheet(w io.Writer, rows []TimesheetRow, format Format) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Employee", "Date", "In", "Lunch start", "Lunch end", "Out", "Day balance", "Kind"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Employee,
			r.Date.String(),
			r.ClockIn,
			r.LunchStart,
			r.LunchEnd,
			r.ClockOut,
			r.DayBalance,
			r.Kind,
		})
	}
	return render(w, t, format)
}

func render(w io.Writer, t table.Writer, format Format) error {
	var out string
	if format == FormatCSV {
		out = t.RenderCSV()
	} else {
		t.SetStyle(table.StyleRounded)
		out = t.Render()
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}

func clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return missing
	}
	return t.In(loc).Format("15:04")
}
