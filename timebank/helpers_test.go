package timebank_test

import (
	"time"

	"github.com/nobel/timebank/timebank"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// worker is the reference profile: 8h days, 4h Saturdays, started on
// Monday 2024-01-01 with a zero opening balance.
func worker() timebank.Employee {
	return timebank.Employee{
		ID:                  "emp-1",
		Name:                "Ana",
		Role:                "Teacher",
		BaseDailyMinutes:    480,
		ShortWeekday:        time.Saturday,
		ShortWeekdayMinutes: 240,
		IsActive:            true,
		StartDate:           timebank.NewDate(2024, time.January, 1),
	}
}

func hourly() timebank.Employee {
	e := worker()
	e.ID = "emp-hourly"
	e.Name = "Bruno"
	e.IsHourly = true
	return e
}

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func date(s string) timebank.Date { return timebank.MustParseDate(s) }

func workEntry(empID timebank.EmployeeID, d string, minutes timebank.Minutes) timebank.Entry {
	return timebank.Entry{
		ID:         timebank.EntryID("e-" + d + "-" + string(empID)),
		EmployeeID: empID,
		Date:       date(d),
		Minutes:    minutes,
		Kind:       timebank.KindWork,
	}
}
