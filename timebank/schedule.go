package timebank

import "time"

// ExpectedMinutes returns the contracted minutes for the employee on date.
// Total over all dates, never negative.
func ExpectedMinutes(emp Employee, date Date) Minutes {
	if emp.IsHourly {
		return 0
	}
	switch wd := date.Weekday(); {
	case wd == time.Sunday:
		return 0
	case wd == emp.ShortWeekday:
		return nonNegative(emp.ShortWeekdayMinutes)
	default:
		return nonNegative(emp.BaseDailyMinutes)
	}
}

// ExpectedBetween sums ExpectedMinutes over [from, to].
func ExpectedBetween(emp Employee, from, to Date) Minutes {
	var total Minutes
	for d := from; !d.After(to); d = d.AddDays(1) {
		total += ExpectedMinutes(emp, d)
	}
	return total
}

func nonNegative(m Minutes) Minutes {
	if m < 0 {
		return 0
	}
	return m
}
