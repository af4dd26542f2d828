package timebank

import "time"

// WorkedMinutes returns the minutes actually worked on the record, net of
// breaks. For an open shift, now stands in for every missing end
// (clock-out, lunch end, snack end), so the same formula yields a live
// "worked so far" figure and, once clocked out, the final figure.
//
// Inverted or malformed break timestamps clamp that break to zero; the
// result is never negative.
func WorkedMinutes(rec ClockRecord, now time.Time) Minutes {
	if rec.ClockIn == nil {
		return 0
	}
	end := now
	if rec.ClockOut != nil {
		end = *rec.ClockOut
	}

	total := MinutesBetween(*rec.ClockIn, end)
	total -= breakMinutes(rec.LunchStart, rec.LunchEnd, end)
	total -= breakMinutes(rec.SnackStart, rec.SnackEnd, end)

	return nonNegative(total)
}

// breakMinutes is (stop ?? shiftEnd) - start, zero when the break never
// started or the timestamps are out of order.
func breakMinutes(start, stop *time.Time, shiftEnd time.Time) Minutes {
	if start == nil {
		return 0
	}
	end := shiftEnd
	if stop != nil {
		end = *stop
	}
	return nonNegative(MinutesBetween(*start, end))
}

// BreakMinutes returns the lunch and snack durations counted against the
// record, using the same rules as WorkedMinutes.
func BreakMinutes(rec ClockRecord, now time.Time) (lunch, snack Minutes) {
	end := now
	if rec.ClockOut != nil {
		end = *rec.ClockOut
	}
	return breakMinutes(rec.LunchStart, rec.LunchEnd, end), breakMinutes(rec.SnackStart, rec.SnackEnd, end)
}
