/*
Package timebank implements the time-bank accrual engine.

PURPOSE:
  Converts attendance punches into a running overtime/deficit balance per
  employee, measured against each employee's own weekly schedule. The
  engine is a pure function of a data snapshot; persistence lives behind
  the Store interfaces in store.go.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee:    Schedule profile (daily quota, short weekday, hourly flag)
  - ClockRecord: One day's punches (in, lunch, snack, out)
  - Entry:       A signed ledger line (finalized work, adjustment, absence)
  - EntryKind:   What an entry's minutes mean for the balance

DATA FLOW:
  punches -> WorkedMinutes -> finalized WORK entry -> Calculate -> balance
  manual entries (adjustments, paid absences, retro work) go straight to
  the ledger and are consumed the same way.

SIGN CONVENTION:
  Every Entry.Minutes is a net delta against the balance. A finalized WORK
  entry stores worked - expected for its day; a paid absence stores the
  day's expected minutes so it exactly cancels that day's debit.

SEE ALSO:
  - schedule.go: Expected minutes per date
  - shift.go:    Worked minutes per record
  - balance.go:  Cumulative balance
  - punch.go:    Punch state machine
*/
package timebank

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RecordID string
type EntryID string

// =============================================================================
// EMPLOYEE - Schedule profile
// =============================================================================

// Employee is the schedule profile the engine measures punches against.
//
// INVARIANTS:
//   - ShortWeekday is never Sunday; Sunday is always a zero-quota day.
//   - Days before StartDate are never visited by the accrual.
type Employee struct {
	ID   EmployeeID
	Name string
	Role string

	// Contracted minutes on a standard work day (e.g. 480).
	BaseDailyMinutes Minutes

	// One weekday carrying a different quota ("short day"). Zero minutes
	// means the day is fully off.
	ShortWeekday        time.Weekday
	ShortWeekdayMinutes Minutes

	// Hourly employees have no quota; every worked minute is a credit.
	IsHourly bool
	IsActive bool

	StartDate             Date
	InitialBalanceMinutes Minutes

	CreatedAt time.Time
}

// Validate checks the profile invariants.
func (e Employee) Validate() error {
	var problems []string
	if e.Name == "" {
		problems = append(problems, "name is required")
	}
	if e.ShortWeekday <= time.Sunday || e.ShortWeekday > time.Saturday {
		problems = append(problems, "short weekday must be Monday..Saturday")
	}
	if e.BaseDailyMinutes < 0 {
		problems = append(problems, "base daily minutes must not be negative")
	}
	if e.ShortWeekdayMinutes < 0 {
		problems = append(problems, "short weekday minutes must not be negative")
	}
	if e.StartDate.IsZero() {
		problems = append(problems, "start date is required")
	}
	if len(problems) > 0 {
		return &ValidationError{Field: "employee", Problems: problems}
	}
	return nil
}

// =============================================================================
// CLOCK RECORD - One day of punches
// =============================================================================

// ClockRecord holds one employee's punches for one calendar day.
// At most one record exists per (EmployeeID, Date).
type ClockRecord struct {
	ID         RecordID
	EmployeeID EmployeeID
	Date       Date

	ClockIn    *time.Time
	LunchStart *time.Time
	LunchEnd   *time.Time
	SnackStart *time.Time
	SnackEnd   *time.Time
	ClockOut   *time.Time

	// Snapshot of ExpectedMinutes taken at clock-in, so later schedule
	// edits do not rewrite days already started.
	ExpectedMinutes Minutes

	Note string
}

// IsOpen reports whether the shift has started and not yet finished.
func (r ClockRecord) IsOpen() bool {
	return r.ClockIn != nil && r.ClockOut == nil
}

// IsFinished reports whether the shift reached its terminal state.
func (r ClockRecord) IsFinished() bool {
	return r.ClockOut != nil
}

// =============================================================================
// ENTRY - Ledger line
// =============================================================================

// EntryKind says where an entry came from and how its minutes were derived.
type EntryKind string

const (
	KindWork       EntryKind = "WORK"       // Finalized shift: worked - expected
	KindWorkRetro  EntryKind = "WORK_RETRO" // Retroactive work: worked - expected
	KindAdjustment EntryKind = "ADJUSTMENT" // Manual signed correction
	KindBonus      EntryKind = "BONUS"      // Granted credit
	KindPayment    EntryKind = "PAYMENT"    // Hours paid out (usually negative)
	KindMedical    EntryKind = "MEDICAL"    // Paid medical absence
	KindHoliday    EntryKind = "HOLIDAY"    // Paid holiday
	KindVacation   EntryKind = "VACATION"   // Paid vacation
	KindOffDay     EntryKind = "OFF_DAY"    // Compensatory day off
)

var entryKindLabels = map[EntryKind]string{
	KindWork:       "Work (punch clock)",
	KindWorkRetro:  "Retroactive work",
	KindAdjustment: "Manual adjustment",
	KindBonus:      "Bonus",
	KindPayment:    "Payment/withdrawal",
	KindMedical:    "Medical certificate",
	KindHoliday:    "Holiday",
	KindVacation:   "Vacation",
	KindOffDay:     "Compensatory day off",
}

// EntryKinds lists every kind in display order.
func EntryKinds() []EntryKind {
	return []EntryKind{
		KindWork, KindWorkRetro, KindAdjustment, KindBonus, KindPayment,
		KindMedical, KindHoliday, KindVacation, KindOffDay,
	}
}

func (k EntryKind) IsValid() bool {
	_, ok := entryKindLabels[k]
	return ok
}

func (k EntryKind) Label() string {
	if l, ok := entryKindLabels[k]; ok {
		return l
	}
	return string(k)
}

// IsPaidAbsence reports kinds whose minutes cancel the day's contractual
// debit ("excused", not "rewarded").
func (k EntryKind) IsPaidAbsence() bool {
	switch k {
	case KindMedical, KindHoliday, KindVacation, KindOffDay:
		return true
	}
	return false
}

// IsManualDelta reports kinds a manager enters as a raw signed amount.
func (k EntryKind) IsManualDelta() bool {
	switch k {
	case KindAdjustment, KindBonus, KindPayment:
		return true
	}
	return false
}

// Entry is an immutable ledger line. Corrections are made by deleting and
// re-inserting, never by editing.
type Entry struct {
	ID         EntryID
	EmployeeID EmployeeID
	Date       Date
	Minutes    Minutes
	Kind       EntryKind
	Note       string
	CreatedAt  time.Time
}
