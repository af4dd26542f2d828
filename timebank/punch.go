/*
punch.go - Punch state machine

PURPOSE:
  Advances one employee's record for one day through its stages and, on
  clock-out, emits the single finalized WORK entry for that day.

STATES (strictly ordered):
  EMPTY -> IN -> LUNCH_OUT -> LUNCH_BACK -> SNACK_OUT -> SNACK_BACK -> DONE

  The breaks are optional. The default next action is the slot after the
  furthest one recorded, in the order clockIn, lunchStart, lunchEnd,
  snackStart, snackEnd, clockOut. An explicit action may skip ahead (e.g.
  clock out without a snack) but never go back. DONE is terminal.

TRANSITION EFFECTS:
  clock-in:  creates the record and snapshots ExpectedMinutes for the day.
  clock-out: emits Entry{Kind: WORK, Minutes: worked - expected}. This is
             the only place a WORK entry is created.

PURITY:
  Punch never touches storage and never reads the clock; the caller passes
  now and persists the returned record and entry (see service.go).
*/
package timebank

import "time"

// =============================================================================
// STAGES AND ACTIONS
// =============================================================================

type Stage int

const (
	StageEmpty Stage = iota
	StageIn
	StageLunchOut
	StageLunchBack
	StageSnackOut
	StageSnackBack
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "EMPTY"
	case StageIn:
		return "IN"
	case StageLunchOut:
		return "LUNCH_OUT"
	case StageLunchBack:
		return "LUNCH_BACK"
	case StageSnackOut:
		return "SNACK_OUT"
	case StageSnackBack:
		return "SNACK_BACK"
	case StageDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// Action is a clock button press.
type Action string

const (
	ActionClockIn    Action = "in"
	ActionLunchStart Action = "l_start"
	ActionLunchEnd   Action = "l_end"
	ActionSnackStart Action = "s_start"
	ActionSnackEnd   Action = "s_end"
	ActionClockOut   Action = "out"
	ActionNone       Action = "done"
)

// punchOrder is the fixed slot order; index+1 is the Stage reached.
var punchOrder = []Action{
	ActionClockIn, ActionLunchStart, ActionLunchEnd,
	ActionSnackStart, ActionSnackEnd, ActionClockOut,
}

var actionLabels = map[Action]string{
	ActionClockIn:    "Clock in",
	ActionLunchStart: "Start lunch",
	ActionLunchEnd:   "Back from lunch",
	ActionSnackStart: "Start snack",
	ActionSnackEnd:   "Back from snack",
	ActionClockOut:   "Clock out",
	ActionNone:       "Finished",
}

func (a Action) Label() string { return actionLabels[a] }

func (a Action) IsValid() bool {
	_, ok := actionLabels[a]
	return ok && a != ActionNone
}

func (a Action) index() int {
	for i, p := range punchOrder {
		if p == a {
			return i
		}
	}
	return -1
}

// slot returns the record field a given action sets.
func (r *ClockRecord) slot(a Action) **time.Time {
	switch a {
	case ActionClockIn:
		return &r.ClockIn
	case ActionLunchStart:
		return &r.LunchStart
	case ActionLunchEnd:
		return &r.LunchEnd
	case ActionSnackStart:
		return &r.SnackStart
	case ActionSnackEnd:
		return &r.SnackEnd
	case ActionClockOut:
		return &r.ClockOut
	}
	return nil
}

// StageOf returns the furthest stage the record has reached.
func StageOf(rec *ClockRecord) Stage {
	if rec == nil {
		return StageEmpty
	}
	if rec.ClockOut != nil {
		return StageDone
	}
	stage := StageEmpty
	for i, a := range punchOrder {
		if *rec.slot(a) != nil {
			stage = Stage(i + 1)
		}
	}
	return stage
}

// NextAction returns the first slot after the furthest one recorded, or
// ActionNone once the shift is finished. This is not the earliest unset
// slot: after an explicit skip (e.g. straight to snack start with no
// lunch) the skipped slots stay empty and are never offered again.
func NextAction(rec *ClockRecord) Action {
	if rec == nil {
		return ActionClockIn
	}
	if rec.ClockOut != nil {
		return ActionNone
	}
	return punchOrder[int(StageOf(rec))]
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// PunchResult is what a transition produced. The caller persists Record
// (insert when Created, update otherwise) and Entry when non-nil.
type PunchResult struct {
	Action  Action
	Stage   Stage
	Record  ClockRecord
	Created bool
	Entry   *Entry
}

// Punch applies the default next action.
func Punch(emp Employee, rec *ClockRecord, now time.Time) (PunchResult, error) {
	return PunchAction(emp, rec, NextAction(rec), now)
}

// PunchAction applies an explicit action. rec is today's record for emp,
// or nil when there is none yet. rec is never modified.
func PunchAction(emp Employee, rec *ClockRecord, action Action, now time.Time) (PunchResult, error) {
	today := DateOf(now)
	reject := func(err error, reason string) (PunchResult, error) {
		return PunchResult{}, &PunchError{EmployeeID: emp.ID, Date: today, Action: action, Reason: reason, Err: err}
	}

	if !emp.IsActive {
		return reject(ErrInactiveEmployee, "employee is inactive")
	}

	if rec == nil {
		if action != ActionClockIn {
			return reject(ErrInvalidAction, "the day starts with a clock-in")
		}
		t := now
		created := ClockRecord{
			EmployeeID:      emp.ID,
			Date:            today,
			ClockIn:         &t,
			ExpectedMinutes: ExpectedMinutes(emp, today),
		}
		return PunchResult{Action: action, Stage: StageIn, Record: created, Created: true}, nil
	}

	switch {
	case rec.EmployeeID != emp.ID:
		return reject(ErrInvalidAction, "record belongs to another employee")
	case !rec.Date.Equal(today):
		return reject(ErrInvalidAction, "record belongs to "+rec.Date.String())
	case rec.ClockOut != nil:
		return reject(ErrShiftFinished, "shift already finished")
	}
	if err := checkTransition(rec, action); err != "" {
		return reject(ErrInvalidAction, err)
	}

	next := *rec
	t := now
	*next.slot(action) = &t

	result := PunchResult{Action: action, Stage: StageOf(&next), Record: next}
	if action == ActionClockOut {
		result.Entry = &Entry{
			EmployeeID: next.EmployeeID,
			Date:       next.Date,
			Minutes:    LiveDelta(next, now),
			Kind:       KindWork,
			CreatedAt:  now,
		}
	}
	return result, nil
}

// checkTransition returns a reason when action cannot follow rec.
func checkTransition(rec *ClockRecord, action Action) string {
	idx := action.index()
	if idx < 0 {
		return "unknown action " + string(action)
	}
	if action == ActionClockIn {
		return "already clocked in"
	}
	for _, later := range punchOrder[idx:] {
		if *rec.slot(later) != nil {
			return "stage " + string(later) + " already recorded"
		}
	}
	switch action {
	case ActionLunchEnd:
		if rec.LunchStart == nil {
			return "lunch has not started"
		}
	case ActionSnackEnd:
		if rec.SnackStart == nil {
			return "snack has not started"
		}
	case ActionSnackStart:
		if rec.LunchStart != nil && rec.LunchEnd == nil {
			return "lunch is still open"
		}
	}
	return ""
}
