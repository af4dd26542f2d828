/*
errors.go - Centralized error types for the time bank

PURPOSE:
  The accrual engine itself never fails: bad data degrades (unknown
  employee -> 0, inverted break -> 0 minutes, runaway history -> capped).
  Errors only come from the punch state machine, the manual-entry
  operations and the stores.

ERROR CATEGORIES:
  1. Lookup errors     - ErrEmployeeNotFound, ErrRecordNotFound, ErrEntryNotFound
  2. Client errors     - invalid punch, invalid kind, invalid profile
  3. Conflict errors   - duplicate day record, shift already finished

USAGE:
  if errors.Is(err, timebank.ErrShiftFinished) { ... }

  var pe *timebank.PunchError
  if errors.As(err, &pe) { log(pe.Action) }
*/
package timebank

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrRecordNotFound   = errors.New("clock record not found")
	ErrEntryNotFound    = errors.New("time bank entry not found")

	// ErrDuplicateRecord is returned when a second record is created for the
	// same (employee, date). Stores enforce it with a unique constraint.
	ErrDuplicateRecord = errors.New("clock record already exists for this day")

	// ErrShiftFinished is returned for any punch after clock-out.
	ErrShiftFinished = errors.New("shift already finished")

	ErrInvalidAction    = errors.New("invalid punch action")
	ErrInactiveEmployee = errors.New("employee is inactive")
	ErrInvalidEntryKind = errors.New("invalid entry kind")
	ErrInvalidEmployee  = errors.New("invalid employee profile")
	ErrInvalidInput     = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PunchError describes a rejected punch.
type PunchError struct {
	EmployeeID EmployeeID
	Date       Date
	Action     Action
	Reason     string
	Err        error
}

func (e *PunchError) Error() string {
	return fmt.Sprintf("punch %s rejected for %s on %s: %s", e.Action, e.EmployeeID, e.Date, e.Reason)
}

func (e *PunchError) Unwrap() error { return e.Err }

// ValidationError lists what is wrong with a submitted value.
type ValidationError struct {
	Field    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	if e.Field == "employee" {
		return ErrInvalidEmployee
	}
	return ErrInvalidInput
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateRecord) ||
		errors.Is(err, ErrShiftFinished)
}

func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrInactiveEmployee) ||
		errors.Is(err, ErrInvalidEntryKind) ||
		errors.Is(err, ErrInvalidEmployee) ||
		errors.Is(err, ErrInvalidInput)
}
