/*
service.go - Orchestrates punches and manager actions over a TxStore

PURPOSE:
  The engine (schedule.go, shift.go, balance.go, punch.go) is pure. Service
  is the thin layer that reads "now" once per call, loads what the engine
  needs, and persists what it returns.

ATOMICITY:
  A clock-out updates the record AND appends the WORK entry. Both happen
  inside one WithTx so a crash never leaves a finished shift without its
  ledger line (or the reverse).

MANUAL ENTRIES:
  AddAdjustment:    WORK_RETRO stores worked - expected(date);
                    ADJUSTMENT/BONUS/PAYMENT store the signed amount as is.
  AddJustification: MEDICAL/HOLIDAY/VACATION/OFF_DAY store expected(date),
                    cancelling that day's debit.
  DeleteEntry:      removes one entry.
  DeleteDay:        removes a day's clock record and its WORK entries.
*/
package timebank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service applies punches and manager actions.
type Service struct {
	Store    TxStore
	Location *time.Location   // calendar used for "today"
	Now      func() time.Time // clock; read once per call
	NewID    func() string
	Logger   *zap.Logger
}

// NewService creates a service using the local zone and the wall clock.
func NewService(store TxStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Store:    store,
		Location: time.Local,
		Now:      time.Now,
		NewID:    func() string { return uuid.NewString() },
		Logger:   logger,
	}
}

func (s *Service) now() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return s.Now().In(loc)
}

// Today returns the current calendar day.
func (s *Service) Today() Date {
	return DateOf(s.now())
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee validates and stores a new profile.
func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	if emp.ID == "" {
		emp.ID = EmployeeID(s.NewID())
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = s.now()
	}
	if err := emp.Validate(); err != nil {
		return Employee{}, err
	}
	if err := s.Store.SaveEmployee(ctx, emp); err != nil {
		return Employee{}, fmt.Errorf("save employee: %w", err)
	}
	s.Logger.Info("employee created", zap.String("employee_id", string(emp.ID)), zap.String("name", emp.Name))
	return emp, nil
}

// UpdateEmployee replaces an existing profile. Days already clocked keep
// the quota snapshotted on their record.
func (s *Service) UpdateEmployee(ctx context.Context, emp Employee) (Employee, error) {
	existing, err := s.Store.GetEmployee(ctx, emp.ID)
	if err != nil {
		return Employee{}, err
	}
	emp.CreatedAt = existing.CreatedAt
	if err := emp.Validate(); err != nil {
		return Employee{}, err
	}
	if err := s.Store.SaveEmployee(ctx, emp); err != nil {
		return Employee{}, fmt.Errorf("save employee: %w", err)
	}
	s.Logger.Info("employee updated", zap.String("employee_id", string(emp.ID)))
	return emp, nil
}

func (s *Service) GetEmployee(ctx context.Context, id EmployeeID) (Employee, error) {
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	return *emp, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.Store.ListEmployees(ctx)
}

// DeleteEmployee removes the profile. Its records and entries stay for
// audit; the engine ignores rows of unknown employees.
func (s *Service) DeleteEmployee(ctx context.Context, id EmployeeID) error {
	if _, err := s.Store.GetEmployee(ctx, id); err != nil {
		return err
	}
	if err := s.Store.DeleteEmployee(ctx, id); err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	s.Logger.Info("employee deleted", zap.String("employee_id", string(id)))
	return nil
}

// =============================================================================
// PUNCHES
// =============================================================================

// Punch applies the employee's next action for today.
func (s *Service) Punch(ctx context.Context, id EmployeeID) (PunchResult, error) {
	return s.PunchAction(ctx, id, "")
}

// PunchAction applies action (or the next action when empty) for today.
func (s *Service) PunchAction(ctx context.Context, id EmployeeID, action Action) (PunchResult, error) {
	now := s.now()
	var result PunchResult

	err := s.Store.WithTx(ctx, func(st Store) error {
		emp, err := st.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		rec, err := st.FindRecord(ctx, id, DateOf(now))
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("load today's record: %w", err)
		}
		if action == "" {
			action = NextAction(rec)
		}

		result, err = PunchAction(*emp, rec, action, now)
		if err != nil {
			return err
		}

		if result.Created {
			result.Record.ID = RecordID(s.NewID())
			if err := st.CreateRecord(ctx, result.Record); err != nil {
				return err
			}
		} else if err := st.UpdateRecord(ctx, result.Record); err != nil {
			return err
		}

		if result.Entry != nil {
			result.Entry.ID = EntryID(s.NewID())
			if err := st.AppendEntry(ctx, *result.Entry); err != nil {
				return fmt.Errorf("append work entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.Logger.Warn("punch rejected",
			zap.String("employee_id", string(id)),
			zap.String("action", string(action)),
			zap.Error(err))
		return PunchResult{}, err
	}

	fields := []zap.Field{
		zap.String("employee_id", string(id)),
		zap.String("date", result.Record.Date.String()),
		zap.String("action", string(result.Action)),
		zap.Stringer("stage", result.Stage),
	}
	if result.Entry != nil {
		fields = append(fields, zap.Int("minutes", int(result.Entry.Minutes)))
	}
	s.Logger.Info("punch recorded", fields...)
	return result, nil
}

// ClockStatus is what the punch screen shows for one employee.
type ClockStatus struct {
	Employee   Employee
	Record     *ClockRecord
	Stage      Stage
	NextAction Action
	Worked     Minutes
	Balance    Minutes
	AsOf       time.Time
}

// Status returns today's punch state and live balance for an employee.
func (s *Service) Status(ctx context.Context, id EmployeeID) (ClockStatus, error) {
	now := s.now()
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return ClockStatus{}, err
	}
	records, entries, err := s.loadEmployee(ctx, id)
	if err != nil {
		return ClockStatus{}, err
	}
	return statusOf(*emp, records, entries, now), nil
}

// Board returns the punch state of every active employee.
func (s *Service) Board(ctx context.Context) ([]ClockStatus, error) {
	now := s.now()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	var out []ClockStatus
	for _, emp := range snap.Employees {
		if !emp.IsActive {
			continue
		}
		out = append(out, statusOf(emp, snap.RecordsOf(emp.ID), snap.EntriesOf(emp.ID), now))
	}
	return out, nil
}

func statusOf(emp Employee, records []ClockRecord, entries []Entry, now time.Time) ClockStatus {
	st := ClockStatus{
		Employee: emp,
		Balance:  CumulativeBalance(emp, records, entries, now),
		AsOf:     now,
	}
	if rec := findRecord(records, emp.ID, DateOf(now)); rec != nil {
		r := *rec
		st.Record = &r
		st.Worked = WorkedMinutes(r, now)
	}
	st.Stage = StageOf(st.Record)
	st.NextAction = NextAction(st.Record)
	return st
}

// =============================================================================
// MANUAL LEDGER ENTRIES
// =============================================================================

// AdjustmentInput is a manager-entered amount.
// For WORK_RETRO, Minutes is the time worked on Date; for
// ADJUSTMENT/BONUS/PAYMENT it is the signed delta.
type AdjustmentInput struct {
	EmployeeID EmployeeID
	Date       Date
	Kind       EntryKind
	Minutes    Minutes
	Note       string
}

func (s *Service) AddAdjustment(ctx context.Context, in AdjustmentInput) (Entry, error) {
	now := s.now()
	if in.Date.IsZero() {
		return Entry{}, &ValidationError{Field: "adjustment", Problems: []string{"date is required"}}
	}
	if in.Kind != KindWorkRetro && !in.Kind.IsManualDelta() {
		return Entry{}, fmt.Errorf("%w: %q is not an adjustment kind", ErrInvalidEntryKind, in.Kind)
	}
	emp, err := s.Store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return Entry{}, err
	}

	minutes := in.Minutes
	if in.Kind == KindWorkRetro {
		var problems []string
		if in.Minutes < 0 {
			problems = append(problems, "worked minutes must not be negative")
		}
		if in.Date.After(DateOf(now)) {
			problems = append(problems, "retroactive work cannot be in the future")
		}
		if len(problems) > 0 {
			return Entry{}, &ValidationError{Field: "adjustment", Problems: problems}
		}
		minutes = in.Minutes - ExpectedMinutes(*emp, in.Date)
	}

	note := in.Note
	if note == "" {
		note = "Manual administrative adjustment"
	}
	e := Entry{
		ID:         EntryID(s.NewID()),
		EmployeeID: emp.ID,
		Date:       in.Date,
		Minutes:    minutes,
		Kind:       in.Kind,
		Note:       note,
		CreatedAt:  now,
	}
	if err := s.Store.AppendEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("append adjustment: %w", err)
	}
	s.Logger.Info("adjustment recorded",
		zap.String("employee_id", string(e.EmployeeID)),
		zap.String("date", e.Date.String()),
		zap.String("kind", string(e.Kind)),
		zap.Int("minutes", int(e.Minutes)))
	return e, nil
}

// JustificationInput excuses one day, or every contracted day in
// [Date, Through] when Through is set.
type JustificationInput struct {
	EmployeeID EmployeeID
	Date       Date
	Through    Date
	Kind       EntryKind
	Note       string
}

// AddJustification records paid absences. Each entry's minutes equal the
// day's expected minutes, so the day nets to zero.
func (s *Service) AddJustification(ctx context.Context, in JustificationInput) ([]Entry, error) {
	now := s.now()
	if !in.Kind.IsPaidAbsence() {
		return nil, fmt.Errorf("%w: %q is not an absence kind", ErrInvalidEntryKind, in.Kind)
	}
	if in.Date.IsZero() {
		return nil, &ValidationError{Field: "justification", Problems: []string{"date is required"}}
	}
	through := in.Through
	if through.IsZero() {
		through = in.Date
	}
	if through.Before(in.Date) {
		return nil, &ValidationError{Field: "justification", Problems: []string{"end date is before start date"}}
	}
	if DaysBetween(in.Date, through) >= 366 {
		return nil, &ValidationError{Field: "justification", Problems: []string{"range longer than a year"}}
	}

	var created []Entry
	err := s.Store.WithTx(ctx, func(st Store) error {
		emp, err := st.GetEmployee(ctx, in.EmployeeID)
		if err != nil {
			return err
		}
		single := in.Date.Equal(through)
		for d := in.Date; !d.After(through); d = d.AddDays(1) {
			expected := ExpectedMinutes(*emp, d)
			if expected == 0 && !single {
				continue
			}
			e := Entry{
				ID:         EntryID(s.NewID()),
				EmployeeID: emp.ID,
				Date:       d,
				Minutes:    expected,
				Kind:       in.Kind,
				Note:       in.Note,
				CreatedAt:  now,
			}
			if err := st.AppendEntry(ctx, e); err != nil {
				return fmt.Errorf("append justification: %w", err)
			}
			created = append(created, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("justification recorded",
		zap.String("employee_id", string(in.EmployeeID)),
		zap.String("kind", string(in.Kind)),
		zap.String("from", in.Date.String()),
		zap.String("through", through.String()),
		zap.Int("entries", len(created)))
	return created, nil
}

// DeleteEntry removes one ledger entry.
func (s *Service) DeleteEntry(ctx context.Context, id EntryID) error {
	e, err := s.Store.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	s.Logger.Info("entry deleted",
		zap.String("entry_id", string(id)),
		zap.String("employee_id", string(e.EmployeeID)),
		zap.String("date", e.Date.String()),
		zap.Int("minutes", int(e.Minutes)))
	return nil
}

// DeleteDay removes a clock record together with the WORK entries of its
// day, so the day falls back to a plain contractual debit.
func (s *Service) DeleteDay(ctx context.Context, id RecordID) error {
	var rec *ClockRecord
	removed := 0
	err := s.Store.WithTx(ctx, func(st Store) error {
		var err error
		rec, err = st.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		removed, err = st.DeleteEntries(ctx, rec.EmployeeID, rec.Date, KindWork)
		if err != nil {
			return fmt.Errorf("delete work entries: %w", err)
		}
		return st.DeleteRecord(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Logger.Info("clock day deleted",
		zap.String("record_id", string(id)),
		zap.String("employee_id", string(rec.EmployeeID)),
		zap.String("date", rec.Date.String()),
		zap.Int("entries_removed", removed))
	return nil
}

// =============================================================================
// READ MODEL
// =============================================================================

// Snapshot loads every employee, record and entry.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	employees, err := s.Store.ListEmployees(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list employees: %w", err)
	}
	records, err := s.Store.ListRecords(ctx, RecordFilter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list records: %w", err)
	}
	entries, err := s.Store.ListEntries(ctx, EntryFilter{})
	if err != nil {
		return Snapshot{}, fmt.Errorf("list entries: %w", err)
	}
	return Snapshot{Employees: employees, Records: records, Entries: entries}, nil
}

// Balance computes one employee's balance now.
func (s *Service) Balance(ctx context.Context, id EmployeeID) (Balance, error) {
	now := s.now()
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	records, entries, err := s.loadEmployee(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return Calculate(*emp, records, entries, now), nil
}

// Balances computes every employee's balance from one snapshot and one
// reading of the clock.
func (s *Service) Balances(ctx context.Context) ([]Balance, Snapshot, error) {
	now := s.now()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, Snapshot{}, err
	}
	return snap.Balances(now), snap, nil
}

// Statement returns the day-by-day history of an employee in [from, to].
func (s *Service) Statement(ctx context.Context, id EmployeeID, from, to Date) ([]StatementLine, error) {
	now := s.now()
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	records, entries, err := s.loadEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	return Statement(*emp, records, entries, from, to, now), nil
}

func (s *Service) Records(ctx context.Context, f RecordFilter) ([]ClockRecord, error) {
	return s.Store.ListRecords(ctx, f)
}

func (s *Service) Entries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	return s.Store.ListEntries(ctx, f)
}

func (s *Service) loadEmployee(ctx context.Context, id EmployeeID) ([]ClockRecord, []Entry, error) {
	records, err := s.Store.ListRecords(ctx, RecordFilter{EmployeeID: id})
	if err != nil {
		return nil, nil, fmt.Errorf("list records: %w", err)
	}
	entries, err := s.Store.ListEntries(ctx, EntryFilter{EmployeeID: id})
	if err != nil {
		return nil, nil, fmt.Errorf("list entries: %w", err)
	}
	return records, entries, nil
}
