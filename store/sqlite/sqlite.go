/*
Package sqlite provides a SQLite-backed implementation of the time-bank
storage interfaces.

PURPOSE:
  Implements timebank.TxStore and timebank.SettingsStore on a single SQLite
  file. This is the default backend for a one-site deployment: the punch
  terminal and the manager screens share one database.

INTERFACES IMPLEMENTED:
  timebank.Store:         Employees, clock records, ledger entries
  timebank.TxStore:       Atomic clock-out (record update + WORK entry)
  timebank.SettingsStore: Manager passcode hash and other settings

KEY TABLES:
  employees:      Work schedule profiles
  clock_records:  One row per (employee, day); punch timestamps
  entries:        Signed ledger lines (never updated)
  settings:       key/value

UNIQUENESS:
  UNIQUE(employee_id, date) on clock_records is what rejects a second
  clock-in for the same day. The violation surfaces as
  timebank.ErrDuplicateRecord.

CONCURRENCY:
  The pool is capped at one connection. Writers queue on it and a
  WithTx callback owns it until commit, so reads inside the callback go
  through the same *sql.Tx and never wait on themselves. This also keeps
  ":memory:" databases from splitting across connections.

FORMATS:
  Calendar days are TEXT "YYYY-MM-DD" and sort lexically.
  Timestamps are TEXT RFC3339Nano in UTC; unset punches are NULL.

USAGE:
  store, err := sqlite.New("./data/timebank.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := timebank.NewService(store, logger)

MIGRATION:
  Schema is auto-migrated on New().
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/nobel/timebank/timebank"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	queries
	db *sql.DB
}

var (
	_ timebank.TxStore       = (*Store)(nil)
	_ timebank.SettingsStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: queries{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		base_daily_minutes INTEGER NOT NULL,
		short_weekday INTEGER NOT NULL,
		short_weekday_minutes INTEGER NOT NULL,
		is_hourly BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		start_date TEXT NOT NULL,
		initial_balance_minutes INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clock_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		clock_in TEXT,
		lunch_start TEXT,
		lunch_end TEXT,
		snack_start TEXT,
		snack_end TEXT,
		clock_out TEXT,
		expected_minutes INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		UNIQUE(employee_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_clock_records_date
		ON clock_records(date);

	-- Ledger (rows are inserted and deleted, never updated)
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		minutes INTEGER NOT NULL,
		kind TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Balance computation reads every entry of one employee (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_employee_date
		ON entries(employee_id, date);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (timebank.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store timebank.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements timebank.Store on top of a querier.
type queries struct {
	q querier
}

type scanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, role, base_daily_minutes, short_weekday, short_weekday_minutes,
	is_hourly, is_active, start_date, initial_balance_minutes, created_at`

// SaveEmployee inserts or replaces an employee.
func (s *queries) SaveEmployee(ctx context.Context, emp timebank.Employee) error {
	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			base_daily_minutes = excluded.base_daily_minutes,
			short_weekday = excluded.short_weekday,
			short_weekday_minutes = excluded.short_weekday_minutes,
			is_hourly = excluded.is_hourly,
			is_active = excluded.is_active,
			start_date = excluded.start_date,
			initial_balance_minutes = excluded.initial_balance_minutes
	`

	_, err := s.q.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Role,
		int(emp.BaseDailyMinutes), int(emp.ShortWeekday), int(emp.ShortWeekdayMinutes),
		emp.IsHourly, emp.IsActive,
		emp.StartDate.String(),
		int(emp.InitialBalanceMinutes),
		formatTime(emp.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *queries) GetEmployee(ctx context.Context, id timebank.EmployeeID) (*timebank.Employee, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)

	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, timebank.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *queries) ListEmployees(ctx context.Context) ([]timebank.Employee, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []timebank.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// DeleteEmployee removes an employee. Its records and entries are kept.
func (s *queries) DeleteEmployee(ctx context.Context, id timebank.EmployeeID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	return err
}

func scanEmployee(row scanner) (timebank.Employee, error) {
	var (
		emp                                  timebank.Employee
		base, weekday, shortMinutes, initial int
		startDate, createdAt                 string
	)
	err := row.Scan(&emp.ID, &emp.Name, &emp.Role, &base, &weekday, &shortMinutes,
		&emp.IsHourly, &emp.IsActive, &startDate, &initial, &createdAt)
	if err != nil {
		return emp, err
	}

	emp.BaseDailyMinutes = timebank.Minutes(base)
	emp.ShortWeekday = time.Weekday(weekday)
	emp.ShortWeekdayMinutes = timebank.Minutes(shortMinutes)
	emp.InitialBalanceMinutes = timebank.Minutes(initial)
	if startDate != "" {
		if emp.StartDate, err = timebank.ParseDate(startDate); err != nil {
			return emp, fmt.Errorf("employee %s: %w", emp.ID, err)
		}
	}
	emp.CreatedAt = parseTime(createdAt)
	return emp, nil
}

// =============================================================================
// CLOCK RECORDS
// =============================================================================

const recordColumns = `id, employee_id, date, clock_in, lunch_start, lunch_end,
	snack_start, snack_end, clock_out, expected_minutes, note`

// CreateRecord inserts the day's record. A second record for the same
// employee and day fails with timebank.ErrDuplicateRecord.
func (s *queries) CreateRecord(ctx context.Context, rec timebank.ClockRecord) error {
	query := `INSERT INTO clock_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		rec.ID, rec.EmployeeID, rec.Date.String(),
		nullTime(rec.ClockIn), nullTime(rec.LunchStart), nullTime(rec.LunchEnd),
		nullTime(rec.SnackStart), nullTime(rec.SnackEnd), nullTime(rec.ClockOut),
		int(rec.ExpectedMinutes), rec.Note,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return timebank.ErrDuplicateRecord
		}
		return fmt.Errorf("failed to create clock record: %w", err)
	}
	return nil
}

// UpdateRecord overwrites the punch columns of an existing record.
func (s *queries) UpdateRecord(ctx context.Context, rec timebank.ClockRecord) error {
	query := `
		UPDATE clock_records SET
			employee_id = ?, date = ?,
			clock_in = ?, lunch_start = ?, lunch_end = ?,
			snack_start = ?, snack_end = ?, clock_out = ?,
			expected_minutes = ?, note = ?
		WHERE id = ?
	`
	res, err := s.q.ExecContext(ctx, query,
		rec.EmployeeID, rec.Date.String(),
		nullTime(rec.ClockIn), nullTime(rec.LunchStart), nullTime(rec.LunchEnd),
		nullTime(rec.SnackStart), nullTime(rec.SnackEnd), nullTime(rec.ClockOut),
		int(rec.ExpectedMinutes), rec.Note,
		rec.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return timebank.ErrDuplicateRecord
		}
		return fmt.Errorf("failed to update clock record: %w", err)
	}
	return expectAffected(res, timebank.ErrRecordNotFound)
}

func (s *queries) GetRecord(ctx context.Context, id timebank.RecordID) (*timebank.ClockRecord, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM clock_records WHERE id = ?", id)
	return oneRecord(row)
}

func (s *queries) FindRecord(ctx context.Context, employeeID timebank.EmployeeID, date timebank.Date) (*timebank.ClockRecord, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM clock_records WHERE employee_id = ? AND date = ?",
		employeeID, date.String())
	return oneRecord(row)
}

// ListRecords returns matching records, newest day first.
func (s *queries) ListRecords(ctx context.Context, f timebank.RecordFilter) ([]timebank.ClockRecord, error) {
	where, args := rangeClause(string(f.EmployeeID), f.From, f.To)
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM clock_records"+where+" ORDER BY date DESC, employee_id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clock records: %w", err)
	}
	defer rows.Close()

	var records []timebank.ClockRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *queries) DeleteRecord(ctx context.Context, id timebank.RecordID) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM clock_records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete clock record: %w", err)
	}
	return expectAffected(res, timebank.ErrRecordNotFound)
}

func oneRecord(row *sql.Row) (*timebank.ClockRecord, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, timebank.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecord(row scanner) (timebank.ClockRecord, error) {
	var (
		rec                                 timebank.ClockRecord
		date                                string
		in, lStart, lEnd, sStart, sEnd, out sql.NullString
		expected                            int
	)
	err := row.Scan(&rec.ID, &rec.EmployeeID, &date,
		&in, &lStart, &lEnd, &sStart, &sEnd, &out,
		&expected, &rec.Note)
	if err != nil {
		return rec, err
	}

	if rec.Date, err = timebank.ParseDate(date); err != nil {
		return rec, fmt.Errorf("clock record %s: %w", rec.ID, err)
	}
	rec.ClockIn = parseNullTime(in)
	rec.LunchStart = parseNullTime(lStart)
	rec.LunchEnd = parseNullTime(lEnd)
	rec.SnackStart = parseNullTime(sStart)
	rec.SnackEnd = parseNullTime(sEnd)
	rec.ClockOut = parseNullTime(out)
	rec.ExpectedMinutes = timebank.Minutes(expected)
	return rec, nil
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

const entryColumns = `id, employee_id, date, minutes, kind, note, created_at`

// AppendEntry adds a ledger line.
func (s *queries) AppendEntry(ctx context.Context, e timebank.Entry) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.EmployeeID, e.Date.String(), int(e.Minutes), string(e.Kind), e.Note,
		formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

func (s *queries) GetEntry(ctx context.Context, id timebank.EntryID) (*timebank.Entry, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, timebank.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntries returns matching entries, newest day first and insertion
// order within a day.
func (s *queries) ListEntries(ctx context.Context, f timebank.EntryFilter) ([]timebank.Entry, error) {
	where, args := rangeClause(string(f.EmployeeID), f.From, f.To)
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		where = and(where, "kind IN ("+strings.Join(marks, ", ")+")")
	}

	rows, err := s.q.QueryContext(ctx,
		"SELECT "+entryColumns+" FROM entries"+where+" ORDER BY date DESC, rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []timebank.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *queries) DeleteEntry(ctx context.Context, id timebank.EntryID) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return expectAffected(res, timebank.ErrEntryNotFound)
}

func (s *queries) DeleteEntries(ctx context.Context, employeeID timebank.EmployeeID, date timebank.Date, kind timebank.EntryKind) (int, error) {
	res, err := s.q.ExecContext(ctx,
		"DELETE FROM entries WHERE employee_id = ? AND date = ? AND kind = ?",
		employeeID, date.String(), string(kind))
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanEntry(row scanner) (timebank.Entry, error) {
	var (
		e                     timebank.Entry
		date, kind, createdAt string
		minutes               int
	)
	if err := row.Scan(&e.ID, &e.EmployeeID, &date, &minutes, &kind, &e.Note, &createdAt); err != nil {
		return e, err
	}

	var err error
	if e.Date, err = timebank.ParseDate(date); err != nil {
		return e, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Minutes = timebank.Minutes(minutes)
	e.Kind = timebank.EntryKind(kind)
	e.CreatedAt = parseTime(createdAt)
	return e, nil
}

// =============================================================================
// SETTINGS (timebank.SettingsStore interface)
// =============================================================================

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// rangeClause builds the WHERE clause shared by the record and entry
// listings. Zero values do not filter.
func rangeClause(employeeID string, from, to timebank.Date) (string, []any) {
	var (
		where string
		args  []any
	)
	if employeeID != "" {
		where = and(where, "employee_id = ?")
		args = append(args, employeeID)
	}
	if !from.IsZero() {
		where = and(where, "date >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		where = and(where, "date <= ?")
		args = append(args, to.String())
	}
	return where, args
}

func and(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
