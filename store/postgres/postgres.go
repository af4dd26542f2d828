/*
Package postgres provides a PostgreSQL-backed implementation of the
time-bank storage interfaces, for deployments where several sites share
one database.

It mirrors store/sqlite table for table. Differences:
  - days are DATE and punches TIMESTAMPTZ instead of TEXT
  - entries carry a BIGSERIAL seq so insertion order survives the sort
  - unique violations are detected by SQLSTATE 23505
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nobel/timebank/timebank"
)

const uniqueViolation = "23505"

// Store implements timebank.TxStore and timebank.SettingsStore on a pgx pool.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var (
	_ timebank.TxStore       = (*Store)(nil)
	_ timebank.SettingsStore = (*Store)(nil)
)

// New connects, pings and migrates.
func New(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := &Store{queries: queries{q: pool}, pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		base_daily_minutes INTEGER NOT NULL,
		short_weekday SMALLINT NOT NULL,
		short_weekday_minutes INTEGER NOT NULL,
		is_hourly BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		start_date DATE,
		initial_balance_minutes INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clock_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date DATE NOT NULL,
		clock_in TIMESTAMPTZ,
		lunch_start TIMESTAMPTZ,
		lunch_end TIMESTAMPTZ,
		snack_start TIMESTAMPTZ,
		snack_end TIMESTAMPTZ,
		clock_out TIMESTAMPTZ,
		expected_minutes INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		UNIQUE (employee_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_clock_records_date ON clock_records (date);

	CREATE TABLE IF NOT EXISTS entries (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		date DATE NOT NULL,
		minutes INTEGER NOT NULL,
		kind TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_employee_date ON entries (employee_id, date);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`)
	return err
}

// Reset empties every table. Used by tests.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE employees, clock_records, entries, settings")
	return err
}

// WithTx runs fn inside a READ COMMITTED transaction; the UNIQUE
// constraint on clock_records is what serializes concurrent clock-ins.
func (s *Store) WithTx(ctx context.Context, fn func(store timebank.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	q querier
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, role, base_daily_minutes, short_weekday, short_weekday_minutes,
	is_hourly, is_active, start_date, initial_balance_minutes, created_at`

func (s *queries) SaveEmployee(ctx context.Context, emp timebank.Employee) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			base_daily_minutes = EXCLUDED.base_daily_minutes,
			short_weekday = EXCLUDED.short_weekday,
			short_weekday_minutes = EXCLUDED.short_weekday_minutes,
			is_hourly = EXCLUDED.is_hourly,
			is_active = EXCLUDED.is_active,
			start_date = EXCLUDED.start_date,
			initial_balance_minutes = EXCLUDED.initial_balance_minutes`,
		string(emp.ID), emp.Name, emp.Role,
		int32(emp.BaseDailyMinutes), int16(emp.ShortWeekday), int32(emp.ShortWeekdayMinutes),
		emp.IsHourly, emp.IsActive,
		dateArg(emp.StartDate),
		int32(emp.InitialBalanceMinutes),
		emp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save employee: %w", err)
	}
	return nil
}

func (s *queries) GetEmployee(ctx context.Context, id timebank.EmployeeID) (*timebank.Employee, error) {
	emp, err := scanEmployee(s.q.QueryRow(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, timebank.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

func (s *queries) ListEmployees(ctx context.Context) ([]timebank.Employee, error) {
	rows, err := s.q.Query(ctx, "SELECT "+employeeColumns+" FROM employees ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []timebank.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *queries) DeleteEmployee(ctx context.Context, id timebank.EmployeeID) error {
	_, err := s.q.Exec(ctx, "DELETE FROM employees WHERE id = $1", string(id))
	return err
}

func scanEmployee(row pgx.Row) (timebank.Employee, error) {
	var (
		emp                         timebank.Employee
		id                          string
		base, shortMinutes, initial int32
		weekday                     int16
		startDate                   *time.Time
	)
	err := row.Scan(&id, &emp.Name, &emp.Role, &base, &weekday, &shortMinutes,
		&emp.IsHourly, &emp.IsActive, &startDate, &initial, &emp.CreatedAt)
	if err != nil {
		return emp, err
	}
	emp.ID = timebank.EmployeeID(id)
	emp.BaseDailyMinutes = timebank.Minutes(base)
	emp.ShortWeekday = time.Weekday(weekday)
	emp.ShortWeekdayMinutes = timebank.Minutes(shortMinutes)
	emp.InitialBalanceMinutes = timebank.Minutes(initial)
	if startDate != nil {
		emp.StartDate = timebank.DateOf(*startDate)
	}
	return emp, nil
}

// =============================================================================
// CLOCK RECORDS
// =============================================================================

const recordColumns = `id, employee_id, date, clock_in, lunch_start, lunch_end,
	snack_start, snack_end, clock_out, expected_minutes, note`

func (s *queries) CreateRecord(ctx context.Context, rec timebank.ClockRecord) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO clock_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(rec.ID), string(rec.EmployeeID), dateArg(rec.Date),
		rec.ClockIn, rec.LunchStart, rec.LunchEnd, rec.SnackStart, rec.SnackEnd, rec.ClockOut,
		int32(rec.ExpectedMinutes), rec.Note,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return timebank.ErrDuplicateRecord
		}
		return fmt.Errorf("create clock record: %w", err)
	}
	return nil
}

func (s *queries) UpdateRecord(ctx context.Context, rec timebank.ClockRecord) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE clock_records SET
			employee_id = $2, date = $3,
			clock_in = $4, lunch_start = $5, lunch_end = $6,
			snack_start = $7, snack_end = $8, clock_out = $9,
			expected_minutes = $10, note = $11
		WHERE id = $1`,
		string(rec.ID), string(rec.EmployeeID), dateArg(rec.Date),
		rec.ClockIn, rec.LunchStart, rec.LunchEnd, rec.SnackStart, rec.SnackEnd, rec.ClockOut,
		int32(rec.ExpectedMinutes), rec.Note,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return timebank.ErrDuplicateRecord
		}
		return fmt.Errorf("update clock record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timebank.ErrRecordNotFound
	}
	return nil
}

func (s *queries) GetRecord(ctx context.Context, id timebank.RecordID) (*timebank.ClockRecord, error) {
	return oneRecord(s.q.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM clock_records WHERE id = $1", string(id)))
}

func (s *queries) FindRecord(ctx context.Context, employeeID timebank.EmployeeID, date timebank.Date) (*timebank.ClockRecord, error) {
	return oneRecord(s.q.QueryRow(ctx,
		"SELECT "+recordColumns+" FROM clock_records WHERE employee_id = $1 AND date = $2",
		string(employeeID), dateArg(date)))
}

func (s *queries) ListRecords(ctx context.Context, f timebank.RecordFilter) ([]timebank.ClockRecord, error) {
	var w where
	w.rangeOf(string(f.EmployeeID), f.From, f.To)

	rows, err := s.q.Query(ctx,
		"SELECT "+recordColumns+" FROM clock_records"+w.String()+" ORDER BY date DESC, employee_id", w.args...)
	if err != nil {
		return nil, fmt.Errorf("query clock records: %w", err)
	}
	defer rows.Close()

	var out []timebank.ClockRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *queries) DeleteRecord(ctx context.Context, id timebank.RecordID) error {
	tag, err := s.q.Exec(ctx, "DELETE FROM clock_records WHERE id = $1", string(id))
	if err != nil {
		return fmt.Errorf("delete clock record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timebank.ErrRecordNotFound
	}
	return nil
}

func oneRecord(row pgx.Row) (*timebank.ClockRecord, error) {
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, timebank.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecord(row pgx.Row) (timebank.ClockRecord, error) {
	var (
		rec          timebank.ClockRecord
		id, employee string
		day          time.Time
		expected     int32
	)
	err := row.Scan(&id, &employee, &day,
		&rec.ClockIn, &rec.LunchStart, &rec.LunchEnd, &rec.SnackStart, &rec.SnackEnd, &rec.ClockOut,
		&expected, &rec.Note)
	if err != nil {
		return rec, err
	}
	rec.ID = timebank.RecordID(id)
	rec.EmployeeID = timebank.EmployeeID(employee)
	rec.Date = timebank.DateOf(day)
	rec.ExpectedMinutes = timebank.Minutes(expected)
	return rec, nil
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

const entryColumns = `id, employee_id, date, minutes, kind, note, created_at`

func (s *queries) AppendEntry(ctx context.Context, e timebank.Entry) error {
	_, err := s.q.Exec(ctx,
		"INSERT INTO entries ("+entryColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		string(e.ID), string(e.EmployeeID), dateArg(e.Date), int32(e.Minutes), string(e.Kind), e.Note, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (s *queries) GetEntry(ctx context.Context, id timebank.EntryID) (*timebank.Entry, error) {
	e, err := scanEntry(s.q.QueryRow(ctx, "SELECT "+entryColumns+" FROM entries WHERE id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, timebank.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *queries) ListEntries(ctx context.Context, f timebank.EntryFilter) ([]timebank.Entry, error) {
	var w where
	w.rangeOf(string(f.EmployeeID), f.From, f.To)
	if len(f.Kinds) > 0 {
		kinds := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			kinds[i] = string(k)
		}
		w.add("kind = ANY(%s)", kinds)
	}

	rows, err := s.q.Query(ctx,
		"SELECT "+entryColumns+" FROM entries"+w.String()+" ORDER BY date DESC, seq", w.args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []timebank.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *queries) DeleteEntry(ctx context.Context, id timebank.EntryID) error {
	tag, err := s.q.Exec(ctx, "DELETE FROM entries WHERE id = $1", string(id))
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timebank.ErrEntryNotFound
	}
	return nil
}

func (s *queries) DeleteEntries(ctx context.Context, employeeID timebank.EmployeeID, date timebank.Date, kind timebank.EntryKind) (int, error) {
	tag, err := s.q.Exec(ctx,
		"DELETE FROM entries WHERE employee_id = $1 AND date = $2 AND kind = $3",
		string(employeeID), dateArg(date), string(kind))
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanEntry(row pgx.Row) (timebank.Entry, error) {
	var (
		e                  timebank.Entry
		id, employee, kind string
		day                time.Time
		minutes            int32
	)
	if err := row.Scan(&id, &employee, &day, &minutes, &kind, &e.Note, &e.CreatedAt); err != nil {
		return e, err
	}
	e.ID = timebank.EntryID(id)
	e.EmployeeID = timebank.EmployeeID(employee)
	e.Date = timebank.DateOf(day)
	e.Minutes = timebank.Minutes(minutes)
	e.Kind = timebank.EntryKind(kind)
	return e, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, "SELECT value FROM settings WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// where accumulates numbered placeholders.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(format string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(format, "$"+strconv.Itoa(len(w.args))))
}

func (w *where) rangeOf(employeeID string, from, to timebank.Date) {
	if employeeID != "" {
		w.add("employee_id = %s", employeeID)
	}
	if !from.IsZero() {
		w.add("date >= %s", dateArg(from))
	}
	if !to.IsZero() {
		w.add("date <= %s", dateArg(to))
	}
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// dateArg encodes a day for a DATE column; the zero day is NULL.
func dateArg(d timebank.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
