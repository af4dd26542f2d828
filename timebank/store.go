/*
store.go - Persistence interfaces for the time bank

PURPOSE:
  Defines the boundary between the engine and the datastore. The engine
  never calls these; Service loads a Snapshot through them and writes the
  results of punches and manager actions back.

KEY INTERFACES:
  Store:         Employees, clock records, ledger entries
  TxStore:       Store + atomic multi-write (punch = record + entry)
  SettingsStore: Small key/value settings (manager passcode hash)

UNIQUENESS CONTRACT:
  CreateRecord MUST reject a second record for the same (employee, date)
  with ErrDuplicateRecord. This is what keeps two concurrent clock-ins
  (and therefore two WORK entries) from landing on the same day; the
  engine does not try to solve it.

LEDGER CONTRACT:
  Entries are never updated. Corrections delete and re-insert.

IMPLEMENTATIONS:
  - timebank/store/memory.go: In-memory for tests and dev
  - store/sqlite:             SQLite (default)
  - store/postgres:           PostgreSQL via pgx
*/
package timebank

import "context"

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error) // ErrEmployeeNotFound
	ListEmployees(ctx context.Context) ([]Employee, error)             // ordered by name
	DeleteEmployee(ctx context.Context, id EmployeeID) error

	CreateRecord(ctx context.Context, rec ClockRecord) error // ErrDuplicateRecord
	UpdateRecord(ctx context.Context, rec ClockRecord) error // ErrRecordNotFound
	GetRecord(ctx context.Context, id RecordID) (*ClockRecord, error)
	FindRecord(ctx context.Context, employeeID EmployeeID, date Date) (*ClockRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]ClockRecord, error) // newest day first
	DeleteRecord(ctx context.Context, id RecordID) error

	AppendEntry(ctx context.Context, e Entry) error
	GetEntry(ctx context.Context, id EntryID) (*Entry, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]Entry, error) // newest day first
	DeleteEntry(ctx context.Context, id EntryID) error
	// DeleteEntries removes every entry of kind on (employee, date) and
	// returns how many were removed.
	DeleteEntries(ctx context.Context, employeeID EmployeeID, date Date, kind EntryKind) (int, error)
}

// TxStore wraps Store with transaction support.
// If fn returns an error every write made through the inner Store is
// rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// SettingsStore keeps application settings.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error
}

// =============================================================================
// FILTERS
// =============================================================================

// RecordFilter selects clock records. Zero fields do not filter.
type RecordFilter struct {
	EmployeeID EmployeeID
	From       Date
	To         Date
}

func (f RecordFilter) Match(r ClockRecord) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	return inRange(r.Date, f.From, f.To)
}

// EntryFilter selects ledger entries. Zero fields do not filter.
type EntryFilter struct {
	EmployeeID EmployeeID
	From       Date
	To         Date
	Kinds      []EntryKind
}

func (f EntryFilter) Match(e Entry) bool {
	if f.EmployeeID != "" && e.EmployeeID != f.EmployeeID {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if k == e.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return inRange(e.Date, f.From, f.To)
}

func inRange(d, from, to Date) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}
