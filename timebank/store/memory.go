// Package store provides an in-memory timebank.TxStore.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/nobel/timebank/timebank"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	employees map[timebank.EmployeeID]timebank.Employee
	records   map[timebank.RecordID]timebank.ClockRecord
	byDay     map[dayKey]timebank.RecordID
	entries   []timebank.Entry
	settings  map[string]string
}

type dayKey struct {
	EmployeeID timebank.EmployeeID
	Date       timebank.Date
}

func NewMemory() *Memory {
	return &Memory{
		employees: make(map[timebank.EmployeeID]timebank.Employee),
		records:   make(map[timebank.RecordID]timebank.ClockRecord),
		byDay:     make(map[dayKey]timebank.RecordID),
		settings:  make(map[string]string),
	}
}

// NewTxMemory is kept for symmetry with the SQL stores: Memory already
// implements timebank.TxStore.
func NewTxMemory() *Memory { return NewMemory() }

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp timebank.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id timebank.EmployeeID) (*timebank.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getEmployeeLocked(id)
}

func (m *Memory) getEmployeeLocked(id timebank.EmployeeID) (*timebank.Employee, error) {
	emp, ok := m.employees[id]
	if !ok {
		return nil, timebank.ErrEmployeeNotFound
	}
	return &emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]timebank.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEmployeesLocked(), nil
}

func (m *Memory) listEmployeesLocked() []timebank.Employee {
	out := make([]timebank.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) DeleteEmployee(_ context.Context, id timebank.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.employees, id)
	return nil
}

// =============================================================================
// CLOCK RECORDS
// =============================================================================

func (m *Memory) CreateRecord(_ context.Context, rec timebank.ClockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createRecordLocked(rec)
}

func (m *Memory) createRecordLocked(rec timebank.ClockRecord) error {
	k := dayKey{EmployeeID: rec.EmployeeID, Date: rec.Date}
	if _, exists := m.byDay[k]; exists {
		return timebank.ErrDuplicateRecord
	}
	if _, exists := m.records[rec.ID]; exists {
		return timebank.ErrDuplicateRecord
	}
	m.records[rec.ID] = rec
	m.byDay[k] = rec.ID
	return nil
}

func (m *Memory) UpdateRecord(_ context.Context, rec timebank.ClockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRecordLocked(rec)
}

func (m *Memory) updateRecordLocked(rec timebank.ClockRecord) error {
	old, ok := m.records[rec.ID]
	if !ok {
		return timebank.ErrRecordNotFound
	}
	oldKey := dayKey{EmployeeID: old.EmployeeID, Date: old.Date}
	newKey := dayKey{EmployeeID: rec.EmployeeID, Date: rec.Date}
	if oldKey != newKey {
		if _, taken := m.byDay[newKey]; taken {
			return timebank.ErrDuplicateRecord
		}
		delete(m.byDay, oldKey)
		m.byDay[newKey] = rec.ID
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *Memory) GetRecord(_ context.Context, id timebank.RecordID) (*timebank.ClockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, timebank.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *Memory) FindRecord(_ context.Context, employeeID timebank.EmployeeID, date timebank.Date) (*timebank.ClockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findRecordLocked(employeeID, date)
}

func (m *Memory) findRecordLocked(employeeID timebank.EmployeeID, date timebank.Date) (*timebank.ClockRecord, error) {
	id, ok := m.byDay[dayKey{EmployeeID: employeeID, Date: date}]
	if !ok {
		return nil, timebank.ErrRecordNotFound
	}
	rec := m.records[id]
	return &rec, nil
}

func (m *Memory) ListRecords(_ context.Context, f timebank.RecordFilter) ([]timebank.ClockRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listRecordsLocked(f), nil
}

func (m *Memory) listRecordsLocked(f timebank.RecordFilter) []timebank.ClockRecord {
	var out []timebank.ClockRecord
	for _, r := range m.records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out
}

func (m *Memory) DeleteRecord(_ context.Context, id timebank.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteRecordLocked(id)
}

func (m *Memory) deleteRecordLocked(id timebank.RecordID) error {
	rec, ok := m.records[id]
	if !ok {
		return timebank.ErrRecordNotFound
	}
	delete(m.byDay, dayKey{EmployeeID: rec.EmployeeID, Date: rec.Date})
	delete(m.records, id)
	return nil
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

func (m *Memory) AppendEntry(_ context.Context, e timebank.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id timebank.EntryID) (*timebank.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, timebank.ErrEntryNotFound
}

func (m *Memory) ListEntries(_ context.Context, f timebank.EntryFilter) ([]timebank.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listEntriesLocked(f), nil
}

func (m *Memory) listEntriesLocked(f timebank.EntryFilter) []timebank.Entry {
	var out []timebank.Entry
	for _, e := range m.entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func (m *Memory) DeleteEntry(_ context.Context, id timebank.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteEntryLocked(id)
}

func (m *Memory) deleteEntryLocked(id timebank.EntryID) error {
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
			return nil
		}
	}
	return timebank.ErrEntryNotFound
}

func (m *Memory) DeleteEntries(_ context.Context, employeeID timebank.EmployeeID, date timebank.Date, kind timebank.EntryKind) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteEntriesLocked(employeeID, date, kind), nil
}

func (m *Memory) deleteEntriesLocked(employeeID timebank.EmployeeID, date timebank.Date, kind timebank.EntryKind) int {
	kept := m.entries[:0:0]
	removed := 0
	for _, e := range m.entries {
		if e.EmployeeID == employeeID && e.Date.Equal(date) && e.Kind == kind {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *Memory) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// Close is a no-op so Memory can stand in for the SQL stores.
func (m *Memory) Close() error { return nil }

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(timebank.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txView{m: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	employees map[timebank.EmployeeID]timebank.Employee
	records   map[timebank.RecordID]timebank.ClockRecord
	byDay     map[dayKey]timebank.RecordID
	entries   []timebank.Entry
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		employees: make(map[timebank.EmployeeID]timebank.Employee, len(m.employees)),
		records:   make(map[timebank.RecordID]timebank.ClockRecord, len(m.records)),
		byDay:     make(map[dayKey]timebank.RecordID, len(m.byDay)),
		entries:   append([]timebank.Entry(nil), m.entries...),
	}
	for k, v := range m.employees {
		s.employees[k] = v
	}
	for k, v := range m.records {
		s.records[k] = v
	}
	for k, v := range m.byDay {
		s.byDay[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.employees = s.employees
	m.records = s.records
	m.byDay = s.byDay
	m.entries = s.entries
}

// txView is the Store handed to WithTx callbacks. The parent lock is
// already held, so it calls the *Locked helpers directly.
type txView struct {
	m *Memory
}

func (v *txView) SaveEmployee(_ context.Context, emp timebank.Employee) error {
	v.m.employees[emp.ID] = emp
	return nil
}

func (v *txView) GetEmployee(_ context.Context, id timebank.EmployeeID) (*timebank.Employee, error) {
	return v.m.getEmployeeLocked(id)
}

func (v *txView) ListEmployees(_ context.Context) ([]timebank.Employee, error) {
	return v.m.listEmployeesLocked(), nil
}

func (v *txView) DeleteEmployee(_ context.Context, id timebank.EmployeeID) error {
	delete(v.m.employees, id)
	return nil
}

func (v *txView) CreateRecord(_ context.Context, rec timebank.ClockRecord) error {
	return v.m.createRecordLocked(rec)
}

func (v *txView) UpdateRecord(_ context.Context, rec timebank.ClockRecord) error {
	return v.m.updateRecordLocked(rec)
}

func (v *txView) GetRecord(_ context.Context, id timebank.RecordID) (*timebank.ClockRecord, error) {
	rec, ok := v.m.records[id]
	if !ok {
		return nil, timebank.ErrRecordNotFound
	}
	return &rec, nil
}

func (v *txView) FindRecord(_ context.Context, employeeID timebank.EmployeeID, date timebank.Date) (*timebank.ClockRecord, error) {
	return v.m.findRecordLocked(employeeID, date)
}

func (v *txView) ListRecords(_ context.Context, f timebank.RecordFilter) ([]timebank.ClockRecord, error) {
	return v.m.listRecordsLocked(f), nil
}

func (v *txView) DeleteRecord(_ context.Context, id timebank.RecordID) error {
	return v.m.deleteRecordLocked(id)
}

func (v *txView) AppendEntry(_ context.Context, e timebank.Entry) error {
	v.m.entries = append(v.m.entries, e)
	return nil
}

func (v *txView) GetEntry(_ context.Context, id timebank.EntryID) (*timebank.Entry, error) {
	for _, e := range v.m.entries {
		if e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, timebank.ErrEntryNotFound
}

func (v *txView) ListEntries(_ context.Context, f timebank.EntryFilter) ([]timebank.Entry, error) {
	return v.m.listEntriesLocked(f), nil
}

func (v *txView) DeleteEntry(_ context.Context, id timebank.EntryID) error {
	return v.m.deleteEntryLocked(id)
}

func (v *txView) DeleteEntries(_ context.Context, employeeID timebank.EmployeeID, date timebank.Date, kind timebank.EntryKind) (int, error) {
	return v.m.deleteEntriesLocked(employeeID, date, kind), nil
}

var (
	_ timebank.TxStore       = (*Memory)(nil)
	_ timebank.SettingsStore = (*Memory)(nil)
)
