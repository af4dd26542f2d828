/*
handlers.go - HTTP API handlers for the time bank

PURPOSE:
  Exposes the time-bank service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to timebank.Service.

ENDPOINTS:
  Punch terminal (public):
    GET    /api/clock/employees             Active employees with next action
    GET    /api/clock/{employeeID}          Today's record and live balance
    POST   /api/clock/{employeeID}/punch    Apply next (or named) action
    POST   /api/manager/login               Exchange PIN for a session token

  Management (Bearer token):
    GET/POST          /api/employees
    GET/PUT/DELETE    /api/employees/{id}
    GET               /api/employees/{id}/balance
    GET               /api/employees/{id}/statement?from&to
    GET               /api/balances
    GET               /api/records?from&to&employee_id
    DELETE            /api/records/{id}          Delete a full day
    GET               /api/entries?employee_id&from&to&kind
    POST              /api/adjustments
    POST              /api/justifications
    DELETE            /api/entries/{id}
    GET               /api/reports/timesheet?from&to&employee_id&format
    PUT               /api/manager/pin

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid punch, malformed input
  - 401: Missing/invalid session or wrong PIN
  - 404: Employee, record or entry not found
  - 409: Conflict (duplicate day, shift already finished)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nobel/timebank/auth"
	"github.com/nobel/timebank/report"
	"github.com/nobel/timebank/timebank"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *timebank.Service
	Gate    *auth.Gate
	Metrics *Metrics
	Logger  *zap.Logger
}

// NewHandler creates a handler. A nil logger discards output and nil
// metrics get a private registry.
func NewHandler(svc *timebank.Service, gate *auth.Gate, metrics *Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Handler{Service: svc, Gate: gate, Metrics: metrics, Logger: logger}
}

// =============================================================================
// PUNCH TERMINAL
// =============================================================================

// ClockBoard lists active employees with their punch state.
// GET /api/clock/employees
func (h *Handler) ClockBoard(w http.ResponseWriter, r *http.Request) {
	board, err := h.Service.Board(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to load clock board", err)
		return
	}
	dtos := make([]ClockStatusDTO, len(board))
	for i, st := range board {
		dtos[i] = toClockStatusDTO(st)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ClockStatus returns one employee's punch state for today.
// GET /api/clock/{employeeID}
func (h *Handler) ClockStatus(w http.ResponseWriter, r *http.Request) {
	id := timebank.EmployeeID(chi.URLParam(r, "employeeID"))
	st, err := h.Service.Status(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to load clock status", err)
		return
	}
	writeJSON(w, http.StatusOK, toClockStatusDTO(st))
}

// Punch applies the employee's next action, or the action named in the body.
// POST /api/clock/{employeeID}/punch
func (h *Handler) Punch(w http.ResponseWriter, r *http.Request) {
	id := timebank.EmployeeID(chi.URLParam(r, "employeeID"))

	var req PunchRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Service.PunchAction(r.Context(), id, timebank.Action(req.Action))
	if err != nil {
		h.writeServiceError(w, "Punch rejected", err)
		return
	}
	h.Metrics.observePunch(res.Action)
	writeJSON(w, http.StatusOK, toPunchDTO(res))
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.ListEmployees(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Service.GetEmployee(r.Context(), timebank.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates a new employee profile.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	emp, err := h.Service.CreateEmployee(r.Context(), req.toEmployee())
	if err != nil {
		h.writeServiceError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// UpdateEmployee replaces an employee profile.
func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	emp, err := h.Service.UpdateEmployee(r.Context(), req.toEmployee())
	if err != nil {
		h.writeServiceError(w, "Failed to update employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// DeleteEmployee removes an employee profile.
func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEmployee(r.Context(), timebank.EmployeeID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, "Failed to delete employee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BALANCES
// =============================================================================

// GetBalance returns one employee's decomposed balance.
// GET /api/employees/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := timebank.EmployeeID(chi.URLParam(r, "id"))
	emp, err := h.Service.GetEmployee(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to get balance", err)
		return
	}
	b, err := h.Service.Balance(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(b, emp.Name))
}

// GetStatement returns the day-by-day history of an employee.
// GET /api/employees/{id}/statement?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	lines, err := h.Service.Statement(r.Context(), timebank.EmployeeID(chi.URLParam(r, "id")), from, to)
	if err != nil {
		h.writeServiceError(w, "Failed to build statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTOs(lines))
}

// ListBalances returns every employee's balance from one snapshot.
// GET /api/balances
func (h *Handler) ListBalances(w http.ResponseWriter, r *http.Request) {
	balances, snap, err := h.Service.Balances(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to compute balances", err)
		return
	}
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		emp, _ := snap.Employee(b.EmployeeID)
		dtos[i] = toBalanceDTO(b, emp.Name)
	}
	h.Metrics.PublishBalances(balances)
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RECORDS & ENTRIES
// =============================================================================

// ListRecords returns clock records, newest day first.
// GET /api/records?from&to&employee_id
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	records, err := h.Service.Records(r.Context(), timebank.RecordFilter{
		EmployeeID: timebank.EmployeeID(r.URL.Query().Get("employee_id")),
		From:       from,
		To:         to,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to list records", err)
		return
	}
	dtos := make([]RecordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteRecord removes a full day: the clock record and its WORK entries.
// DELETE /api/records/{id}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDay(r.Context(), timebank.RecordID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, "Failed to delete day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEntries returns ledger entries, newest day first.
// GET /api/entries?employee_id&from&to&kind
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	q := r.URL.Query()
	f := timebank.EntryFilter{
		EmployeeID: timebank.EmployeeID(q.Get("employee_id")),
		From:       from,
		To:         to,
	}
	for _, k := range q["kind"] {
		f.Kinds = append(f.Kinds, timebank.EntryKind(strings.ToUpper(k)))
	}
	entries, err := h.Service.Entries(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, "Failed to list entries", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAdjustment records retroactive work or a signed manual delta.
// POST /api/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var minutes timebank.Minutes
	switch {
	case req.Minutes != nil:
		minutes = timebank.Minutes(*req.Minutes)
	case req.Amount != "":
		m, err := timebank.ParseMinutes(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		minutes = m
	default:
		writeError(w, http.StatusBadRequest, "Either minutes or amount is required", nil)
		return
	}

	entry, err := h.Service.AddAdjustment(r.Context(), timebank.AdjustmentInput{
		EmployeeID: timebank.EmployeeID(req.EmployeeID),
		Date:       req.Date,
		Kind:       timebank.EntryKind(strings.ToUpper(req.Kind)),
		Minutes:    minutes,
		Note:       req.Note,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to record adjustment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// CreateJustification records paid absences for a day or range.
// POST /api/justifications
func (h *Handler) CreateJustification(w http.ResponseWriter, r *http.Request) {
	var req JustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	entries, err := h.Service.AddJustification(r.Context(), timebank.JustificationInput{
		EmployeeID: timebank.EmployeeID(req.EmployeeID),
		Date:       req.Date,
		Through:    req.Through,
		Kind:       timebank.EntryKind(strings.ToUpper(req.Kind)),
		Note:       req.Note,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to record justification", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// DeleteEntry removes one ledger entry.
// DELETE /api/entries/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEntry(r.Context(), timebank.EntryID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, "Failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORTS
// =============================================================================

// Timesheet returns the accountant timesheet as JSON, CSV or a text table.
// GET /api/reports/timesheet?from&to&employee_id&format=csv|text
func (h *Handler) Timesheet(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to load timesheet", err)
		return
	}
	rows := report.Timesheet(snap, report.TimesheetFilter{
		From:       from,
		To:         to,
		EmployeeID: timebank.EmployeeID(r.URL.Query().Get("employee_id")),
	}, h.Service.Location)

	switch format := r.URL.Query().Get("format"); format {
	case "csv", "text":
		if format == "csv" {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=timesheet_%s.csv", h.Service.Today()))
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		if err := report.WriteTimesheet(w, rows, report.ParseFormat(format)); err != nil {
			h.Logger.Warn("write timesheet", zap.Error(err))
		}
	default:
		writeJSON(w, http.StatusOK, rows)
	}
}

// =============================================================================
// MANAGER SESSION
// =============================================================================

// Login exchanges the manager PIN for a session token.
// POST /api/manager/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	token, expires, err := h.Gate.Login(r.Context(), req.PIN)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPIN) {
			h.Logger.Warn("manager login failed")
			writeError(w, http.StatusUnauthorized, "Invalid PIN", nil)
			return
		}
		h.writeServiceError(w, "Login failed", err)
		return
	}
	h.Logger.Info("manager logged in")
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expires})
}

// ChangePIN replaces the manager PIN.
// PUT /api/manager/pin
func (h *Handler) ChangePIN(w http.ResponseWriter, r *http.Request) {
	var req ChangePINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	err := h.Gate.ChangePIN(r.Context(), req.CurrentPIN, req.NewPIN)
	switch {
	case errors.Is(err, auth.ErrInvalidPIN):
		writeError(w, http.StatusUnauthorized, "Current PIN is wrong", nil)
	case errors.Is(err, auth.ErrPINFormat):
		writeError(w, http.StatusBadRequest, "Invalid new PIN", err)
	case err != nil:
		h.writeServiceError(w, "Failed to change PIN", err)
	default:
		h.Logger.Info("manager PIN changed")
		w.WriteHeader(http.StatusNoContent)
	}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps service errors to a status. Internal errors are
// logged and their details withheld.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	switch {
	case timebank.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case timebank.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case timebank.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func dateRange(r *http.Request) (from, to timebank.Date, err error) {
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		if from, err = timebank.ParseDate(s); err != nil {
			return from, to, fmt.Errorf("from: %w", err)
		}
	}
	if s := q.Get("to"); s != "" {
		if to, err = timebank.ParseDate(s); err != nil {
			return from, to, fmt.Errorf("to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, errors.New("to is before from")
	}
	return from, to, nil
}
