/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  engine's types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

UNITS:
  Every quantity is an integer number of minutes. Balances are also sent
  pre-formatted ("+08h 30m") and as decimal hours for display.
  Dates are "YYYY-MM-DD"; instants are RFC 3339.

VALIDATION:
  Validation is done by the service, not in DTOs. DTOs are pure data carriers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nobel/timebank/timebank"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Role                  string        `json:"role"`
	BaseDailyMinutes      int           `json:"base_daily_minutes"`
	ShortWeekday          int           `json:"short_weekday"`
	ShortWeekdayMinutes   int           `json:"short_weekday_minutes"`
	IsHourly              bool          `json:"is_hourly"`
	IsActive              bool          `json:"is_active"`
	StartDate             timebank.Date `json:"start_date"`
	InitialBalanceMinutes int           `json:"initial_balance_minutes"`
	CreatedAt             string        `json:"created_at,omitempty"`
}

// EmployeeRequest creates or replaces an employee profile.
type EmployeeRequest struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Role                  string        `json:"role"`
	BaseDailyMinutes      int           `json:"base_daily_minutes"`
	ShortWeekday          int           `json:"short_weekday"`
	ShortWeekdayMinutes   int           `json:"short_weekday_minutes"`
	IsHourly              bool          `json:"is_hourly"`
	IsActive              *bool         `json:"is_active"` // defaults to true
	StartDate             timebank.Date `json:"start_date"`
	InitialBalanceMinutes int           `json:"initial_balance_minutes"`
}

func (req EmployeeRequest) toEmployee() timebank.Employee {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return timebank.Employee{
		ID:                    timebank.EmployeeID(req.ID),
		Name:                  req.Name,
		Role:                  req.Role,
		BaseDailyMinutes:      timebank.Minutes(req.BaseDailyMinutes),
		ShortWeekday:          time.Weekday(req.ShortWeekday),
		ShortWeekdayMinutes:   timebank.Minutes(req.ShortWeekdayMinutes),
		IsHourly:              req.IsHourly,
		IsActive:              active,
		StartDate:             req.StartDate,
		InitialBalanceMinutes: timebank.Minutes(req.InitialBalanceMinutes),
	}
}

func toEmployeeDTO(e timebank.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:                    string(e.ID),
		Name:                  e.Name,
		Role:                  e.Role,
		BaseDailyMinutes:      int(e.BaseDailyMinutes),
		ShortWeekday:          int(e.ShortWeekday),
		ShortWeekdayMinutes:   int(e.ShortWeekdayMinutes),
		IsHourly:              e.IsHourly,
		IsActive:              e.IsActive,
		StartDate:             e.StartDate,
		InitialBalanceMinutes: int(e.InitialBalanceMinutes),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// CLOCK
// =============================================================================

// RecordDTO is one day of punches.
type RecordDTO struct {
	ID              string        `json:"id"`
	EmployeeID      string        `json:"employee_id"`
	Date            timebank.Date `json:"date"`
	ClockIn         *time.Time    `json:"clock_in"`
	LunchStart      *time.Time    `json:"lunch_start"`
	LunchEnd        *time.Time    `json:"lunch_end"`
	SnackStart      *time.Time    `json:"snack_start"`
	SnackEnd        *time.Time    `json:"snack_end"`
	ClockOut        *time.Time    `json:"clock_out"`
	ExpectedMinutes int           `json:"expected_minutes"`
	Note            string        `json:"note,omitempty"`
}

func toRecordDTO(r timebank.ClockRecord) RecordDTO {
	return RecordDTO{
		ID:              string(r.ID),
		EmployeeID:      string(r.EmployeeID),
		Date:            r.Date,
		ClockIn:         r.ClockIn,
		LunchStart:      r.LunchStart,
		LunchEnd:        r.LunchEnd,
		SnackStart:      r.SnackStart,
		SnackEnd:        r.SnackEnd,
		ClockOut:        r.ClockOut,
		ExpectedMinutes: int(r.ExpectedMinutes),
		Note:            r.Note,
	}
}

// PunchRequest optionally names the action; empty means the next one.
type PunchRequest struct {
	Action string `json:"action"`
}

// PunchDTO is the result of an accepted punch.
type PunchDTO struct {
	Action string    `json:"action"`
	Stage  string    `json:"stage"`
	Record RecordDTO `json:"record"`
	Entry  *EntryDTO `json:"entry,omitempty"`
}

func toPunchDTO(res timebank.PunchResult) PunchDTO {
	dto := PunchDTO{
		Action: string(res.Action),
		Stage:  res.Stage.String(),
		Record: toRecordDTO(res.Record),
	}
	if res.Entry != nil {
		e := toEntryDTO(*res.Entry)
		dto.Entry = &e
	}
	return dto
}

// ClockStatusDTO is what the punch terminal shows for one employee.
type ClockStatusDTO struct {
	EmployeeID      string     `json:"employee_id"`
	Name            string     `json:"name"`
	Role            string     `json:"role"`
	Stage           string     `json:"stage"`
	NextAction      string     `json:"next_action"`
	NextActionLabel string     `json:"next_action_label"`
	WorkedMinutes   int        `json:"worked_minutes"`
	BalanceMinutes  int        `json:"balance_minutes"`
	Balance         string     `json:"balance"`
	Record          *RecordDTO `json:"record,omitempty"`
	AsOf            time.Time  `json:"as_of"`
}

func toClockStatusDTO(st timebank.ClockStatus) ClockStatusDTO {
	dto := ClockStatusDTO{
		EmployeeID:      string(st.Employee.ID),
		Name:            st.Employee.Name,
		Role:            st.Employee.Role,
		Stage:           st.Stage.String(),
		NextAction:      string(st.NextAction),
		NextActionLabel: st.NextAction.Label(),
		WorkedMinutes:   int(st.Worked),
		BalanceMinutes:  int(st.Balance),
		Balance:         st.Balance.String(),
		AsOf:            st.AsOf,
	}
	if st.Record != nil {
		r := toRecordDTO(*st.Record)
		dto.Record = &r
	}
	return dto
}

// =============================================================================
// LEDGER
// =============================================================================

// EntryDTO is one ledger line.
type EntryDTO struct {
	ID         string        `json:"id"`
	EmployeeID string        `json:"employee_id"`
	Date       timebank.Date `json:"date"`
	Minutes    int           `json:"minutes"`
	Formatted  string        `json:"formatted"`
	Kind       string        `json:"kind"`
	KindLabel  string        `json:"kind_label"`
	Note       string        `json:"note,omitempty"`
	CreatedAt  string        `json:"created_at,omitempty"`
}

func toEntryDTO(e timebank.Entry) EntryDTO {
	dto := EntryDTO{
		ID:         string(e.ID),
		EmployeeID: string(e.EmployeeID),
		Date:       e.Date,
		Minutes:    int(e.Minutes),
		Formatted:  e.Minutes.String(),
		Kind:       string(e.Kind),
		KindLabel:  e.Kind.Label(),
		Note:       e.Note,
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// AdjustmentRequest records retroactive work or a signed manual delta.
// The amount is given either as Minutes or as Amount ("[+|-]HH:MM").
type AdjustmentRequest struct {
	EmployeeID string        `json:"employee_id"`
	Date       timebank.Date `json:"date"`
	Kind       string        `json:"kind"`
	Minutes    *int          `json:"minutes"`
	Amount     string        `json:"amount"`
	Note       string        `json:"note"`
}

// JustificationRequest excuses one day or a date range.
type JustificationRequest struct {
	EmployeeID string        `json:"employee_id"`
	Date       timebank.Date `json:"date"`
	Through    timebank.Date `json:"through"`
	Kind       string        `json:"kind"`
	Note       string        `json:"note"`
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO is the decomposed cumulative balance of one employee.
type BalanceDTO struct {
	EmployeeID  string          `json:"employee_id"`
	Name        string          `json:"name,omitempty"`
	AsOf        time.Time       `json:"as_of"`
	Today       timebank.Date   `json:"today"`
	Initial     int             `json:"initial_minutes"`
	Debits      int             `json:"debit_minutes"`
	Credits     int             `json:"credit_minutes"`
	TodayDelta  int             `json:"today_delta_minutes"`
	TodaySource string          `json:"today_source"`
	Total       int             `json:"total_minutes"`
	Formatted   string          `json:"formatted"`
	Hours       decimal.Decimal `json:"hours"`
	DaysAccrued int             `json:"days_accrued"`
	Truncated   bool            `json:"truncated"`
}

func toBalanceDTO(b timebank.Balance, name string) BalanceDTO {
	total := b.Total()
	return BalanceDTO{
		EmployeeID:  string(b.EmployeeID),
		Name:        name,
		AsOf:        b.AsOf,
		Today:       b.Today,
		Initial:     int(b.Initial),
		Debits:      int(b.Debits),
		Credits:     int(b.Credits),
		TodayDelta:  int(b.TodayDelta),
		TodaySource: string(b.TodaySource),
		Total:       int(total),
		Formatted:   total.String(),
		Hours:       total.Hours(),
		DaysAccrued: b.DaysAccrued,
		Truncated:   b.Truncated,
	}
}

// StatementLineDTO is one day of an employee's history.
type StatementLineDTO struct {
	Date     timebank.Date `json:"date"`
	Expected int           `json:"expected_minutes"`
	Worked   int           `json:"worked_minutes"`
	Ledger   int           `json:"ledger_minutes"`
	Net      int           `json:"net_minutes"`
	Running  int           `json:"running_minutes"`
	Kinds    []string      `json:"kinds"`
	Open     bool          `json:"open,omitempty"`
}

func toStatementDTOs(lines []timebank.StatementLine) []StatementLineDTO {
	out := make([]StatementLineDTO, len(lines))
	for i, l := range lines {
		kinds := make([]string, len(l.Kinds))
		for j, k := range l.Kinds {
			kinds[j] = string(k)
		}
		out[i] = StatementLineDTO{
			Date:     l.Date,
			Expected: int(l.Expected),
			Worked:   int(l.Worked),
			Ledger:   int(l.Ledger),
			Net:      int(l.Net),
			Running:  int(l.Running),
			Kinds:    kinds,
			Open:     l.Open,
		}
	}
	return out
}

// =============================================================================
// MANAGER SESSION
// =============================================================================

type LoginRequest struct {
	PIN string `json:"pin"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ChangePINRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
