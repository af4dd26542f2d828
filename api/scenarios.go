/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	history relative to today, so a fresh install shows non-trivial
	balances on the punch board and in the reports.

AVAILABLE SCENARIOS:

	full-time:      8h days, 4h Saturdays, two weeks of retroactive work
	hourly-worker:  no quota, every worked minute is a credit
	paid-absence:   vacation days, a bonus and a payout
	short-day-off:  Friday fully off, nothing punched (pure debit)

HOW SCENARIOS WORK:
 1. Create the employee with a start date a few days back
 2. Record past days as WORK_RETRO / justifications / manual deltas
 3. Leave today untouched so the punch terminal can be tried live

Everything goes through timebank.Service, so the same validation and
logging apply as for a manager typing the data in.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "full-time"}

NOTE:

	Scenario employees use fixed ids; loading a scenario twice is rejected
	instead of duplicating its history.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nobel/timebank/timebank"
)

// ErrScenarioLoaded is returned when a scenario's employee already exists.
var ErrScenarioLoaded = errors.New("scenario already loaded")

// ErrUnknownScenario is returned for an id not in Scenarios.
var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Scenarios lists the available demo scenarios.
var Scenarios = []ScenarioDTO{
	{
		ID:          "full-time",
		Name:        "Full-time",
		Description: "8h weekdays, 4h Saturdays, two weeks of mixed overtime and deficit",
	},
	{
		ID:          "hourly-worker",
		Name:        "Hourly Worker",
		Description: "No contractual quota; every worked minute is a credit",
	},
	{
		ID:          "paid-absence",
		Name:        "Paid Absence",
		Description: "Vacation days that cancel the debit, a bonus and a payout",
	},
	{
		ID:          "short-day-off",
		Name:        "Short Day Off",
		Description: "Fridays fully off and no punches: the balance is a pure debit",
	},
}

type scenarioLoader func(ctx context.Context, svc *timebank.Service, today timebank.Date) error

var scenarioLoaders = map[string]scenarioLoader{
	"full-time":     loadFullTimeScenario,
	"hourly-worker": loadHourlyWorkerScenario,
	"paid-absence":  loadPaidAbsenceScenario,
	"short-day-off": loadShortDayOffScenario,
}

var scenarioEmployees = map[string]timebank.EmployeeID{
	"full-time":     "demo-ana",
	"hourly-worker": "demo-bruno",
	"paid-absence":  "demo-carla",
	"short-day-off": "demo-davi",
}

// LoadScenario adds the named scenario's data through svc.
func LoadScenario(ctx context.Context, svc *timebank.Service, id string) error {
	load, ok := scenarioLoaders[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	if _, err := svc.GetEmployee(ctx, scenarioEmployees[id]); err == nil {
		return fmt.Errorf("%w: %s", ErrScenarioLoaded, id)
	} else if !timebank.IsNotFound(err) {
		return err
	}
	return load(ctx, svc, svc.Today())
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios)
}

// LoadScenario loads a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := LoadScenario(r.Context(), h.Service, req.ScenarioID)
	switch {
	case errors.Is(err, ErrUnknownScenario):
		writeError(w, http.StatusBadRequest, "Unknown scenario", err)
		return
	case errors.Is(err, ErrScenarioLoaded):
		writeError(w, http.StatusConflict, "Scenario already loaded", err)
		return
	case err != nil:
		h.writeServiceError(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadFullTimeScenario(ctx context.Context, svc *timebank.Service, today timebank.Date) error {
	start := today.AddDays(-14)
	emp, err := svc.CreateEmployee(ctx, timebank.Employee{
		ID:                  scenarioEmployees["full-time"],
		Name:                "Ana Souza",
		Role:                "Teacher",
		BaseDailyMinutes:    480,
		ShortWeekday:        time.Saturday,
		ShortWeekdayMinutes: 240,
		IsActive:            true,
		StartDate:           start,
	})
	if err != nil {
		return err
	}

	// Overtime and deficit alternate so the balance ends near zero.
	variations := []timebank.Minutes{30, -15, 45, 0, -20, 10}
	i := 0
	for d := start; d.Before(today); d = d.AddDays(1) {
		expected := timebank.ExpectedMinutes(emp, d)
		if expected == 0 {
			continue
		}
		worked := expected + variations[i%len(variations)]
		i++
		if _, err := svc.AddAdjustment(ctx, timebank.AdjustmentInput{
			EmployeeID: emp.ID,
			Date:       d,
			Kind:       timebank.KindWorkRetro,
			Minutes:    worked,
			Note:       "Demo history",
		}); err != nil {
			return err
		}
	}
	return nil
}

func loadHourlyWorkerScenario(ctx context.Context, svc *timebank.Service, today timebank.Date) error {
	start := today.AddDays(-7)
	emp, err := svc.CreateEmployee(ctx, timebank.Employee{
		ID:           scenarioEmployees["hourly-worker"],
		Name:         "Bruno Lima",
		Role:         "Monitor",
		IsHourly:     true,
		ShortWeekday: time.Saturday,
		IsActive:     true,
		StartDate:    start,
	})
	if err != nil {
		return err
	}

	for d := start; d.Before(today); d = d.AddDays(1) {
		if d.Weekday() == time.Sunday || d.Weekday() == time.Saturday {
			continue
		}
		if _, err := svc.AddAdjustment(ctx, timebank.AdjustmentInput{
			EmployeeID: emp.ID,
			Date:       d,
			Kind:       timebank.KindWorkRetro,
			Minutes:    240,
			Note:       "Demo afternoon shift",
		}); err != nil {
			return err
		}
	}
	return nil
}

func loadPaidAbsenceScenario(ctx context.Context, svc *timebank.Service, today timebank.Date) error {
	start := today.AddDays(-10)
	emp, err := svc.CreateEmployee(ctx, timebank.Employee{
		ID:                    scenarioEmployees["paid-absence"],
		Name:                  "Carla Mendes",
		Role:                  "Secretary",
		BaseDailyMinutes:      480,
		ShortWeekday:          time.Saturday,
		ShortWeekdayMinutes:   240,
		IsActive:              true,
		StartDate:             start,
		InitialBalanceMinutes: 600,
	})
	if err != nil {
		return err
	}

	if _, err := svc.AddJustification(ctx, timebank.JustificationInput{
		EmployeeID: emp.ID,
		Date:       start,
		Through:    start.AddDays(4),
		Kind:       timebank.KindVacation,
		Note:       "Demo vacation",
	}); err != nil {
		return err
	}
	for _, adj := range []timebank.AdjustmentInput{
		{Kind: timebank.KindBonus, Minutes: 60, Note: "Event support"},
		{Kind: timebank.KindPayment, Minutes: -120, Note: "Overtime paid out"},
	} {
		adj.EmployeeID = emp.ID
		adj.Date = today.AddDays(-1)
		if _, err := svc.AddAdjustment(ctx, adj); err != nil {
			return err
		}
	}
	return nil
}

func loadShortDayOffScenario(ctx context.Context, svc *timebank.Service, today timebank.Date) error {
	_, err := svc.CreateEmployee(ctx, timebank.Employee{
		ID:                  scenarioEmployees["short-day-off"],
		Name:                "Davi Rocha",
		Role:                "Kitchen",
		BaseDailyMinutes:    480,
		ShortWeekday:        time.Friday,
		ShortWeekdayMinutes: 0,
		IsActive:            true,
		StartDate:           today.AddDays(-7),
	})
	return err
}
