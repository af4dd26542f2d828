package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobel/timebank/auth"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TIMEBANK_STORE_DRIVER", "memory")
	t.Setenv("TIMEBANK_LOG_LEVEL", "error")

	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	a.ErrWriter = &out
	err := a.Run(append([]string{"timebank"}, args...))
	return out.String(), err
}

func TestCLI_SeedListsScenarios(t *testing.T) {
	out, err := runCLI(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "full-time")
	assert.Contains(t, out, "hourly-worker")
}

func TestCLI_SeedAndBalances(t *testing.T) {
	out, err := runCLI(t, "seed", "short-day-off")
	require.NoError(t, err)
	assert.Contains(t, out, "scenario short-day-off loaded")

	// Each invocation opens a fresh memory store.
	out, err = runCLI(t, "balances", "--csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Employee,Role,Status,Balance,Hours")
}

func TestCLI_Timesheet(t *testing.T) {
	out, err := runCLI(t, "timesheet", "--from", "2024-01-01", "--to", "2024-01-31", "--csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Employee,Date,In")

	_, err = runCLI(t, "timesheet", "--from", "January")
	assert.Error(t, err)
}

func TestCLI_SetPIN(t *testing.T) {
	out, err := runCLI(t, "set-pin", "--pin", "4321")
	require.NoError(t, err)
	assert.Contains(t, out, "manager PIN updated")

	_, err = runCLI(t, "set-pin", "--pin", "12")
	assert.ErrorIs(t, err, auth.ErrPINFormat)
}
