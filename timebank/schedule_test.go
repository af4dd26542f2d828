package timebank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nobel/timebank/timebank"
)

func TestExpectedMinutes_Rules(t *testing.T) {
	emp := worker()

	tests := []struct {
		name string
		date string
		want timebank.Minutes
	}{
		{"monday is a standard day", "2024-01-01", 480},
		{"friday is a standard day", "2024-01-05", 480},
		{"saturday is the short day", "2024-01-06", 240},
		{"sunday is never contractual", "2024-01-07", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timebank.ExpectedMinutes(emp, date(tt.date)))
		})
	}
}

func TestExpectedMinutes_HourlyIsAlwaysZero(t *testing.T) {
	emp := hourly()
	for d := date("2024-01-01"); d.Before(date("2024-01-15")); d = d.AddDays(1) {
		assert.Equal(t, timebank.Minutes(0), timebank.ExpectedMinutes(emp, d), d.String())
	}
}

func TestExpectedMinutes_ShortDayFullyOff(t *testing.T) {
	// GIVEN: Wednesday is the short day with zero minutes
	emp := worker()
	emp.ShortWeekday = time.Wednesday
	emp.ShortWeekdayMinutes = 0

	// THEN: Wednesday is off and Saturday becomes a standard day
	assert.Equal(t, timebank.Minutes(0), timebank.ExpectedMinutes(emp, date("2024-01-03")))
	assert.Equal(t, timebank.Minutes(480), timebank.ExpectedMinutes(emp, date("2024-01-06")))
}

func TestExpectedMinutes_SundayIgnoresMisconfiguredShortDay(t *testing.T) {
	emp := worker()
	emp.ShortWeekday = time.Sunday
	emp.ShortWeekdayMinutes = 300

	assert.Equal(t, timebank.Minutes(0), timebank.ExpectedMinutes(emp, date("2024-01-07")))
	assert.Error(t, emp.Validate())
}

func TestExpectedBetween_OneWeek(t *testing.T) {
	assert.Equal(t, timebank.Minutes(2640),
		timebank.ExpectedBetween(worker(), date("2024-01-01"), date("2024-01-07")))
}

func TestEmployee_Validate(t *testing.T) {
	assert.NoError(t, worker().Validate())

	bad := worker()
	bad.Name = ""
	bad.BaseDailyMinutes = -1
	err := bad.Validate()
	assert.ErrorIs(t, err, timebank.ErrInvalidEmployee)

	var verr *timebank.ValidationError
	if assert.ErrorAs(t, err, &verr) {
		assert.Len(t, verr.Problems, 2)
	}
}
