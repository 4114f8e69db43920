package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scheduleStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGenerateScheduleWeeklyExample(t *testing.T) {
	// 1000 at 52% annual over 10 weeks: weekly rate is exactly 1%.
	rows, err := GenerateSchedule(d("1000"), d("0.52"), 10, scheduleStart, 52)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	first := rows[0]
	assert.Equal(t, 1, first.Period)
	assert.Equal(t, scheduleStart.AddDate(0, 0, 7), first.DueDate)
	assert.True(t, first.InterestPortion.Equal(d("10")), "interest %s", first.InterestPortion)
	assert.True(t, first.PrincipalPortion.Equal(d("95.58")), "principal %s", first.PrincipalPortion)
	assert.True(t, first.Payment.Equal(d("105.58")), "payment %s", first.Payment)
	assert.True(t, first.Balance.Equal(d("904.42")), "balance %s", first.Balance)

	// Every intermediate row carries the fixed payment.
	for _, row := range rows[:9] {
		assert.True(t, row.Payment.Equal(d("105.58")), "period %d payment %s", row.Period, row.Payment)
	}

	// The last row absorbs the rounding drift and clears the balance exactly.
	last := rows[9]
	assert.True(t, last.Balance.IsZero(), "final balance %s", last.Balance)
	assert.True(t, last.PrincipalPortion.Equal(d("104.55")), "final principal %s", last.PrincipalPortion)
	assert.True(t, last.Payment.Equal(d("105.60")), "final payment %s", last.Payment)
}

func TestGenerateSchedulePrincipalSumsExactly(t *testing.T) {
	cases := []struct {
		name      string
		principal string
		rate      string
		term      int
	}{
		{"weekly example", "1000", "0.52", 10},
		{"awkward principal", "3337.77", "0.36", 24},
		{"long term", "150000", "0.18", 52},
		{"tiny loan", "10", "0.99", 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := GenerateSchedule(d(tc.principal), d(tc.rate), tc.term, scheduleStart, 52)
			require.NoError(t, err)

			sum := decimal.Zero
			for _, row := range rows {
				sum = sum.Add(row.PrincipalPortion)
			}
			assert.True(t, sum.Equal(d(tc.principal)), "principal portions sum to %s, want %s", sum, tc.principal)
			assert.True(t, rows[len(rows)-1].Balance.IsZero())
		})
	}
}

func TestGenerateScheduleZeroRate(t *testing.T) {
	rows, err := GenerateSchedule(d("1000"), decimal.Zero, 10, scheduleStart, 52)
	require.NoError(t, err)

	for _, row := range rows {
		assert.True(t, row.Payment.Equal(d("100")), "period %d payment %s", row.Period, row.Payment)
		assert.True(t, row.InterestPortion.IsZero())
	}
	assert.True(t, rows[9].Balance.IsZero())
}

func TestGenerateScheduleMonthlyDueDates(t *testing.T) {
	rows, err := GenerateSchedule(d("1200"), d("0.12"), 3, scheduleStart, 12)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, scheduleStart.AddDate(0, 1, 0), rows[0].DueDate)
	assert.Equal(t, scheduleStart.AddDate(0, 3, 0), rows[2].DueDate)
}

func TestGenerateScheduleRejectsBadInput(t *testing.T) {
	cases := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		term      int
		perYear   int
	}{
		{"zero principal", decimal.Zero, d("0.52"), 10, 52},
		{"negative principal", d("-5"), d("0.52"), 10, 52},
		{"negative rate", d("1000"), d("-0.1"), 10, 52},
		{"zero term", d("1000"), d("0.52"), 0, 52},
		{"zero periods per year", d("1000"), d("0.52"), 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateSchedule(tc.principal, tc.rate, tc.term, scheduleStart, tc.perYear)
			assert.ErrorIs(t, err, ErrInvalidScheduleInput)
		})
	}
}
