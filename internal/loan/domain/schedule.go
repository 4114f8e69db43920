package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// ScheduleRow is one period of a fixed-payment amortization schedule.
type ScheduleRow struct {
	Period           int
	DueDate          time.Time
	Payment          decimal.Decimal
	InterestPortion  decimal.Decimal
	PrincipalPortion decimal.Decimal
	// Ending balance after this period's principal portion.
	Balance decimal.Decimal
}

// GenerateSchedule computes a fixed-payment amortization schedule using the
// standard annuity formula:
//
//	payment = principal * r * (1+r)^n / ((1+r)^n - 1)
//
// with r = annualRate / periodsPerYear and the degenerate r == 0 case paying
// principal / n per period. Every row is rounded to currency precision; the
// final row's principal portion absorbs the rounding drift so the ending
// balance is exactly zero and the principal portions sum to the principal.
func GenerateSchedule(principal, annualRate decimal.Decimal, termPeriods int, startDate time.Time, periodsPerYear int) ([]ScheduleRow, error) {
	if !principal.IsPositive() || annualRate.IsNegative() || termPeriods <= 0 || periodsPerYear <= 0 {
		return nil, ErrInvalidScheduleInput
	}

	n := decimal.NewFromInt(int64(termPeriods))
	rate := annualRate.Div(decimal.NewFromInt(int64(periodsPerYear)))

	var payment decimal.Decimal
	if rate.IsZero() {
		payment = principal.DivRound(n, 2)
	} else {
		pow := one.Add(rate).Pow(n)
		payment = principal.Mul(rate).Mul(pow).DivRound(pow.Sub(one), 2)
	}

	rows := make([]ScheduleRow, 0, termPeriods)
	balance := principal
	for period := 1; period <= termPeriods; period++ {
		interest := balance.Mul(rate).Round(2)
		principalPart := payment.Sub(interest)
		rowPayment := payment

		if period == termPeriods {
			// Absorb rounding drift: the last principal portion clears the
			// remaining balance exactly.
			principalPart = balance
			rowPayment = principalPart.Add(interest)
		}

		balance = balance.Sub(principalPart)
		rows = append(rows, ScheduleRow{
			Period:           period,
			DueDate:          dueDateFor(startDate, period, periodsPerYear),
			Payment:          rowPayment,
			InterestPortion:  interest,
			PrincipalPortion: principalPart,
			Balance:          balance,
		})
	}

	return rows, nil
}

// dueDateFor places period due dates at calendar-month steps for monthly
// schedules and fixed-day steps otherwise (7 days for weekly).
func dueDateFor(startDate time.Time, period, periodsPerYear int) time.Time {
	if periodsPerYear == 12 {
		return startDate.AddDate(0, period, 0)
	}
	step := 365 / periodsPerYear
	return startDate.AddDate(0, 0, period*step)
}
