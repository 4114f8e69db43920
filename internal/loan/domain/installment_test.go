package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstallment(dueDate time.Time) *Installment {
	return &Installment{
		LoanID:          "LOAN-1",
		Period:          1,
		DueDate:         dueDate,
		CapitalPortion:  d("95.58"),
		InterestPortion: d("10"),
		PenaltyApplied:  decimal.Zero,
		CapitalPaid:     decimal.Zero,
		InterestPaid:    decimal.Zero,
		PenaltyPaid:     decimal.Zero,
		Status:          InstallmentStatusPending,
	}
}

func TestDeriveInstallmentStatus(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name         string
		capitalPaid  string
		interestPaid string
		penaltyPaid  string
		penalty      string
		today        time.Time
		want         InstallmentStatus
	}{
		{"untouched before due", "0", "0", "0", "0", due.AddDate(0, 0, -3), InstallmentStatusPending},
		{"untouched on due date", "0", "0", "0", "0", due, InstallmentStatusPending},
		{"untouched past due", "0", "0", "0", "0", due.AddDate(0, 0, 1), InstallmentStatusOverdue},
		{"partially paid before due", "50", "10", "0", "0", due.AddDate(0, 0, -1), InstallmentStatusPartial},
		{"partially paid past due", "50", "10", "0", "0", due.AddDate(0, 0, 2), InstallmentStatusOverdue},
		{"fully paid", "95.58", "10", "0", "0", due.AddDate(0, 0, 5), InstallmentStatusPaid},
		{"scheduled paid but penalty open", "95.58", "10", "0", "5", due.AddDate(0, 0, 5), InstallmentStatusPartial},
		{"everything incl penalty paid", "95.58", "10", "5", "5", due.AddDate(0, 0, 5), InstallmentStatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveInstallmentStatus(
				d("95.58"), d("10"), d(tc.penalty),
				d(tc.capitalPaid), d(tc.interestPaid), d(tc.penaltyPaid),
				due, tc.today,
			)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestApplyPenaltyOncePerOverdueTransition(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	today := due.AddDate(0, 0, 3)
	policy := PenaltyPolicy{Mode: PenaltyModePercentage, Rate: d("0.05")}

	inst := testInstallment(due)

	amount, applied := inst.ApplyPenalty(policy, today)
	require.True(t, applied)
	// 5% of 105.58
	assert.True(t, amount.Equal(d("5.28")), "penalty %s", amount)
	assert.True(t, inst.PenaltyApplied.Equal(d("5.28")))
	assert.Equal(t, InstallmentStatusOverdue, inst.Status)

	// Reapplying never double-charges.
	_, applied = inst.ApplyPenalty(policy, today.AddDate(0, 0, 7))
	assert.False(t, applied)
	assert.True(t, inst.PenaltyApplied.Equal(d("5.28")))
}

func TestApplyPenaltySkipsNonOverdue(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	policy := PenaltyPolicy{Mode: PenaltyModeFlat, FlatFee: d("15")}

	inst := testInstallment(due)
	_, applied := inst.ApplyPenalty(policy, due)
	assert.False(t, applied)
	assert.True(t, inst.PenaltyApplied.IsZero())
}

func TestApplyPenaltyHonorsGraceDays(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	policy := PenaltyPolicy{Mode: PenaltyModeFlat, FlatFee: d("15"), GraceDays: 3}

	inst := testInstallment(due)
	_, applied := inst.ApplyPenalty(policy, due.AddDate(0, 0, 2))
	assert.False(t, applied)

	amount, applied := inst.ApplyPenalty(policy, due.AddDate(0, 0, 3))
	require.True(t, applied)
	assert.True(t, amount.Equal(d("15")))
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inst := testInstallment(due)

	assert.Equal(t, 0, inst.DaysOverdue(due))
	assert.Equal(t, 0, inst.DaysOverdue(due.AddDate(0, 0, -5)))
	assert.Equal(t, 1, inst.DaysOverdue(due.AddDate(0, 0, 1)))
	assert.Equal(t, 31, inst.DaysOverdue(due.AddDate(0, 0, 31)))
}
