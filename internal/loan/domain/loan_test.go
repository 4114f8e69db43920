package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanStatusTransitions(t *testing.T) {
	loan := newTestLoan(t)
	loan.Status = LoanStatusCreated

	require.NoError(t, loan.TransitionTo(LoanStatusPendingApproval))
	require.NoError(t, loan.TransitionTo(LoanStatusApproved))
	require.NoError(t, loan.TransitionTo(LoanStatusActive))

	// active<->overdue is the only backward move allowed.
	require.NoError(t, loan.TransitionTo(LoanStatusOverdue))
	require.NoError(t, loan.TransitionTo(LoanStatusActive))

	// Skipping forward is fine; going back is not.
	assert.ErrorIs(t, loan.TransitionTo(LoanStatusApproved), ErrInvalidStatusTransition)
	assert.ErrorIs(t, loan.TransitionTo(LoanStatusCreated), ErrInvalidStatusTransition)

	require.NoError(t, loan.TransitionTo(LoanStatusSettled))
	assert.True(t, loan.Status.IsTerminal())

	// Terminal states accept nothing further.
	assert.ErrorIs(t, loan.TransitionTo(LoanStatusActive), ErrInvalidStatusTransition)
	assert.ErrorIs(t, loan.TransitionTo(LoanStatusWrittenOff), ErrInvalidStatusTransition)

	// Same-state transitions are no-ops, terminal included.
	assert.NoError(t, loan.TransitionTo(LoanStatusSettled))
}

func TestRecomputeStatusTogglesWithInstallments(t *testing.T) {
	loan := newTestLoan(t)

	loan.RecomputeStatus(scheduleStart.AddDate(0, 0, 3))
	assert.Equal(t, LoanStatusActive, loan.Status)

	loan.RecomputeStatus(scheduleStart.AddDate(0, 0, 8))
	assert.Equal(t, LoanStatusOverdue, loan.Status)

	// Paying the overdue installment toggles back.
	today := scheduleStart.AddDate(0, 0, 8)
	_, err := AllocatePayment(loan, payment("PAY-1", "105.58", today), today)
	require.NoError(t, err)
	assert.Equal(t, LoanStatusActive, loan.Status)
}

func TestRecomputeStatusLeavesUnservicedLoansAlone(t *testing.T) {
	loan := newTestLoan(t)
	loan.Status = LoanStatusApproved
	loan.RecomputeStatus(scheduleStart.AddDate(0, 0, 30))
	assert.Equal(t, LoanStatusApproved, loan.Status)
}

func TestTotalOutstanding(t *testing.T) {
	loan := newTestLoan(t)
	// 9 payments of 105.58 plus the final 105.60.
	assert.True(t, loan.TotalOutstanding().Equal(d("1055.82")), "outstanding %s", loan.TotalOutstanding())

	today := scheduleStart.AddDate(0, 0, 7)
	_, err := AllocatePayment(loan, payment("PAY-1", "105.58", today), today)
	require.NoError(t, err)
	assert.True(t, loan.TotalOutstanding().Equal(d("950.24")))
}

func TestResolveLoanSettlement(t *testing.T) {
	loan := newTestLoan(t)
	today := scheduleStart.AddDate(0, 0, 30)

	_, err := ResolveLoan(loan, ResolutionSettlement, d("100"), "ops", today)
	assert.ErrorIs(t, err, ErrInvalidPaymentAmount, "settlement must cover the outstanding balance")
	assert.Equal(t, LoanStatusActive, loan.Status)

	record, err := ResolveLoan(loan, ResolutionSettlement, d("1055.82"), "ops", today)
	require.NoError(t, err)
	assert.Equal(t, LoanStatusSettled, loan.Status)
	assert.True(t, record.WriteOffAmount.IsZero())
	require.NotNil(t, record.CompletedAt)
}

func TestResolveLoanWriteOff(t *testing.T) {
	loan := newTestLoan(t)
	today := scheduleStart.AddDate(0, 0, 60)

	record, err := ResolveLoan(loan, ResolutionWriteOff, d("55.82"), "ops", today)
	require.NoError(t, err)
	assert.Equal(t, LoanStatusWrittenOff, loan.Status)
	assert.True(t, record.WriteOffAmount.Equal(d("1000")), "write-off %s", record.WriteOffAmount)
	assert.True(t, record.CapitalOutstanding.Equal(d("1000")))
	assert.True(t, record.InterestOutstanding.Equal(d("55.82")))
	assert.True(t, record.PenaltyOutstanding.IsZero())
	assert.False(t, loan.IsPayable())
}

func TestResolveLoanRepossessionFloorsWriteOffAtZero(t *testing.T) {
	loan := newTestLoan(t)
	today := scheduleStart.AddDate(0, 0, 60)

	record, err := ResolveLoan(loan, ResolutionRepossession, d("2000"), "ops", today)
	require.NoError(t, err)
	assert.Equal(t, LoanStatusRepossessed, loan.Status)
	assert.True(t, record.WriteOffAmount.IsZero())
}

func TestResolveLoanRejectsTerminal(t *testing.T) {
	loan := newTestLoan(t)
	loan.Status = LoanStatusSettled

	_, err := ResolveLoan(loan, ResolutionWriteOff, d("0"), "ops", scheduleStart)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}
