// Package domain contains the loan servicing financial engine: amortization
// schedules, the installment arena, the payment allocation waterfall, overdue
// detection, payment reclassification, and loan resolutions. Every operation
// takes explicit inputs; "today" is always a parameter, never read from the
// system clock.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan. Transitions are monotonic
// except active<->overdue, which toggles with the installment state.
type LoanStatus string

const (
	LoanStatusCreated         LoanStatus = "created"
	LoanStatusPendingApproval LoanStatus = "pending_approval"
	LoanStatusApproved        LoanStatus = "approved"
	LoanStatusActive          LoanStatus = "active"
	LoanStatusOverdue         LoanStatus = "overdue"
	LoanStatusSettled         LoanStatus = "settled"
	LoanStatusWrittenOff      LoanStatus = "written_off"
	LoanStatusRepossessed     LoanStatus = "repossessed"
	LoanStatusDelivered       LoanStatus = "delivered"
)

// statusRank orders the monotonic part of the lifecycle. active and overdue
// share a rank so the toggle is not a regression.
var statusRank = map[LoanStatus]int{
	LoanStatusCreated:         0,
	LoanStatusPendingApproval: 1,
	LoanStatusApproved:        2,
	LoanStatusActive:          3,
	LoanStatusOverdue:         3,
	LoanStatusSettled:         4,
	LoanStatusWrittenOff:      4,
	LoanStatusRepossessed:     4,
	LoanStatusDelivered:       4,
}

// IsTerminal reports whether no further status change is allowed.
func (s LoanStatus) IsTerminal() bool {
	switch s {
	case LoanStatusSettled, LoanStatusWrittenOff, LoanStatusRepossessed, LoanStatusDelivered:
		return true
	}
	return false
}

// Loan is the aggregate root. It exclusively owns its installments, stored as
// an ordered arena indexed by period so allocation and reclassification
// operate by index with explicit ordering guarantees.
type Loan struct {
	ID           string
	CustomerID   string
	Principal    decimal.Decimal
	AnnualRate   decimal.Decimal
	TermPeriods  int
	StartDate    time.Time
	Status       LoanStatus
	Installments []*Installment
	// Payment remainder beyond everything due, held until it can be applied.
	UnappliedCredit decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewLoan builds a loan with its installments materialized from schedule.
func NewLoan(id, customerID string, principal, annualRate decimal.Decimal, termPeriods int, startDate time.Time, schedule []ScheduleRow) *Loan {
	loan := &Loan{
		ID:              id,
		CustomerID:      customerID,
		Principal:       principal,
		AnnualRate:      annualRate,
		TermPeriods:     termPeriods,
		StartDate:       startDate,
		Status:          LoanStatusCreated,
		UnappliedCredit: decimal.Zero,
	}
	loan.Installments = MaterializeInstallments(id, schedule)
	return loan
}

// TransitionTo applies a status change, enforcing monotonicity. The
// active<->overdue toggle is the only permitted backward move.
func (l *Loan) TransitionTo(next LoanStatus) error {
	if l.Status == next {
		return nil
	}
	if l.Status.IsTerminal() {
		return ErrInvalidStatusTransition
	}
	if (l.Status == LoanStatusActive && next == LoanStatusOverdue) ||
		(l.Status == LoanStatusOverdue && next == LoanStatusActive) {
		l.Status = next
		return nil
	}
	if statusRank[next] <= statusRank[l.Status] {
		return ErrInvalidStatusTransition
	}
	l.Status = next
	return nil
}

// IsPayable reports whether payments may be allocated to this loan.
func (l *Loan) IsPayable() bool {
	switch l.Status {
	case LoanStatusWrittenOff, LoanStatusRepossessed, LoanStatusDelivered:
		return false
	}
	return true
}

// InstallmentAt returns the installment for a 1-based period index.
func (l *Loan) InstallmentAt(period int) *Installment {
	if period < 1 || period > len(l.Installments) {
		return nil
	}
	return l.Installments[period-1]
}

// RefreshInstallments re-derives every installment status against today.
func (l *Loan) RefreshInstallments(today time.Time) {
	for _, inst := range l.Installments {
		inst.Refresh(today)
	}
}

// RecomputeStatus derives the loan status from the installment set. Terminal
// states are never left; settled is reached when every installment is paid;
// otherwise the loan toggles between active and overdue.
func (l *Loan) RecomputeStatus(today time.Time) {
	if l.Status.IsTerminal() {
		return
	}
	if l.Status != LoanStatusActive && l.Status != LoanStatusOverdue {
		// Not yet serviced; nothing to derive.
		return
	}

	l.RefreshInstallments(today)

	allPaid := true
	anyOverdue := false
	for _, inst := range l.Installments {
		if inst.Status != InstallmentStatusPaid {
			allPaid = false
		}
		if inst.Status == InstallmentStatusOverdue {
			anyOverdue = true
		}
	}

	switch {
	case allPaid:
		l.Status = LoanStatusSettled
	case anyOverdue:
		l.Status = LoanStatusOverdue
	default:
		l.Status = LoanStatusActive
	}
}

// TotalOutstanding is the remaining due across all installments, penalties
// included.
func (l *Loan) TotalOutstanding() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range l.Installments {
		total = total.Add(inst.RemainingTotal())
	}
	return total
}

// OutstandingBreakdown splits the remaining due into its capital, interest,
// and assessed penalty parts across all installments.
func (l *Loan) OutstandingBreakdown() (capital, interest, penalty decimal.Decimal) {
	capital, interest, penalty = decimal.Zero, decimal.Zero, decimal.Zero
	for _, inst := range l.Installments {
		capital = capital.Add(inst.RemainingCapital())
		interest = interest.Add(inst.RemainingInterest())
		penalty = penalty.Add(inst.RemainingPenalty())
	}
	return capital, interest, penalty
}

// CloneInstallments deep-copies the arena so a mutation can be validated
// before being committed to the aggregate.
func (l *Loan) CloneInstallments() []*Installment {
	clone := make([]*Installment, len(l.Installments))
	for i, inst := range l.Installments {
		c := *inst
		clone[i] = &c
	}
	return clone
}
