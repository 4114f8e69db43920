package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocatePayment distributes payment.Amount across the loan's installments
// and mutates their paid components. The waterfall is fixed and deterministic:
// installments oldest-due-first (the requested target period first when one
// was given), components penalty -> interest -> capital within each
// installment. Whatever exceeds everything currently due becomes an advance
// row, earmarked for the earliest unpaid future installment when one exists,
// otherwise held as loan-level unapplied credit. The full amount is always
// accounted for; money is never dropped.
func AllocatePayment(loan *Loan, payment *Payment, today time.Time) ([]PaymentAllocation, error) {
	if !payment.Amount.IsPositive() {
		return nil, ErrInvalidPaymentAmount
	}
	if !loan.IsPayable() {
		return nil, ErrLoanNotPayable
	}

	remaining := payment.Amount
	allocations := make([]PaymentAllocation, 0, 4)

	record := func(period int, component Component, amount decimal.Decimal) {
		allocations = append(allocations, PaymentAllocation{
			PaymentID: payment.ID,
			LoanID:    loan.ID,
			Period:    period,
			Component: component,
			Amount:    amount,
		})
	}

	for _, inst := range allocationOrder(loan, payment.TargetPeriod, today) {
		if !remaining.IsPositive() {
			break
		}
		remaining = allocateToInstallment(inst, remaining, today, record)
	}

	if remaining.IsPositive() {
		record(earliestOpenFuturePeriod(loan, today), ComponentAdvance, remaining)
		loan.UnappliedCredit = loan.UnappliedCredit.Add(remaining)
	}

	loan.RecomputeStatus(today)
	return allocations, nil
}

// allocateToInstallment runs the component waterfall on a single installment
// and returns what is left of the payment.
func allocateToInstallment(inst *Installment, remaining decimal.Decimal, today time.Time, record func(int, Component, decimal.Decimal)) decimal.Decimal {
	steps := []struct {
		component Component
		due       decimal.Decimal
		paid      *decimal.Decimal
	}{
		{ComponentPenalty, inst.RemainingPenalty(), &inst.PenaltyPaid},
		{ComponentInterest, inst.RemainingInterest(), &inst.InterestPaid},
		{ComponentCapital, inst.RemainingCapital(), &inst.CapitalPaid},
	}

	for _, step := range steps {
		if !remaining.IsPositive() {
			break
		}
		amount := decimal.Min(remaining, step.due)
		if !amount.IsPositive() {
			continue
		}
		*step.paid = step.paid.Add(amount)
		remaining = remaining.Sub(amount)
		record(inst.Period, step.component, amount)
	}

	inst.Refresh(today)
	return remaining
}

// allocationOrder returns the installments the waterfall may touch: the
// target period first when requested, then every installment due on or before
// today, oldest first. Future installments are only reachable through the
// target hint; early money for them flows through the advance component.
func allocationOrder(loan *Loan, targetPeriod int, today time.Time) []*Installment {
	order := make([]*Installment, 0, len(loan.Installments))

	if target := loan.InstallmentAt(targetPeriod); target != nil {
		order = append(order, target)
	}
	for _, inst := range loan.Installments {
		if inst.Period == targetPeriod {
			continue
		}
		if beforeDay(today, inst.DueDate) {
			continue
		}
		order = append(order, inst)
	}
	return order
}

// earliestOpenFuturePeriod picks where an advance is earmarked: the first
// installment past today that still owes anything, zero (loan-level credit)
// when there is none.
func earliestOpenFuturePeriod(loan *Loan, today time.Time) int {
	for _, inst := range loan.Installments {
		if beforeDay(today, inst.DueDate) && inst.RemainingTotal().IsPositive() {
			return inst.Period
		}
	}
	return 0
}

// CreditApplication records unapplied credit consumed by an installment's
// capital once it came due.
type CreditApplication struct {
	Period int
	Amount decimal.Decimal
}

// ApplyUnappliedCredit pushes held credit into the capital of installments
// that have come due, earliest first. Called when servicing rolls a day
// forward; credit never auto-applies before the due date.
func (l *Loan) ApplyUnappliedCredit(today time.Time) []CreditApplication {
	if !l.UnappliedCredit.IsPositive() {
		return nil
	}

	var applied []CreditApplication
	for _, inst := range l.Installments {
		if !l.UnappliedCredit.IsPositive() {
			break
		}
		if beforeDay(today, inst.DueDate) {
			break
		}
		amount := decimal.Min(l.UnappliedCredit, inst.RemainingCapital())
		if !amount.IsPositive() {
			continue
		}
		inst.CapitalPaid = inst.CapitalPaid.Add(amount)
		l.UnappliedCredit = l.UnappliedCredit.Sub(amount)
		inst.Refresh(today)
		applied = append(applied, CreditApplication{Period: inst.Period, Amount: amount})
	}

	if len(applied) > 0 {
		l.RecomputeStatus(today)
	}
	return applied
}
