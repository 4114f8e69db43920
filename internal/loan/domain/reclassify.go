package domain

import (
	"fmt"
	"time"
)

// ReclassifyPayment corrects how a recorded payment was applied. The
// replacement set fully replaces the active allocation rows: the originals'
// effect is reversed off the installments, the replacement is applied, and an
// audit note describes the change. The original rows are kept as superseded
// by the caller; history is never rewritten.
//
// The whole operation is validated and staged on a copy of the installment
// arena, so a rejected reclassification leaves the aggregate untouched.
// Reclassifying a payment onto its own current allocation set is a no-op.
func ReclassifyPayment(loan *Loan, payment *Payment, original, replacement []PaymentAllocation, newDate *time.Time, reason, actor string, today time.Time) (*AuditNote, []PaymentAllocation, error) {
	if payment == nil {
		return nil, nil, ErrPaymentNotFound
	}
	if total := AllocationTotal(replacement); !total.Equal(payment.Amount) {
		return nil, nil, fmt.Errorf("%w: replacement sums to %s, payment amount is %s",
			ErrAllocationMismatch, total.StringFixed(2), payment.Amount.StringFixed(2))
	}

	// Stage on a copy; nothing is committed until every row applies cleanly.
	staged := loan.CloneInstallments()
	credit := loan.UnappliedCredit
	byPeriod := func(period int) *Installment {
		if period < 1 || period > len(staged) {
			return nil
		}
		return staged[period-1]
	}

	for _, row := range original {
		if row.Superseded {
			continue
		}
		if row.Component == ComponentAdvance {
			credit = credit.Sub(row.Amount)
			if credit.IsNegative() {
				return nil, nil, fmt.Errorf("%w: reversing advance of %s exceeds held credit",
					ErrAllocationMismatch, row.Amount.StringFixed(2))
			}
			continue
		}
		inst := byPeriod(row.Period)
		if inst == nil {
			return nil, nil, fmt.Errorf("%w: period %d", ErrInstallmentNotFound, row.Period)
		}
		if err := reverseComponent(inst, row); err != nil {
			return nil, nil, err
		}
	}

	applied := make([]PaymentAllocation, 0, len(replacement))
	for _, row := range replacement {
		row.PaymentID = payment.ID
		row.LoanID = loan.ID
		row.Superseded = false

		if row.Component == ComponentAdvance {
			credit = credit.Add(row.Amount)
			applied = append(applied, row)
			continue
		}
		inst := byPeriod(row.Period)
		if inst == nil {
			return nil, nil, fmt.Errorf("%w: period %d", ErrInstallmentNotFound, row.Period)
		}
		if err := applyComponent(inst, row); err != nil {
			return nil, nil, err
		}
		applied = append(applied, row)
	}

	// Commit the staged arena.
	for idx, inst := range staged {
		inst.Refresh(today)
		loan.Installments[idx] = inst
	}
	loan.UnappliedCredit = credit
	loan.RecomputeStatus(today)

	note := &AuditNote{
		PaymentID: payment.ID,
		LoanID:    loan.ID,
		OldDate:   payment.PaymentDate,
		NewDate:   payment.PaymentDate,
		Reason:    reason,
		Actor:     actor,
	}
	if newDate != nil {
		note.NewDate = *newDate
		payment.PaymentDate = *newDate
	}

	return note, applied, nil
}

func reverseComponent(inst *Installment, row PaymentAllocation) error {
	switch row.Component {
	case ComponentCapital:
		inst.CapitalPaid = inst.CapitalPaid.Sub(row.Amount)
		if inst.CapitalPaid.IsNegative() {
			return reversalError(inst, row)
		}
	case ComponentInterest:
		inst.InterestPaid = inst.InterestPaid.Sub(row.Amount)
		if inst.InterestPaid.IsNegative() {
			return reversalError(inst, row)
		}
	case ComponentPenalty:
		inst.PenaltyPaid = inst.PenaltyPaid.Sub(row.Amount)
		if inst.PenaltyPaid.IsNegative() {
			return reversalError(inst, row)
		}
	}
	return nil
}

func applyComponent(inst *Installment, row PaymentAllocation) error {
	switch row.Component {
	case ComponentCapital:
		inst.CapitalPaid = inst.CapitalPaid.Add(row.Amount)
		if inst.CapitalPaid.GreaterThan(inst.CapitalPortion) {
			return capacityError(inst, row)
		}
	case ComponentInterest:
		inst.InterestPaid = inst.InterestPaid.Add(row.Amount)
		if inst.InterestPaid.GreaterThan(inst.InterestPortion) {
			return capacityError(inst, row)
		}
	case ComponentPenalty:
		inst.PenaltyPaid = inst.PenaltyPaid.Add(row.Amount)
		if inst.PenaltyPaid.GreaterThan(inst.PenaltyApplied) {
			return capacityError(inst, row)
		}
	default:
		return fmt.Errorf("%w: unknown component %q", ErrAllocationMismatch, row.Component)
	}
	return nil
}

func reversalError(inst *Installment, row PaymentAllocation) error {
	return fmt.Errorf("%w: reversing %s of %s on period %d drives the paid amount negative",
		ErrAllocationMismatch, row.Component, row.Amount.StringFixed(2), inst.Period)
}

func capacityError(inst *Installment, row PaymentAllocation) error {
	return fmt.Errorf("%w: %s of %s exceeds what period %d owes",
		ErrAllocationMismatch, row.Component, row.Amount.StringFixed(2), inst.Period)
}
