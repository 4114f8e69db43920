package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is derived from paid vs due amounts and the due date.
// It is never set directly by callers.
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "pending"
	InstallmentStatusPartial InstallmentStatus = "partial"
	InstallmentStatusPaid    InstallmentStatus = "paid"
	InstallmentStatusOverdue InstallmentStatus = "overdue"
)

// Installment is one period row of a loan. Invariants: capital_paid <=
// capital_portion, interest_paid <= interest_portion, penalty_paid <=
// penalty_applied.
type Installment struct {
	ID              string
	LoanID          string
	Period          int
	DueDate         time.Time
	CapitalPortion  decimal.Decimal
	InterestPortion decimal.Decimal
	PenaltyApplied  decimal.Decimal
	CapitalPaid     decimal.Decimal
	InterestPaid    decimal.Decimal
	PenaltyPaid     decimal.Decimal
	Status          InstallmentStatus
	// Set when the overdue penalty is assessed; guards double-charging.
	PenaltyAssessedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MaterializeInstallments turns schedule rows into installment rows for loanID.
func MaterializeInstallments(loanID string, schedule []ScheduleRow) []*Installment {
	installments := make([]*Installment, 0, len(schedule))
	for _, row := range schedule {
		installments = append(installments, &Installment{
			LoanID:          loanID,
			Period:          row.Period,
			DueDate:         row.DueDate,
			CapitalPortion:  row.PrincipalPortion,
			InterestPortion: row.InterestPortion,
			PenaltyApplied:  decimal.Zero,
			CapitalPaid:     decimal.Zero,
			InterestPaid:    decimal.Zero,
			PenaltyPaid:     decimal.Zero,
			Status:          InstallmentStatusPending,
		})
	}
	return installments
}

// AmountDue is the scheduled amount: capital plus interest, penalty excluded.
func (i *Installment) AmountDue() decimal.Decimal {
	return i.CapitalPortion.Add(i.InterestPortion)
}

// TotalPaid sums every paid component.
func (i *Installment) TotalPaid() decimal.Decimal {
	return i.CapitalPaid.Add(i.InterestPaid).Add(i.PenaltyPaid)
}

// RemainingPenalty is the unpaid part of the assessed penalty.
func (i *Installment) RemainingPenalty() decimal.Decimal {
	return i.PenaltyApplied.Sub(i.PenaltyPaid)
}

// RemainingInterest is the unpaid part of the interest portion.
func (i *Installment) RemainingInterest() decimal.Decimal {
	return i.InterestPortion.Sub(i.InterestPaid)
}

// RemainingCapital is the unpaid part of the capital portion.
func (i *Installment) RemainingCapital() decimal.Decimal {
	return i.CapitalPortion.Sub(i.CapitalPaid)
}

// RemainingTotal is everything still owed on this installment.
func (i *Installment) RemainingTotal() decimal.Decimal {
	return i.RemainingPenalty().Add(i.RemainingInterest()).Add(i.RemainingCapital())
}

// DeriveInstallmentStatus is the single status derivation used everywhere:
//
//	paid:    total paid >= amount due + penalty applied
//	overdue: past due date and capital+interest not fully paid
//	partial: something paid, not everything
//	pending: nothing paid, not past due
func DeriveInstallmentStatus(capitalPortion, interestPortion, penaltyApplied, capitalPaid, interestPaid, penaltyPaid decimal.Decimal, dueDate, today time.Time) InstallmentStatus {
	totalPaid := capitalPaid.Add(interestPaid).Add(penaltyPaid)
	totalDue := capitalPortion.Add(interestPortion).Add(penaltyApplied)

	if totalPaid.GreaterThanOrEqual(totalDue) {
		return InstallmentStatusPaid
	}
	scheduledPaid := capitalPaid.Add(interestPaid)
	scheduledDue := capitalPortion.Add(interestPortion)
	if beforeDay(dueDate, today) && scheduledPaid.LessThan(scheduledDue) {
		return InstallmentStatusOverdue
	}
	if totalPaid.IsPositive() {
		return InstallmentStatusPartial
	}
	return InstallmentStatusPending
}

// Refresh re-derives the status against today.
func (i *Installment) Refresh(today time.Time) {
	i.Status = DeriveInstallmentStatus(
		i.CapitalPortion, i.InterestPortion, i.PenaltyApplied,
		i.CapitalPaid, i.InterestPaid, i.PenaltyPaid,
		i.DueDate, today,
	)
}

// DaysOverdue is floor((today - due_date) / 1 day), zero when not past due.
func (i *Installment) DaysOverdue(today time.Time) int {
	days := int(dayOf(today).Sub(dayOf(i.DueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PenaltyMode selects how the late penalty is computed. The policy is an
// external business input, not something the engine derives.
type PenaltyMode string

const (
	PenaltyModePercentage PenaltyMode = "percentage"
	PenaltyModeFlat       PenaltyMode = "flat"
)

// PenaltyPolicy is the configured late-penalty rule.
type PenaltyPolicy struct {
	Mode PenaltyMode
	// Fraction of the installment amount due, e.g. 0.05.
	Rate decimal.Decimal
	// Flat fee in currency units.
	FlatFee decimal.Decimal
	// Days past due before the penalty applies.
	GraceDays int
}

// Assess computes the penalty for an installment amount due.
func (p PenaltyPolicy) Assess(amountDue decimal.Decimal) decimal.Decimal {
	if p.Mode == PenaltyModeFlat {
		return p.FlatFee.Round(2)
	}
	return amountDue.Mul(p.Rate).Round(2)
}

// ApplyPenalty assesses the overdue penalty exactly once per installment.
// Calling it again, or on an installment that is not overdue past the grace
// period, is a no-op. Returns the assessed amount when a penalty was applied.
func (i *Installment) ApplyPenalty(policy PenaltyPolicy, today time.Time) (decimal.Decimal, bool) {
	if i.PenaltyAssessedAt != nil {
		return decimal.Zero, false
	}
	i.Refresh(today)
	if i.Status != InstallmentStatusOverdue {
		return decimal.Zero, false
	}
	if i.DaysOverdue(today) < policy.GraceDays {
		return decimal.Zero, false
	}

	penalty := policy.Assess(i.AmountDue())
	assessedAt := today
	i.PenaltyApplied = i.PenaltyApplied.Add(penalty)
	i.PenaltyAssessedAt = &assessedAt
	i.Refresh(today)
	return penalty, true
}

// dayOf strips the time-of-day component in the value's location.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beforeDay reports whether a falls on an earlier calendar day than b.
func beforeDay(a, b time.Time) bool {
	return dayOf(a).Before(dayOf(b))
}
