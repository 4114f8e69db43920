package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Component is the closed set of allocation targets. Any code summing or
// displaying allocations matches on it exhaustively.
type Component string

const (
	ComponentCapital  Component = "capital"
	ComponentInterest Component = "interest"
	ComponentPenalty  Component = "penalty"
	// ComponentAdvance holds a remainder beyond everything due: a credit
	// earmarked for the earliest future installment, or unapplied when the
	// loan has no open installments left.
	ComponentAdvance Component = "advance"
)

// Payment is an incoming amount against a loan. Immutable once recorded;
// corrections go through reclassification, which supersedes the allocation
// rows and appends an audit note instead of editing history.
type Payment struct {
	ID          string
	LoanID      string
	Amount      decimal.Decimal
	PaymentDate time.Time
	// Optional 1-based period the payer asked to settle first.
	TargetPeriod int
	CreatedAt    time.Time
}

// PaymentAllocation is one breakdown row of a payment. The active (not
// superseded) rows of a payment always sum to the payment amount.
type PaymentAllocation struct {
	ID        string
	PaymentID string
	LoanID    string
	// 1-based period of the target installment; zero for loan-level advance.
	Period     int
	Component  Component
	Amount     decimal.Decimal
	Superseded bool
	CreatedAt  time.Time
}

// AllocationTotal sums the active rows.
func AllocationTotal(allocations []PaymentAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		if a.Superseded {
			continue
		}
		total = total.Add(a.Amount)
	}
	return total
}

// AuditNote records a reclassification: what changed, why, and by whom. The
// superseded allocation rows stay in place, so the full history is auditable.
type AuditNote struct {
	ID        string
	PaymentID string
	LoanID    string
	OldDate   time.Time
	NewDate   time.Time
	Reason    string
	Actor     string
	CreatedAt time.Time
}
