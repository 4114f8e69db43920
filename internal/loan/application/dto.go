package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/loanservicing/internal/loan/domain"
)

// CreateLoanCommand disburses a new loan and materializes its schedule.
type CreateLoanCommand struct {
	CustomerID  string
	Principal   decimal.Decimal
	AnnualRate  decimal.Decimal
	TermPeriods int
	StartDate   time.Time
}

// AllocatePaymentCommand records a customer payment against a loan.
type AllocatePaymentCommand struct {
	LoanID      string
	Amount      decimal.Decimal
	PaymentDate time.Time
	// Optional 1-based installment the collector earmarked the money for.
	TargetPeriod int
}

// AllocationInput is one replacement row of a reclassification request.
type AllocationInput struct {
	Period    int
	Component domain.Component
	Amount    decimal.Decimal
}

// ReclassifyPaymentCommand corrects how a recorded payment was applied.
type ReclassifyPaymentCommand struct {
	LoanID      string
	PaymentID   string
	Replacement []AllocationInput
	NewDate     *time.Time
	Reason      string
	Actor       string
}

// ResolveLoanCommand closes out a loan with a terminal resolution.
type ResolveLoanCommand struct {
	LoanID string
	Type   domain.ResolutionType
	Amount decimal.Decimal
	Actor  string
}

// RecordCollectionActionCommand logs a collection step a human actually took.
type RecordCollectionActionCommand struct {
	LoanID string
	Period int
	Action domain.CollectionAction
	Note   string
	Actor  string
}

// PaymentResult is the outcome of a payment allocation.
type PaymentResult struct {
	Payment     *domain.Payment
	Allocations []domain.PaymentAllocation
	LoanStatus  domain.LoanStatus
}

// ReclassifyResult is the outcome of a reclassification.
type ReclassifyResult struct {
	Note        *domain.AuditNote
	Allocations []domain.PaymentAllocation
	LoanStatus  domain.LoanStatus
}
