package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Loan event types consumed from the loan events topic. The shapes mirror
// what the loan service publishes; the contexts share a wire contract, not
// code.
const (
	EventLoanCreated         = "loan.created"
	EventPaymentAllocated    = "payment.allocated"
	EventPaymentReclassified = "payment.reclassified"
	EventPenaltyAssessed     = "penalty.assessed"
	EventLoanResolved        = "loan.resolved"
)

// LoanEvent is the consumed envelope; Payload stays raw until Type is known.
type LoanEvent struct {
	ID         string          `json:"event_id"`
	Type       string          `json:"event_type"`
	LoanID     string          `json:"loan_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ComponentAmount is one component slice of a payment allocation.
type ComponentAmount struct {
	Period    int             `json:"period"`
	Component string          `json:"component"`
	Amount    decimal.Decimal `json:"amount"`
}

// LoanCreatedPayload mirrors the loan.created event payload.
type LoanCreatedPayload struct {
	LoanID     string          `json:"loan_id"`
	CustomerID string          `json:"customer_id"`
	Principal  decimal.Decimal `json:"principal"`
}

// PaymentAllocatedPayload mirrors the payment.allocated event payload.
type PaymentAllocatedPayload struct {
	PaymentID   string            `json:"payment_id"`
	LoanID      string            `json:"loan_id"`
	Amount      decimal.Decimal   `json:"amount"`
	PaymentDate time.Time         `json:"payment_date"`
	Allocations []ComponentAmount `json:"allocations"`
}

// PaymentReclassifiedPayload mirrors the payment.reclassified event payload.
type PaymentReclassifiedPayload struct {
	PaymentID string            `json:"payment_id"`
	LoanID    string            `json:"loan_id"`
	Amount    decimal.Decimal   `json:"amount"`
	Old       []ComponentAmount `json:"old_allocations"`
	New       []ComponentAmount `json:"new_allocations"`
	Reason    string            `json:"reason"`
	Actor     string            `json:"actor"`
}

// PenaltyAssessedPayload mirrors the penalty.assessed event payload.
type PenaltyAssessedPayload struct {
	LoanID string          `json:"loan_id"`
	Period int             `json:"period"`
	Amount decimal.Decimal `json:"amount"`
}

// LoanResolvedPayload mirrors the loan.resolved event payload. The
// outstanding split matters here: only capital and assessed penalties sit on
// receivable accounts, unearned interest carries no book value.
type LoanResolvedPayload struct {
	LoanID              string          `json:"loan_id"`
	Type                string          `json:"resolution_type"`
	Amount              decimal.Decimal `json:"amount"`
	WriteOffAmount      decimal.Decimal `json:"write_off_amount"`
	CapitalOutstanding  decimal.Decimal `json:"capital_outstanding"`
	InterestOutstanding decimal.Decimal `json:"interest_outstanding"`
	PenaltyOutstanding  decimal.Decimal `json:"penalty_outstanding"`
}
