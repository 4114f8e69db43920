package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event types published to the loan events topic and consumed by accounting.
const (
	EventLoanCreated         = "loan.created"
	EventPaymentAllocated    = "payment.allocated"
	EventPaymentReclassified = "payment.reclassified"
	EventPenaltyAssessed     = "penalty.assessed"
	EventLoanResolved        = "loan.resolved"
)

// Event is the envelope on the wire. Payload holds one of the typed event
// structs below, keyed by Type.
type Event struct {
	ID         string      `json:"event_id"`
	Type       string      `json:"event_type"`
	LoanID     string      `json:"loan_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// RawEvent is the consumer-side envelope with the payload left undecoded
// until the type is known.
type RawEvent struct {
	ID         string          `json:"event_id"`
	Type       string          `json:"event_type"`
	LoanID     string          `json:"loan_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ComponentAmount is one component slice of an allocation, as carried on events.
type ComponentAmount struct {
	Period    int             `json:"period"`
	Component Component       `json:"component"`
	Amount    decimal.Decimal `json:"amount"`
}

// LoanCreatedEvent announces a disbursed loan.
type LoanCreatedEvent struct {
	LoanID     string          `json:"loan_id"`
	CustomerID string          `json:"customer_id"`
	Principal  decimal.Decimal `json:"principal"`
}

// PaymentAllocatedEvent carries the waterfall result of one payment.
type PaymentAllocatedEvent struct {
	PaymentID   string            `json:"payment_id"`
	LoanID      string            `json:"loan_id"`
	Amount      decimal.Decimal   `json:"amount"`
	PaymentDate time.Time         `json:"payment_date"`
	Allocations []ComponentAmount `json:"allocations"`
}

// PaymentReclassifiedEvent carries both allocation sets so accounting can
// post a reversal and a reposting.
type PaymentReclassifiedEvent struct {
	PaymentID string            `json:"payment_id"`
	LoanID    string            `json:"loan_id"`
	Amount    decimal.Decimal   `json:"amount"`
	Old       []ComponentAmount `json:"old_allocations"`
	New       []ComponentAmount `json:"new_allocations"`
	Reason    string            `json:"reason"`
	Actor     string            `json:"actor"`
}

// PenaltyAssessedEvent announces a late penalty added to an installment.
type PenaltyAssessedEvent struct {
	LoanID string          `json:"loan_id"`
	Period int             `json:"period"`
	Amount decimal.Decimal `json:"amount"`
}

// LoanResolvedEvent announces a terminal resolution and the balance written
// off, with the outstanding balance split by component so accounting can
// derecognize each receivable at its book value.
type LoanResolvedEvent struct {
	LoanID              string          `json:"loan_id"`
	Type                ResolutionType  `json:"resolution_type"`
	Amount              decimal.Decimal `json:"amount"`
	WriteOffAmount      decimal.Decimal `json:"write_off_amount"`
	CapitalOutstanding  decimal.Decimal `json:"capital_outstanding"`
	InterestOutstanding decimal.Decimal `json:"interest_outstanding"`
	PenaltyOutstanding  decimal.Decimal `json:"penalty_outstanding"`
}

// ComponentAmounts projects allocation rows onto the event shape.
func ComponentAmounts(allocations []PaymentAllocation) []ComponentAmount {
	out := make([]ComponentAmount, 0, len(allocations))
	for _, a := range allocations {
		if a.Superseded {
			continue
		}
		out = append(out, ComponentAmount{Period: a.Period, Component: a.Component, Amount: a.Amount})
	}
	return out
}
