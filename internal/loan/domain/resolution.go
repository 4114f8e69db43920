package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ResolutionType classifies how a loan was closed out.
type ResolutionType string

const (
	ResolutionSettlement   ResolutionType = "settlement"
	ResolutionWriteOff     ResolutionType = "write_off"
	ResolutionRepossession ResolutionType = "repossession"
)

// ResolutionRecord is the terminal mutation of a loan: the closing amount,
// any written-off balance, and who did it. The compensating journal entries
// are posted by accounting from the loan.resolved event.
type ResolutionRecord struct {
	ID             string
	LoanID         string
	Type           ResolutionType
	Amount         decimal.Decimal
	WriteOffAmount decimal.Decimal
	// Outstanding balance at resolution time, split by component. Accounting
	// needs the split: only capital and assessed penalties sit on receivable
	// accounts, unearned interest does not.
	CapitalOutstanding  decimal.Decimal
	InterestOutstanding decimal.Decimal
	PenaltyOutstanding  decimal.Decimal
	Status              string
	CreatedBy           string
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

// ResolveLoan closes out a loan. Settlement requires the settlement amount to
// cover everything outstanding; write-off and repossession record the unpaid
// balance as the write-off amount.
func ResolveLoan(loan *Loan, resType ResolutionType, amount decimal.Decimal, actor string, today time.Time) (*ResolutionRecord, error) {
	if loan.Status.IsTerminal() {
		return nil, ErrInvalidStatusTransition
	}

	capital, interest, penalty := loan.OutstandingBreakdown()
	outstanding := capital.Add(interest).Add(penalty)
	record := &ResolutionRecord{
		LoanID:              loan.ID,
		Type:                resType,
		Amount:              amount,
		WriteOffAmount:      decimal.Zero,
		CapitalOutstanding:  capital,
		InterestOutstanding: interest,
		PenaltyOutstanding:  penalty,
		Status:              "completed",
		CreatedBy:           actor,
	}

	var next LoanStatus
	switch resType {
	case ResolutionSettlement:
		if amount.LessThan(outstanding) {
			return nil, fmt.Errorf("%w: settlement of %s does not cover outstanding %s",
				ErrInvalidPaymentAmount, amount.StringFixed(2), outstanding.StringFixed(2))
		}
		next = LoanStatusSettled
	case ResolutionWriteOff:
		record.WriteOffAmount = outstanding.Sub(amount)
		next = LoanStatusWrittenOff
	case ResolutionRepossession:
		record.WriteOffAmount = outstanding.Sub(amount)
		next = LoanStatusRepossessed
	default:
		return nil, fmt.Errorf("unknown resolution type %q", resType)
	}
	if record.WriteOffAmount.IsNegative() {
		record.WriteOffAmount = decimal.Zero
	}

	if err := loan.TransitionTo(next); err != nil {
		return nil, err
	}
	completedAt := today
	record.CompletedAt = &completedAt
	return record, nil
}
