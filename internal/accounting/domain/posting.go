package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Posting rules: every consumed loan event maps to one or two balanced
// journal entries. The rules are pure; persistence and idempotence are the
// application layer's problem.

// componentAccount is the account a payment component settles against.
// Capital repayments reduce the receivable, interest and penalties are
// income (penalties via the receivable accrued at assessment), and advances
// are money owed back to the customer until applied.
func componentAccount(component string) (string, error) {
	switch component {
	case "capital":
		return AccountLoansReceivable, nil
	case "interest":
		return AccountInterestIncome, nil
	case "penalty":
		return AccountPenaltyReceivable, nil
	case "advance":
		return AccountCustomerCredits, nil
	}
	return "", fmt.Errorf("%w: component %q", ErrUnknownAccount, component)
}

// PostLoanCreated books the disbursement: the principal leaves cash and
// becomes a receivable.
func PostLoanCreated(event LoanEvent, p LoanCreatedPayload) (*JournalEntry, error) {
	entry := &JournalEntry{
		SourceEventID: event.ID,
		SourceType:    event.Type,
		LoanID:        p.LoanID,
		Memo:          fmt.Sprintf("loan %s disbursed to %s", p.LoanID, p.CustomerID),
		EntryDate:     event.OccurredAt,
		Lines: []JournalLine{
			debit(AccountLoansReceivable, p.Principal),
			credit(AccountCash, p.Principal),
		},
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// PostPaymentAllocated books a payment: cash in, credited per component.
func PostPaymentAllocated(event LoanEvent, p PaymentAllocatedPayload) (*JournalEntry, error) {
	lines, err := componentLines(p.Allocations, Credit)
	if err != nil {
		return nil, err
	}
	entry := &JournalEntry{
		SourceEventID: event.ID,
		SourceType:    event.Type,
		LoanID:        p.LoanID,
		Memo:          fmt.Sprintf("payment %s on loan %s", p.PaymentID, p.LoanID),
		EntryDate:     event.OccurredAt,
		Lines:         append([]JournalLine{debit(AccountCash, p.Amount)}, lines...),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// PostPaymentReclassified books a reversal of the old allocation set and a
// reposting of the new one. Two entries, each balanced on its own.
func PostPaymentReclassified(event LoanEvent, p PaymentReclassifiedPayload) ([]*JournalEntry, error) {
	oldLines, err := componentLines(p.Old, Debit)
	if err != nil {
		return nil, err
	}
	reversal := &JournalEntry{
		SourceEventID: event.ID + "-rev",
		SourceType:    event.Type,
		LoanID:        p.LoanID,
		Memo:          fmt.Sprintf("reversal of payment %s: %s", p.PaymentID, p.Reason),
		EntryDate:     event.OccurredAt,
		Lines:         append(oldLines, credit(AccountCash, p.Amount)),
	}
	if err := reversal.Validate(); err != nil {
		return nil, err
	}

	newLines, err := componentLines(p.New, Credit)
	if err != nil {
		return nil, err
	}
	repost := &JournalEntry{
		SourceEventID: event.ID + "-new",
		SourceType:    event.Type,
		LoanID:        p.LoanID,
		Memo:          fmt.Sprintf("reposting of payment %s by %s", p.PaymentID, p.Actor),
		EntryDate:     event.OccurredAt,
		Lines:         append([]JournalLine{debit(AccountCash, p.Amount)}, newLines...),
	}
	if err := repost.Validate(); err != nil {
		return nil, err
	}
	return []*JournalEntry{reversal, repost}, nil
}

// PostPenaltyAssessed accrues the penalty as a receivable against income.
func PostPenaltyAssessed(event LoanEvent, p PenaltyAssessedPayload) (*JournalEntry, error) {
	entry := &JournalEntry{
		SourceEventID: event.ID,
		SourceType:    event.Type,
		LoanID:        p.LoanID,
		Memo:          fmt.Sprintf("penalty on loan %s period %d", p.LoanID, p.Period),
		EntryDate:     event.OccurredAt,
		Lines: []JournalLine{
			debit(AccountPenaltyReceivable, p.Amount),
			credit(AccountPenaltyIncome, p.Amount),
		},
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// PostLoanResolved books a terminal resolution. The recovery settles penalty,
// then interest, then capital, the same order the payment waterfall uses.
// Receivables are derecognized at book value: capital outstanding on the loan
// receivable, assessed penalties on the penalty receivable. Recovered
// interest becomes income; unearned interest was never booked, so its
// unrecovered part carries no entry. The unrecovered receivable balance is
// expensed, and any recovery beyond the outstanding total is owed back to the
// customer. A resolution with nothing to book returns nil.
func PostLoanResolved(event LoanEvent, p LoanResolvedPayload) (*JournalEntry, error) {
	remaining := p.Amount
	recoveredPenalty := decimal.Min(remaining, p.PenaltyOutstanding)
	remaining = remaining.Sub(recoveredPenalty)
	recoveredInterest := decimal.Min(remaining, p.InterestOutstanding)
	remaining = remaining.Sub(recoveredInterest)
	recoveredCapital := decimal.Min(remaining, p.CapitalOutstanding)
	excess := remaining.Sub(recoveredCapital)

	var lines []JournalLine
	if p.Amount.IsPositive() {
		recovered := AccountCash
		if p.Type == "repossession" {
			recovered = AccountInventory
		}
		lines = append(lines, debit(recovered, p.Amount))
	}
	writeOff := p.CapitalOutstanding.Sub(recoveredCapital).Add(p.PenaltyOutstanding.Sub(recoveredPenalty))
	if writeOff.IsPositive() {
		lines = append(lines, debit(AccountWriteOffExpense, writeOff))
	}
	if p.CapitalOutstanding.IsPositive() {
		lines = append(lines, credit(AccountLoansReceivable, p.CapitalOutstanding))
	}
	if p.PenaltyOutstanding.IsPositive() {
		lines = append(lines, credit(AccountPenaltyReceivable, p.PenaltyOutstanding))
	}
	if recoveredInterest.IsPositive() {
		lines = append(lines, credit(AccountInterestIncome, recoveredInterest))
	}
	if excess.IsPositive() {
		lines = append(lines, credit(AccountCustomerCredits, excess))
	}
	if len(lines) == 0 {
		return nil, nil
	}

	entry := &JournalEntry{
		SourceEventID: event.ID,
		SourceType:    event.Type,
		LoanID:        p.LoanID,
		Memo:          fmt.Sprintf("loan %s resolved by %s", p.LoanID, p.Type),
		EntryDate:     event.OccurredAt,
		Lines:         lines,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// componentLines aggregates allocation rows by account and emits one line per
// account in chart order, so entries stay small and deterministic.
func componentLines(allocations []ComponentAmount, direction Direction) ([]JournalLine, error) {
	totals := make(map[string]decimal.Decimal)
	for _, a := range allocations {
		account, err := componentAccount(a.Component)
		if err != nil {
			return nil, err
		}
		totals[account] = totals[account].Add(a.Amount)
	}

	var lines []JournalLine
	for _, account := range ChartOfAccounts() {
		amount, ok := totals[account.Code]
		if !ok || amount.IsZero() {
			continue
		}
		lines = append(lines, JournalLine{AccountCode: account.Code, Direction: direction, Amount: amount})
	}
	return lines, nil
}
