package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a journal line.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// JournalLine is one side of a journal entry.
type JournalLine struct {
	ID          string
	EntryID     string
	AccountCode string
	Direction   Direction
	Amount      decimal.Decimal
}

// JournalEntry is an atomic, balanced set of lines derived from exactly one
// source event. Entries are immutable; corrections post a reversal entry.
type JournalEntry struct {
	ID string
	// SourceEventID makes posting idempotent: one entry per consumed event.
	// Reversal and reposting entries of one reclassification get suffixed ids.
	SourceEventID string
	SourceType    string
	LoanID        string
	Memo          string
	EntryDate     time.Time
	Lines         []JournalLine
	CreatedAt     time.Time
}

// TotalDebits sums the debit lines.
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		if line.Direction == Debit {
			total = total.Add(line.Amount)
		}
	}
	return total
}

// TotalCredits sums the credit lines.
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		if line.Direction == Credit {
			total = total.Add(line.Amount)
		}
	}
	return total
}

// Validate checks that every line references a known account, amounts are
// positive, and debits equal credits.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return fmt.Errorf("%w: entry %s has %d lines", ErrUnbalancedEntry, e.SourceEventID, len(e.Lines))
	}
	for _, line := range e.Lines {
		if _, ok := AccountByCode(line.AccountCode); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAccount, line.AccountCode)
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("%w: non-positive line amount %s on account %s",
				ErrUnbalancedEntry, line.Amount, line.AccountCode)
		}
	}
	debits, credits := e.TotalDebits(), e.TotalCredits()
	if !debits.Equal(credits) {
		return fmt.Errorf("%w: debits %s != credits %s for event %s",
			ErrUnbalancedEntry, debits.StringFixed(2), credits.StringFixed(2), e.SourceEventID)
	}
	return nil
}

// debit and credit build lines; used by the posting rules.
func debit(account string, amount decimal.Decimal) JournalLine {
	return JournalLine{AccountCode: account, Direction: Debit, Amount: amount}
}

func credit(account string, amount decimal.Decimal) JournalLine {
	return JournalLine{AccountCode: account, Direction: Credit, Amount: amount}
}
