package domain

import "errors"

var (
	// ErrUnbalancedEntry means a journal entry's debits and credits differ.
	ErrUnbalancedEntry = errors.New("unbalanced journal entry")
	// ErrUnknownAccount means a journal line references an account code that
	// is not in the chart of accounts.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrLedgerImbalance means the control equation does not hold: the books
	// do not balance and need operator review.
	ErrLedgerImbalance = errors.New("ledger imbalance")
	// ErrDuplicateEvent means a journal entry for this source event already
	// exists; the posting is skipped.
	ErrDuplicateEvent = errors.New("duplicate source event")
)
