package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var postingDate = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testEvent(id, eventType string) LoanEvent {
	return LoanEvent{ID: id, Type: eventType, LoanID: "LOAN-1", OccurredAt: postingDate}
}

func lineAmount(t *testing.T, entry *JournalEntry, account string, direction Direction) decimal.Decimal {
	t.Helper()
	for _, line := range entry.Lines {
		if line.AccountCode == account && line.Direction == direction {
			return line.Amount
		}
	}
	t.Fatalf("no %s line on account %s", direction, account)
	return decimal.Zero
}

func TestPostLoanCreated(t *testing.T) {
	entry, err := PostLoanCreated(testEvent("EVT-1", EventLoanCreated), LoanCreatedPayload{
		LoanID:     "LOAN-1",
		CustomerID: "CUST-1",
		Principal:  dec("1000"),
	})
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	assert.True(t, lineAmount(t, entry, AccountLoansReceivable, Debit).Equal(dec("1000")))
	assert.True(t, lineAmount(t, entry, AccountCash, Credit).Equal(dec("1000")))
	assert.True(t, entry.TotalDebits().Equal(entry.TotalCredits()))
}

func TestPostPaymentAllocated(t *testing.T) {
	entry, err := PostPaymentAllocated(testEvent("EVT-2", EventPaymentAllocated), PaymentAllocatedPayload{
		PaymentID: "PAY-1",
		LoanID:    "LOAN-1",
		Amount:    dec("120.86"),
		Allocations: []ComponentAmount{
			{Period: 1, Component: "penalty", Amount: dec("5.28")},
			{Period: 1, Component: "interest", Amount: dec("10")},
			{Period: 1, Component: "capital", Amount: dec("95.58")},
			{Period: 2, Component: "interest", Amount: dec("9.04")},
			{Period: 2, Component: "capital", Amount: dec("0.96")},
		},
	})
	require.NoError(t, err)

	assert.True(t, lineAmount(t, entry, AccountCash, Debit).Equal(dec("120.86")))
	// Component rows of one account are aggregated into a single line.
	assert.True(t, lineAmount(t, entry, AccountLoansReceivable, Credit).Equal(dec("96.54")))
	assert.True(t, lineAmount(t, entry, AccountInterestIncome, Credit).Equal(dec("19.04")))
	assert.True(t, lineAmount(t, entry, AccountPenaltyReceivable, Credit).Equal(dec("5.28")))
	assert.True(t, entry.TotalDebits().Equal(entry.TotalCredits()))
}

func TestPostPaymentAllocatedAdvanceIsLiability(t *testing.T) {
	entry, err := PostPaymentAllocated(testEvent("EVT-3", EventPaymentAllocated), PaymentAllocatedPayload{
		PaymentID: "PAY-1",
		LoanID:    "LOAN-1",
		Amount:    dec("300"),
		Allocations: []ComponentAmount{
			{Period: 1, Component: "interest", Amount: dec("10")},
			{Period: 1, Component: "capital", Amount: dec("95.58")},
			{Period: 2, Component: "advance", Amount: dec("194.42")},
		},
	})
	require.NoError(t, err)
	assert.True(t, lineAmount(t, entry, AccountCustomerCredits, Credit).Equal(dec("194.42")))
}

func TestPostPaymentAllocatedRejectsUnknownComponent(t *testing.T) {
	_, err := PostPaymentAllocated(testEvent("EVT-4", EventPaymentAllocated), PaymentAllocatedPayload{
		PaymentID:   "PAY-1",
		LoanID:      "LOAN-1",
		Amount:      dec("10"),
		Allocations: []ComponentAmount{{Period: 1, Component: "tips", Amount: dec("10")}},
	})
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestPostPaymentReclassified(t *testing.T) {
	entries, err := PostPaymentReclassified(testEvent("EVT-5", EventPaymentReclassified), PaymentReclassifiedPayload{
		PaymentID: "PAY-1",
		LoanID:    "LOAN-1",
		Amount:    dec("105.58"),
		Old: []ComponentAmount{
			{Period: 1, Component: "interest", Amount: dec("10")},
			{Period: 1, Component: "capital", Amount: dec("95.58")},
		},
		New: []ComponentAmount{
			{Period: 2, Component: "interest", Amount: dec("9.04")},
			{Period: 2, Component: "capital", Amount: dec("96.54")},
		},
		Reason: "posted to wrong installment",
		Actor:  "ops",
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	reversal, repost := entries[0], entries[1]
	assert.Equal(t, "EVT-5-rev", reversal.SourceEventID)
	assert.Equal(t, "EVT-5-new", repost.SourceEventID)

	// The reversal mirrors the original posting.
	assert.True(t, lineAmount(t, reversal, AccountCash, Credit).Equal(dec("105.58")))
	assert.True(t, lineAmount(t, reversal, AccountLoansReceivable, Debit).Equal(dec("95.58")))
	assert.True(t, lineAmount(t, reversal, AccountInterestIncome, Debit).Equal(dec("10")))

	assert.True(t, lineAmount(t, repost, AccountCash, Debit).Equal(dec("105.58")))
	assert.True(t, lineAmount(t, repost, AccountLoansReceivable, Credit).Equal(dec("96.54")))

	for _, entry := range entries {
		assert.True(t, entry.TotalDebits().Equal(entry.TotalCredits()))
	}
}

func TestPostPenaltyAssessed(t *testing.T) {
	entry, err := PostPenaltyAssessed(testEvent("EVT-6", EventPenaltyAssessed), PenaltyAssessedPayload{
		LoanID: "LOAN-1",
		Period: 1,
		Amount: dec("5.28"),
	})
	require.NoError(t, err)
	assert.True(t, lineAmount(t, entry, AccountPenaltyReceivable, Debit).Equal(dec("5.28")))
	assert.True(t, lineAmount(t, entry, AccountPenaltyIncome, Credit).Equal(dec("5.28")))
}

func TestPostLoanResolvedWriteOff(t *testing.T) {
	entry, err := PostLoanResolved(testEvent("EVT-7", EventLoanResolved), LoanResolvedPayload{
		LoanID:              "LOAN-1",
		Type:                "write_off",
		Amount:              dec("55.82"),
		WriteOffAmount:      dec("1000"),
		CapitalOutstanding:  dec("1000"),
		InterestOutstanding: dec("55.82"),
		PenaltyOutstanding:  decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, lineAmount(t, entry, AccountCash, Debit).Equal(dec("55.82")))
	// The recovery settles interest first; the full capital balance is expensed.
	assert.True(t, lineAmount(t, entry, AccountWriteOffExpense, Debit).Equal(dec("1000")))
	assert.True(t, lineAmount(t, entry, AccountLoansReceivable, Credit).Equal(dec("1000")))
	assert.True(t, lineAmount(t, entry, AccountInterestIncome, Credit).Equal(dec("55.82")))
	assert.True(t, entry.TotalDebits().Equal(entry.TotalCredits()))
}

func TestPostLoanResolvedWriteOffCapsReceivableAtCapital(t *testing.T) {
	entry, err := PostLoanResolved(testEvent("EVT-7B", EventLoanResolved), LoanResolvedPayload{
		LoanID:              "LOAN-1",
		Type:                "write_off",
		Amount:              decimal.Zero,
		WriteOffAmount:      dec("1055.82"),
		CapitalOutstanding:  dec("1000"),
		InterestOutstanding: dec("55.82"),
		PenaltyOutstanding:  decimal.Zero,
	})
	require.NoError(t, err)

	// The receivable only ever held the principal, so the credit stops there.
	// Unearned interest was never booked and must not be expensed either.
	assert.True(t, lineAmount(t, entry, AccountLoansReceivable, Credit).Equal(dec("1000")))
	assert.True(t, lineAmount(t, entry, AccountWriteOffExpense, Debit).Equal(dec("1000")))
	assert.True(t, entry.TotalCredits().Equal(dec("1000")))
	for _, line := range entry.Lines {
		assert.NotEqual(t, AccountInterestIncome, line.AccountCode)
	}
}

func TestPostLoanResolvedRepossessionRecoversInventory(t *testing.T) {
	entry, err := PostLoanResolved(testEvent("EVT-8", EventLoanResolved), LoanResolvedPayload{
		LoanID:              "LOAN-1",
		Type:                "repossession",
		Amount:              dec("400"),
		WriteOffAmount:      dec("600"),
		CapitalOutstanding:  dec("900"),
		InterestOutstanding: dec("95"),
		PenaltyOutstanding:  dec("5"),
	})
	require.NoError(t, err)
	assert.True(t, lineAmount(t, entry, AccountInventory, Debit).Equal(dec("400")))
	// Recovery waterfall: penalty 5, interest 95, capital 300; 600 of capital
	// stays unrecovered.
	assert.True(t, lineAmount(t, entry, AccountWriteOffExpense, Debit).Equal(dec("600")))
	assert.True(t, lineAmount(t, entry, AccountLoansReceivable, Credit).Equal(dec("900")))
	assert.True(t, lineAmount(t, entry, AccountPenaltyReceivable, Credit).Equal(dec("5")))
	assert.True(t, lineAmount(t, entry, AccountInterestIncome, Credit).Equal(dec("95")))
	assert.True(t, entry.TotalDebits().Equal(entry.TotalCredits()))
}

func TestPostLoanResolvedSettlementExcessIsOwedBack(t *testing.T) {
	entry, err := PostLoanResolved(testEvent("EVT-8B", EventLoanResolved), LoanResolvedPayload{
		LoanID:              "LOAN-1",
		Type:                "settlement",
		Amount:              dec("1100"),
		WriteOffAmount:      decimal.Zero,
		CapitalOutstanding:  dec("1000"),
		InterestOutstanding: dec("55.82"),
		PenaltyOutstanding:  decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, lineAmount(t, entry, AccountCash, Debit).Equal(dec("1100")))
	assert.True(t, lineAmount(t, entry, AccountLoansReceivable, Credit).Equal(dec("1000")))
	assert.True(t, lineAmount(t, entry, AccountInterestIncome, Credit).Equal(dec("55.82")))
	assert.True(t, lineAmount(t, entry, AccountCustomerCredits, Credit).Equal(dec("44.18")))
	assert.True(t, entry.TotalDebits().Equal(entry.TotalCredits()))
}

func TestPostLoanResolvedNothingToBook(t *testing.T) {
	entry, err := PostLoanResolved(testEvent("EVT-9", EventLoanResolved), LoanResolvedPayload{
		LoanID:         "LOAN-1",
		Type:           "settlement",
		Amount:         decimal.Zero,
		WriteOffAmount: decimal.Zero,
	})
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestJournalEntryValidate(t *testing.T) {
	entry := &JournalEntry{
		SourceEventID: "EVT-10",
		Lines: []JournalLine{
			debit(AccountCash, dec("100")),
			credit(AccountSalesIncome, dec("90")),
		},
	}
	assert.ErrorIs(t, entry.Validate(), ErrUnbalancedEntry)

	entry.Lines[1].Amount = dec("100")
	assert.NoError(t, entry.Validate())

	entry.Lines[1].AccountCode = "9999"
	assert.ErrorIs(t, entry.Validate(), ErrUnknownAccount)
}
