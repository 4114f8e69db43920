package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityBuckets(t *testing.T) {
	cases := []struct {
		days int
		want OverdueSeverity
	}{
		{1, SeverityLow},
		{7, SeverityLow},
		{8, SeverityMedium},
		{14, SeverityMedium},
		{15, SeverityHigh},
		{30, SeverityHigh},
		{31, SeverityCritical},
		{120, SeverityCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeverityFor(tc.days), "days %d", tc.days)
	}
}

func TestCollectionActionLadder(t *testing.T) {
	cases := []struct {
		days int
		want CollectionAction
	}{
		{1, ActionSoftReminder},
		{3, ActionSoftReminder},
		{4, ActionPaymentPlanOffer},
		{7, ActionPaymentPlanOffer},
		{8, ActionPhoneCall},
		{14, ActionPhoneCall},
		{15, ActionScheduledVisit},
		{30, ActionScheduledVisit},
		{31, ActionLegalNotice},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ActionFor(tc.days), "days %d", tc.days)
	}
}

func TestDetectOverdueScan(t *testing.T) {
	delinquent := newTestLoan(t)
	asOf := scheduleStart.AddDate(0, 0, 17) // periods 1 and 2 past due, 9 and 2 days

	_, applied := delinquent.InstallmentAt(1).ApplyPenalty(PenaltyPolicy{Mode: PenaltyModePercentage, Rate: d("0.05")}, asOf)
	require.True(t, applied)

	settled := newTestLoan(t)
	settled.ID = "LOAN-2"
	settled.CustomerID = "CUST-2"
	settled.Status = LoanStatusSettled

	report := DetectOverdue([]*Loan{delinquent, settled}, asOf)
	require.Len(t, report.Items, 2, "terminal loans are skipped")

	first := report.Items[0]
	assert.Equal(t, "LOAN-1", first.LoanID)
	assert.Equal(t, 1, first.Period)
	assert.Equal(t, 9, first.DaysOverdue)
	assert.Equal(t, SeverityMedium, first.Severity)
	assert.Equal(t, ActionPhoneCall, first.RecommendedAction)
	assert.True(t, first.AmountOverdue.Equal(d("110.86")), "amount %s", first.AmountOverdue)

	second := report.Items[1]
	assert.Equal(t, 2, second.Period)
	assert.Equal(t, 2, second.DaysOverdue)
	assert.Equal(t, SeverityLow, second.Severity)
	assert.Equal(t, ActionSoftReminder, second.RecommendedAction)

	sum := report.Summary
	assert.Equal(t, 2, sum.Installments)
	assert.Equal(t, 1, sum.Customers)
	assert.True(t, sum.TotalOverdue.Equal(d("216.44")), "total %s", sum.TotalOverdue)
	assert.True(t, sum.TotalPenalties.Equal(d("5.28")))
	assert.True(t, sum.AverageDaysOverdue.Equal(d("5.5")), "avg %s", sum.AverageDaysOverdue)
}

func TestDetectOverdueReadOnly(t *testing.T) {
	loan := newTestLoan(t)
	asOf := scheduleStart.AddDate(0, 0, 17)

	DetectOverdue([]*Loan{loan}, asOf)

	// The scan classifies without mutating the aggregate.
	assert.Equal(t, LoanStatusActive, loan.Status)
	assert.Equal(t, InstallmentStatusPending, loan.InstallmentAt(1).Status)
	assert.True(t, loan.InstallmentAt(1).PenaltyApplied.IsZero())
}

func TestDetectOverdueEmpty(t *testing.T) {
	report := DetectOverdue(nil, scheduleStart)
	assert.Empty(t, report.Items)
	assert.Equal(t, 0, report.Summary.Installments)
	assert.True(t, report.Summary.AverageDaysOverdue.IsZero())
}
