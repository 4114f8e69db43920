package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OverdueSeverity buckets days overdue into fixed collection tiers.
type OverdueSeverity string

const (
	SeverityLow      OverdueSeverity = "low"      // <= 7 days
	SeverityMedium   OverdueSeverity = "medium"   // 8-14 days
	SeverityHigh     OverdueSeverity = "high"     // 15-30 days
	SeverityCritical OverdueSeverity = "critical" // > 30 days
)

// CollectionAction is the advisory next step for a delinquent installment.
// The detector only recommends; contacting the customer is someone else's job.
type CollectionAction string

const (
	ActionSoftReminder     CollectionAction = "soft_reminder"
	ActionPaymentPlanOffer CollectionAction = "payment_plan_offer"
	ActionPhoneCall        CollectionAction = "phone_call"
	ActionScheduledVisit   CollectionAction = "scheduled_visit"
	ActionLegalNotice      CollectionAction = "legal_notice"
)

// SeverityFor maps days overdue to a severity bucket.
func SeverityFor(daysOverdue int) OverdueSeverity {
	switch {
	case daysOverdue <= 7:
		return SeverityLow
	case daysOverdue <= 14:
		return SeverityMedium
	case daysOverdue <= 30:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// ActionFor maps days overdue to a recommended collection action.
func ActionFor(daysOverdue int) CollectionAction {
	switch {
	case daysOverdue <= 3:
		return ActionSoftReminder
	case daysOverdue <= 7:
		return ActionPaymentPlanOffer
	case daysOverdue <= 14:
		return ActionPhoneCall
	case daysOverdue <= 30:
		return ActionScheduledVisit
	default:
		return ActionLegalNotice
	}
}

// OverdueItem is one delinquent installment in the report.
type OverdueItem struct {
	LoanID            string
	CustomerID        string
	Period            int
	DueDate           time.Time
	DaysOverdue       int
	AmountOverdue     decimal.Decimal
	PenaltyApplied    decimal.Decimal
	Severity          OverdueSeverity
	RecommendedAction CollectionAction
}

// OverdueSummary aggregates the report.
type OverdueSummary struct {
	Installments       int
	Customers          int
	TotalOverdue       decimal.Decimal
	TotalPenalties     decimal.Decimal
	AverageDaysOverdue decimal.Decimal
}

// OverdueReport is the full scan result as of a given date.
type OverdueReport struct {
	AsOf    time.Time
	Items   []OverdueItem
	Summary OverdueSummary
}

// DetectOverdue is a read-only scan across loans: every installment past its
// due date and not fully paid is classified and summarized. Loans in terminal
// states are skipped; their collection story is over.
func DetectOverdue(loans []*Loan, asOf time.Time) *OverdueReport {
	report := &OverdueReport{
		AsOf: asOf,
		Summary: OverdueSummary{
			TotalOverdue:       decimal.Zero,
			TotalPenalties:     decimal.Zero,
			AverageDaysOverdue: decimal.Zero,
		},
	}

	customers := make(map[string]struct{})
	totalDays := 0

	for _, loan := range loans {
		if loan.Status.IsTerminal() {
			continue
		}
		for _, inst := range loan.Installments {
			status := DeriveInstallmentStatus(
				inst.CapitalPortion, inst.InterestPortion, inst.PenaltyApplied,
				inst.CapitalPaid, inst.InterestPaid, inst.PenaltyPaid,
				inst.DueDate, asOf,
			)
			if status != InstallmentStatusOverdue {
				continue
			}

			days := inst.DaysOverdue(asOf)
			item := OverdueItem{
				LoanID:            loan.ID,
				CustomerID:        loan.CustomerID,
				Period:            inst.Period,
				DueDate:           inst.DueDate,
				DaysOverdue:       days,
				AmountOverdue:     inst.RemainingTotal(),
				PenaltyApplied:    inst.PenaltyApplied,
				Severity:          SeverityFor(days),
				RecommendedAction: ActionFor(days),
			}
			report.Items = append(report.Items, item)

			customers[loan.CustomerID] = struct{}{}
			totalDays += days
			report.Summary.TotalOverdue = report.Summary.TotalOverdue.Add(item.AmountOverdue)
			report.Summary.TotalPenalties = report.Summary.TotalPenalties.Add(item.PenaltyApplied)
		}
	}

	report.Summary.Installments = len(report.Items)
	report.Summary.Customers = len(customers)
	if len(report.Items) > 0 {
		report.Summary.AverageDaysOverdue = decimal.NewFromInt(int64(totalDays)).
			DivRound(decimal.NewFromInt(int64(len(report.Items))), 1)
	}
	return report
}

// CollectionActionRecord is the opaque side-effect write for a collection
// step someone actually took (call placed, visit scheduled). The engine never
// contacts anyone.
type CollectionActionRecord struct {
	ID         string
	LoanID     string
	Period     int
	Action     CollectionAction
	Note       string
	Actor      string
	RecordedAt time.Time
}
