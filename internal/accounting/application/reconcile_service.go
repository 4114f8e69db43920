package application

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/loanservicing/internal/accounting/domain"
	"github.com/wyfcoding/loanservicing/pkg/logger"
	"github.com/wyfcoding/loanservicing/pkg/metrics"
)

// SnapshotRunner runs fn against a consistent snapshot of the journal. The
// mysql implementation uses a REPEATABLE_READ transaction so the reconciler
// never sees half of a concurrent posting.
type SnapshotRunner interface {
	RunInSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReconcileService is the read side of the accounting context.
type ReconcileService struct {
	journal  domain.JournalRepository
	snapshot SnapshotRunner
	metrics  *metrics.Metrics
}

func NewReconcileService(journal domain.JournalRepository, snapshot SnapshotRunner, m *metrics.Metrics) *ReconcileService {
	return &ReconcileService{journal: journal, snapshot: snapshot, metrics: m}
}

// Reconcile replays the journal in [from, to] and checks the control
// equation. An imbalance is reported, logged, and exported as a gauge, but
// the report is still returned for inspection.
func (s *ReconcileService) Reconcile(ctx context.Context, from, to time.Time) (*domain.ReconciliationReport, error) {
	var report *domain.ReconciliationReport

	err := s.snapshot.RunInSnapshot(ctx, func(ctx context.Context) error {
		entries, err := s.journal.ListEntries(ctx, from, to)
		if err != nil {
			return err
		}
		report, err = domain.Reconcile(entries, from, to)
		return err
	})

	if report != nil && s.metrics != nil {
		s.metrics.LedgerControlImbalance.Set(report.Control.Abs().InexactFloat64())
	}

	if err != nil {
		if errors.Is(err, domain.ErrLedgerImbalance) && report != nil {
			logger.Error(ctx, "Ledger does not balance",
				"control", report.Control.StringFixed(2), "entries", report.Entries)
			return report, err
		}
		return nil, err
	}

	logger.Info(ctx, "Ledger reconciled", "entries", report.Entries,
		"assets", report.BalanceSheet.TotalAssets.StringFixed(2),
		"net_income", report.IncomeStatement.ProvisionalNetIncome.StringFixed(2))
	return report, nil
}

// TrialBalance returns the raw account balances for the period.
func (s *ReconcileService) TrialBalance(ctx context.Context, from, to time.Time) ([]domain.AccountBalance, error) {
	report, err := s.Reconcile(ctx, from, to)
	if err != nil && !errors.Is(err, domain.ErrLedgerImbalance) {
		return nil, err
	}

	var balances []domain.AccountBalance
	balances = append(balances, report.BalanceSheet.Assets...)
	balances = append(balances, report.BalanceSheet.Liabilities...)
	balances = append(balances, report.BalanceSheet.Capital...)
	return balances, nil
}
